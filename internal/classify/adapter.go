package classify

import (
	"context"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/store"
)

// Fold merges one oracle Result into a contact's stored classifications.
// Categories scored below minConfidence are dropped; the rest are created
// lazily. Confidence never decreases and mention counts only accumulate, so
// re-folding the same result is safe.
func Fold(ctx context.Context, st store.Store, contactID int64, res Result, minConfidence float64) error {
	for _, cs := range res.Categories {
		if cs.Confidence < minConfidence {
			zap.L().Debug("classify: category below confidence floor",
				zap.Int64("contact_id", contactID),
				zap.String("category", cs.Name),
				zap.Float64("confidence", cs.Confidence),
			)
			continue
		}
		cat, err := st.GetOrCreateCategory(ctx, cs.Name)
		if err != nil {
			return err
		}
		if err := st.UpsertContactCategory(ctx, contactID, cat.ID, cs.Confidence); err != nil {
			return err
		}
	}

	for _, bm := range res.Brands {
		brand, err := st.GetOrCreateBrand(ctx, bm.Name)
		if err != nil {
			return err
		}
		count := bm.Count
		if count <= 0 {
			count = 1
		}
		if err := st.IncrementContactBrand(ctx, contactID, brand.ID, count); err != nil {
			return err
		}
	}

	if len(res.Categories) > 0 || len(res.Brands) > 0 {
		zap.L().Debug("classify: folded result",
			zap.Int64("contact_id", contactID),
			zap.Int("categories", len(res.Categories)),
			zap.Int("brands", len(res.Brands)),
		)
	}
	return nil
}

// EvidenceFromEmail builds classifier evidence from a raw email and the
// extraction result it produced.
func EvidenceFromEmail(email model.RawEmail, extracted model.ExtractionResult) Evidence {
	snippet := email.Snippet
	if snippet == "" {
		snippet = email.Body
	}
	snippet = truncateRunes(snippet, 500)
	return Evidence{
		Subject:       email.Subject,
		Snippet:       snippet,
		SenderName:    extracted.Name,
		SenderCompany: extracted.Company,
	}
}

// truncateRunes caps s at max bytes without splitting a UTF-8 sequence.
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
