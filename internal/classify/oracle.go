// Package classify assigns PR categories and brand mentions to contacts by
// consulting a classification oracle. The oracle is a black box: it sees
// email evidence and returns scored categories, and the adapter folds those
// results into the store with monotonic semantics.
package classify

import (
	"context"
	"fmt"
	"strings"
)

// Evidence is what the oracle sees for one email.
type Evidence struct {
	Subject       string
	Snippet       string
	SenderName    string
	SenderCompany string
}

// CategoryScore is one category assignment with the oracle's confidence.
type CategoryScore struct {
	Name       string
	Confidence float64
}

// BrandMention is one promoted brand and how many emails mentioned it.
type BrandMention struct {
	Name  string
	Count int
}

// Result is the oracle's output for one email.
type Result struct {
	Categories []CategoryScore
	Brands     []BrandMention
}

// Oracle classifies email evidence. Implementations must return an error on
// transport failure, never a silently empty Result.
type Oracle interface {
	Classify(ctx context.Context, ev Evidence, known []string) (*Result, error)
	ClassifyBatch(ctx context.Context, evs []Evidence, known []string) ([]Result, error)
}

// BatchError reports which items of a ClassifyBatch call failed. The
// remaining slots in the returned slice are still valid.
type BatchError struct {
	Failed  []int
	Reasons []string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("classify: %d batch items failed: %s",
		len(e.Failed), strings.Join(e.Reasons, "; "))
}

// FailedSet returns the failed indexes as a set for quick lookup.
func (e *BatchError) FailedSet() map[int]bool {
	set := make(map[int]bool, len(e.Failed))
	for _, i := range e.Failed {
		set[i] = true
	}
	return set
}
