// Package normalize canonicalizes extracted contact fields. Every function
// here is idempotent: f(f(x)) == f(x).
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/zsafwan/pr-contacts/internal/model"
)

var titleCaser = cases.Title(language.English, cases.NoLower)

// Text canonicalizes a free-text field (name, company, title): whitespace is
// collapsed to single spaces and all-lowercase or all-uppercase input is
// title-cased. Mixed-case input is left alone so "IBM Corp" and "McDonald"
// survive untouched.
func Text(s string) string {
	s = collapseSpace(s)
	if s == "" {
		return ""
	}
	if isUniformCase(s) {
		return titleCaser.String(strings.ToLower(s))
	}
	return s
}

// Email canonicalizes an email address: trimmed and lowercased. Invalid
// addresses are passed through untouched beyond that; validation is the
// extractor's job.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Phone canonicalizes a phone number to digits, keeping a leading "+".
// Returns "" if the input has no digits.
func Phone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	for i, r := range s {
		if r == '+' && b.Len() == 0 && i == 0 {
			b.WriteRune(r)
			continue
		}
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "+" {
		return ""
	}
	return out
}

// Result applies the field normalizers to every field of an extraction
// result, returning a new value. Duplicate and empty alternate emails are
// dropped, as is any alternate equal to the primary.
func Result(r model.ExtractionResult) model.ExtractionResult {
	r.Name = Text(r.Name)
	r.Email = Email(r.Email)
	r.Company = Text(r.Company)
	r.Title = Text(r.Title)
	r.Phone = Phone(r.Phone)

	var alts []string
	seen := map[string]struct{}{r.Email: {}}
	for _, a := range r.AltEmails {
		a = Email(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		alts = append(alts, a)
	}
	r.AltEmails = alts
	return r
}

// collapseSpace trims and replaces runs of whitespace with single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isUniformCase reports whether s has no mixed-case words: every letter is
// lowercase, or every letter is uppercase.
func isUniformCase(s string) bool {
	hasUpper, hasLower := false, false
	for _, r := range s {
		if unicode.IsUpper(r) {
			hasUpper = true
		} else if unicode.IsLower(r) {
			hasLower = true
		}
		if hasUpper && hasLower {
			return false
		}
	}
	return true
}
