package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zsafwan/pr-contacts/internal/model"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \t\n ", ""},
		{"collapses runs", "jane   q.\tdoe", "Jane Q. Doe"},
		{"all lower title-cased", "acme communications", "Acme Communications"},
		{"all upper title-cased", "JANE DOE", "Jane Doe"},
		{"mixed case preserved", "IBM Corp", "IBM Corp"},
		{"intercaps preserved", "McDonald", "McDonald"},
		{"already canonical", "Jane Doe", "Jane Doe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestEmail(t *testing.T) {
	assert.Equal(t, "jane@acme.com", Email("  Jane@Acme.COM "))
	assert.Equal(t, "", Email("   "))
}

func TestPhone(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"us formatted", "(555) 123-4567", "5551234567"},
		{"international", "+44 20 7946 0958", "+442079460958"},
		{"dots and spaces", "555.123.4567", "5551234567"},
		{"no digits", "call me", ""},
		{"bare plus", "+", ""},
		{"interior plus dropped", "555+123", "555123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Phone(tt.in))
		})
	}
}

func TestResult(t *testing.T) {
	in := model.ExtractionResult{
		Name:      "  jane   doe ",
		Email:     "Jane@Acme.COM",
		Company:   "ACME COMMUNICATIONS",
		Title:     "pr manager",
		Phone:     "(555) 123-4567",
		AltEmails: []string{"Jane@Acme.COM", "jane.doe@gmail.com", "", "jane.doe@gmail.com"},
	}

	got := Result(in)

	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, "jane@acme.com", got.Email)
	assert.Equal(t, "Acme Communications", got.Company)
	assert.Equal(t, "Pr Manager", got.Title)
	assert.Equal(t, "5551234567", got.Phone)
	// Primary, empty and duplicate alternates are dropped.
	assert.Equal(t, []string{"jane.doe@gmail.com"}, got.AltEmails)
}

// Normalization must be idempotent: applying it twice is the same as once.
func TestIdempotence(t *testing.T) {
	inputs := []model.ExtractionResult{
		{
			Name:    "  jane   doe ",
			Email:   "Jane@Acme.COM",
			Company: "ACME COMMUNICATIONS",
			Title:   "pr manager",
			Phone:   "(555) 123-4567",
		},
		{
			Name:      "McDonald PR Team",
			Email:     "press@mcdonald.co.uk",
			Company:   "IBM Corp",
			Phone:     "+44 20 7946 0958",
			AltEmails: []string{"a@b.com", "A@B.com"},
		},
		{},
		{Name: "x", Phone: "+"},
	}

	for _, in := range inputs {
		once := Result(in)
		twice := Result(once)
		assert.Equal(t, once, twice)
	}
}

func TestTextIdempotent(t *testing.T) {
	for _, s := range []string{"jane doe", "JANE DOE", "IBM Corp", "  spaced   out  ", "élan vital"} {
		once := Text(s)
		assert.Equal(t, once, Text(once), "input %q", s)
	}
}
