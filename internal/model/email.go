// Package model defines the domain types shared across the extraction pipeline.
package model

import "time"

// RawEmail is a single email as delivered by a mail source. It is immutable
// input; ID is the provider-assigned identifier used for at-most-once
// processing.
type RawEmail struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	FromHeader string    `json:"from_header"`
	FromName   string    `json:"from_name,omitempty"`
	FromEmail  string    `json:"from_email,omitempty"`
	Body       string    `json:"body,omitempty"`
	Snippet    string    `json:"snippet,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
}

// ExtractionResult is the transient output of parsing a single email.
// All fields are best-effort; empty means "not found".
type ExtractionResult struct {
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Company   string   `json:"company,omitempty"`
	Title     string   `json:"title,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	AltEmails []string `json:"alt_emails,omitempty"`

	// CompanySource records where Company came from; a signature beats a
	// domain guess when contacts merge.
	CompanySource string `json:"company_source,omitempty"`

	// Country detection (phone country code or email ccTLD).
	Country       string `json:"country,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
	CountrySource string `json:"country_source,omitempty"`

	// SourceEmailID links the result back to the RawEmail it came from.
	SourceEmailID string `json:"source_email_id"`
}

// IsEmpty reports whether the extraction produced no usable signal at all.
func (r ExtractionResult) IsEmpty() bool {
	return r.Name == "" && r.Email == "" && r.Company == "" &&
		r.Title == "" && r.Phone == "" && len(r.AltEmails) == 0
}
