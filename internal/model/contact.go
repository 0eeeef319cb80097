package model

import "time"

// Contact is a resolved PR contact. Email is the primary identity key and is
// unique across contacts; additional addresses that belong to the same person
// live in AltEmails.
type Contact struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email"`
	Company   string    `json:"company,omitempty"`
	Title     string    `json:"title,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	AltEmails []string  `json:"alt_emails,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EmailDomain   string `json:"email_domain,omitempty"`
	CompanySource string `json:"company_source,omitempty"`
	Country       string `json:"country,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
	CountrySource string `json:"country_source,omitempty"`
}

// Category is a topical classification bucket (e.g. "Tech & Startups").
type Category struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Brand is a company or product mentioned in classified emails.
type Brand struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ContactCategory links a contact to a category with the highest confidence
// observed so far. Confidence only ever goes up.
type ContactCategory struct {
	ContactID  int64   `json:"contact_id"`
	CategoryID int64   `json:"category_id"`
	Category   string  `json:"category,omitempty"`
	Confidence float64 `json:"confidence"`
}

// ContactBrand links a contact to a brand with a running mention count.
// The count accumulates across emails and never decreases.
type ContactBrand struct {
	ContactID    int64  `json:"contact_id"`
	BrandID      int64  `json:"brand_id"`
	Brand        string `json:"brand,omitempty"`
	MentionCount int    `json:"mention_count"`
}

// ProcessedEmail records that an email ID has been fully handled. Its
// presence is what makes re-runs idempotent.
type ProcessedEmail struct {
	EmailID     string    `json:"email_id"`
	ContactID   int64     `json:"contact_id,omitempty"`
	Subject     string    `json:"subject,omitempty"`
	FromEmail   string    `json:"from_email,omitempty"`
	ReceivedAt  time.Time `json:"received_at,omitempty"`
	ProcessedAt time.Time `json:"processed_at"`
}
