// Package store provides relational persistence for contacts, categories,
// brands and pipeline bookkeeping, with SQLite and Postgres backends.
package store

import (
	"context"

	"github.com/zsafwan/pr-contacts/internal/extract"
	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/resilience"
)

// ContactFilter specifies criteria for listing contacts. A zero Limit means
// no limit.
type ContactFilter struct {
	Company  string `json:"company,omitempty"`
	Category string `json:"category,omitempty"`
	Brand    string `json:"brand,omitempty"`
	Country  string `json:"country,omitempty"`
	Search   string `json:"search,omitempty"` // matches name or email
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Stats summarizes the contact directory for reporting.
type Stats struct {
	Contacts        int             `json:"contacts"`
	Categories      int             `json:"categories"`
	Brands          int             `json:"brands"`
	ProcessedEmails int             `json:"processed_emails"`
	ByCategory      []CategoryCount `json:"by_category,omitempty"`
	ByBrand         []BrandCount    `json:"by_brand,omitempty"`
	ByDomain        []DomainCount   `json:"by_domain,omitempty"`
}

// CategoryCount is the number of contacts assigned to one category.
type CategoryCount struct {
	Name     string `json:"name"`
	Contacts int    `json:"contacts"`
}

// BrandCount is the total mention count recorded for one brand.
type BrandCount struct {
	Name     string `json:"name"`
	Mentions int    `json:"mentions"`
}

// DomainCount is the number of contacts sharing one email domain.
// Personal webmail domains are excluded.
type DomainCount struct {
	Domain   string `json:"domain"`
	Contacts int    `json:"contacts"`
}

// personalDomains are webmail providers excluded from domain grouping; a
// gmail.com address says nothing about the sender's outlet.
var personalDomains = extract.PersonalDomains()

// Store defines the persistence interface for the extraction pipeline.
// Get* methods return (nil, nil) when the row does not exist.
type Store interface {
	// Contacts. Email is the unique key; CreateContact fails with a
	// constraint violation when the primary email already exists.
	GetContactByEmail(ctx context.Context, email string) (*model.Contact, error)
	GetContact(ctx context.Context, id int64) (*model.Contact, error)
	CreateContact(ctx context.Context, c *model.Contact) error
	UpdateContact(ctx context.Context, c *model.Contact) error
	AddContactEmail(ctx context.Context, contactID int64, email string) error
	ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error)

	// Vocabulary grows lazily: both calls upsert by name.
	GetOrCreateCategory(ctx context.Context, name string) (*model.Category, error)
	GetOrCreateBrand(ctx context.Context, name string) (*model.Brand, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	ListBrands(ctx context.Context) ([]model.Brand, error)

	// Classification folds. Confidence only ever rises; mention counts
	// only ever accumulate.
	UpsertContactCategory(ctx context.Context, contactID, categoryID int64, confidence float64) error
	IncrementContactBrand(ctx context.Context, contactID, brandID int64, mentions int) error
	ListContactCategories(ctx context.Context, contactID int64) ([]model.ContactCategory, error)
	ListContactBrands(ctx context.Context, contactID int64) ([]model.ContactBrand, error)

	// Processed-email ledger. MarkEmailProcessed is insert-only and a
	// duplicate insert is a no-op, not an error.
	IsEmailProcessed(ctx context.Context, emailID string) (bool, error)
	MarkEmailProcessed(ctx context.Context, rec model.ProcessedEmail) error

	// Ingest runs
	CreateRun(ctx context.Context) (*model.IngestRun, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, report *model.RunReport) error
	ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error)

	// Dead letter queue for emails that failed processing.
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)

	Stats(ctx context.Context) (*Stats, error)

	// WithTx runs fn against a transactional view of the store and commits
	// if fn returns nil. The Store passed to fn must not be retained.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
