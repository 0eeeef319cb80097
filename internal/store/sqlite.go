package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/resilience"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx, so the
// same methods serve both the plain store and its transactional view.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB // nil for a transactional view
	q  dbtx
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, q: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	name           TEXT NOT NULL DEFAULT '',
	email          TEXT NOT NULL UNIQUE,
	company        TEXT NOT NULL DEFAULT '',
	company_source TEXT NOT NULL DEFAULT '',
	title          TEXT NOT NULL DEFAULT '',
	phone          TEXT NOT NULL DEFAULT '',
	email_domain   TEXT NOT NULL DEFAULT '',
	country        TEXT NOT NULL DEFAULT '',
	country_code   TEXT NOT NULL DEFAULT '',
	country_source TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS contact_emails (
	contact_id INTEGER NOT NULL REFERENCES contacts(id),
	email      TEXT NOT NULL,
	PRIMARY KEY (contact_id, email)
);

CREATE TABLE IF NOT EXISTS categories (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS brands (
	id   INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS contact_categories (
	contact_id  INTEGER NOT NULL REFERENCES contacts(id),
	category_id INTEGER NOT NULL REFERENCES categories(id),
	confidence  REAL NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, category_id)
);

CREATE TABLE IF NOT EXISTS contact_brands (
	contact_id    INTEGER NOT NULL REFERENCES contacts(id),
	brand_id      INTEGER NOT NULL REFERENCES brands(id),
	mention_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, brand_id)
);

CREATE TABLE IF NOT EXISTS processed_emails (
	email_id     TEXT PRIMARY KEY,
	contact_id   INTEGER,
	subject      TEXT NOT NULL DEFAULT '',
	from_email   TEXT NOT NULL DEFAULT '',
	received_at  DATETIME,
	processed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME,
	fetched     INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	categorized INTEGER NOT NULL DEFAULT 0,
	deferred    INTEGER NOT NULL DEFAULT 0,
	report      TEXT
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	email          TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	failed_stage   TEXT,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_domain ON contacts(email_domain);
CREATE INDEX IF NOT EXISTS idx_contact_categories_category ON contact_categories(category_id);
CREATE INDEX IF NOT EXISTS idx_contact_brands_brand ON contact_brands(brand_id);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.q.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// WithTx runs fn in a transaction. Calling WithTx on a transactional view
// just runs fn in the enclosing transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	if err := fn(&SQLiteStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return eris.Wrapf(err, "sqlite: rollback failed: %v", rbErr)
		}
		return err
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit tx")
}

// Contacts

const contactColumns = `id, name, email, company, company_source, title, phone, email_domain, country, country_code, country_source, created_at, updated_at`

func (s *SQLiteStore) GetContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = ?`, email)
	return s.scanContactWithAlts(ctx, row)
}

func (s *SQLiteStore) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ?`, id)
	return s.scanContactWithAlts(ctx, row)
}

func (s *SQLiteStore) CreateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO contacts (name, email, company, company_source, title, phone, email_domain, country, country_code, country_source, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name, c.Email, c.Company, c.CompanySource, c.Title, c.Phone,
		c.EmailDomain, c.Country, c.CountryCode, c.CountrySource, now, now,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert contact %s", c.Email)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return eris.Wrap(err, "sqlite: contact last insert id")
	}
	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now

	for _, alt := range c.AltEmails {
		if err := s.AddContactEmail(ctx, id, alt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) UpdateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	res, err := s.q.ExecContext(ctx,
		`UPDATE contacts SET name = ?, company = ?, company_source = ?, title = ?, phone = ?,
		        email_domain = ?, country = ?, country_code = ?, country_source = ?, updated_at = ?
		 WHERE id = ?`,
		c.Name, c.Company, c.CompanySource, c.Title, c.Phone,
		c.EmailDomain, c.Country, c.CountryCode, c.CountrySource, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update contact %d", c.ID)
	}
	c.UpdatedAt = now
	return checkRowsAffected(res, "contact", fmt.Sprint(c.ID))
}

func (s *SQLiteStore) AddContactEmail(ctx context.Context, contactID int64, email string) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO contact_emails (contact_id, email) VALUES (?, ?)
		 ON CONFLICT (contact_id, email) DO NOTHING`,
		contactID, email,
	)
	return eris.Wrapf(err, "sqlite: add contact email %d", contactID)
}

// ListContacts returns contacts matching the filter, newest first. Alternate
// emails are not populated here; use GetContact for the full record.
func (s *SQLiteStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + qualifiedContactColumns("c") + ` FROM contacts c WHERE 1=1`
	var args []any

	if filter.Company != "" {
		query += ` AND c.company = ?`
		args = append(args, filter.Company)
	}
	if filter.Country != "" {
		query += ` AND c.country_code = ?`
		args = append(args, filter.Country)
	}
	if filter.Category != "" {
		query += ` AND c.id IN (
			SELECT cc.contact_id FROM contact_categories cc
			JOIN categories cat ON cat.id = cc.category_id
			WHERE cat.name = ?)`
		args = append(args, filter.Category)
	}
	if filter.Brand != "" {
		query += ` AND c.id IN (
			SELECT cb.contact_id FROM contact_brands cb
			JOIN brands b ON b.id = cb.brand_id
			WHERE b.name = ?)`
		args = append(args, filter.Brand)
	}
	if filter.Search != "" {
		query += ` AND (c.name LIKE ? OR c.email LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY c.created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += ` LIMIT -1`
		}
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "sqlite: list contacts iterate")
}

// Vocabulary

func (s *SQLiteStore) GetOrCreateCategory(ctx context.Context, name string) (*model.Category, error) {
	id, err := s.getOrCreateNamed(ctx, "categories", name)
	if err != nil {
		return nil, err
	}
	return &model.Category{ID: id, Name: name}, nil
}

func (s *SQLiteStore) GetOrCreateBrand(ctx context.Context, name string) (*model.Brand, error) {
	id, err := s.getOrCreateNamed(ctx, "brands", name)
	if err != nil {
		return nil, err
	}
	return &model.Brand{ID: id, Name: name}, nil
}

func (s *SQLiteStore) getOrCreateNamed(ctx context.Context, table, name string) (int64, error) {
	// Upsert then read back: the insert is a no-op when the name exists.
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO `+table+` (name) VALUES (?) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: upsert %s %s", table, name)
	}
	var id int64
	err = s.q.QueryRowContext(ctx,
		`SELECT id FROM `+table+` WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: select %s %s", table, name)
	}
	return id, nil
}

func (s *SQLiteStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list categories")
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category")
		}
		cats = append(cats, c)
	}
	return cats, eris.Wrap(rows.Err(), "sqlite: list categories iterate")
}

func (s *SQLiteStore) ListBrands(ctx context.Context) ([]model.Brand, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id, name FROM brands ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list brands")
	}
	defer rows.Close()

	var brands []model.Brand
	for rows.Next() {
		var b model.Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brand")
		}
		brands = append(brands, b)
	}
	return brands, eris.Wrap(rows.Err(), "sqlite: list brands iterate")
}

// Classification folds

func (s *SQLiteStore) UpsertContactCategory(ctx context.Context, contactID, categoryID int64, confidence float64) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO contact_categories (contact_id, category_id, confidence) VALUES (?, ?, ?)
		 ON CONFLICT (contact_id, category_id) DO UPDATE
		 SET confidence = MAX(confidence, excluded.confidence)`,
		contactID, categoryID, confidence,
	)
	return eris.Wrapf(err, "sqlite: upsert contact category %d/%d", contactID, categoryID)
}

func (s *SQLiteStore) IncrementContactBrand(ctx context.Context, contactID, brandID int64, mentions int) error {
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO contact_brands (contact_id, brand_id, mention_count) VALUES (?, ?, ?)
		 ON CONFLICT (contact_id, brand_id) DO UPDATE
		 SET mention_count = mention_count + excluded.mention_count`,
		contactID, brandID, mentions,
	)
	return eris.Wrapf(err, "sqlite: increment contact brand %d/%d", contactID, brandID)
}

func (s *SQLiteStore) ListContactCategories(ctx context.Context, contactID int64) ([]model.ContactCategory, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT cc.contact_id, cc.category_id, cat.name, cc.confidence
		 FROM contact_categories cc
		 JOIN categories cat ON cat.id = cc.category_id
		 WHERE cc.contact_id = ?
		 ORDER BY cc.confidence DESC`,
		contactID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contact categories")
	}
	defer rows.Close()

	var out []model.ContactCategory
	for rows.Next() {
		var cc model.ContactCategory
		if err := rows.Scan(&cc.ContactID, &cc.CategoryID, &cc.Category, &cc.Confidence); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact category")
		}
		out = append(out, cc)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list contact categories iterate")
}

func (s *SQLiteStore) ListContactBrands(ctx context.Context, contactID int64) ([]model.ContactBrand, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT cb.contact_id, cb.brand_id, b.name, cb.mention_count
		 FROM contact_brands cb
		 JOIN brands b ON b.id = cb.brand_id
		 WHERE cb.contact_id = ?
		 ORDER BY cb.mention_count DESC`,
		contactID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contact brands")
	}
	defer rows.Close()

	var out []model.ContactBrand
	for rows.Next() {
		var cb model.ContactBrand
		if err := rows.Scan(&cb.ContactID, &cb.BrandID, &cb.Brand, &cb.MentionCount); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact brand")
		}
		out = append(out, cb)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list contact brands iterate")
}

// Processed emails

func (s *SQLiteStore) IsEmailProcessed(ctx context.Context, emailID string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx,
		`SELECT 1 FROM processed_emails WHERE email_id = ?`, emailID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: is email processed %s", emailID)
	}
	return true, nil
}

func (s *SQLiteStore) MarkEmailProcessed(ctx context.Context, rec model.ProcessedEmail) error {
	var cid any
	if rec.ContactID > 0 {
		cid = rec.ContactID
	}
	var received any
	if !rec.ReceivedAt.IsZero() {
		received = rec.ReceivedAt.UTC()
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO processed_emails (email_id, contact_id, subject, from_email, received_at, processed_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (email_id) DO NOTHING`,
		rec.EmailID, cid, rec.Subject, rec.FromEmail, received, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: mark email processed %s", rec.EmailID)
}

// Runs

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.IngestRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO ingest_runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(model.RunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.IngestRun{ID: id, Status: model.RunRunning, StartedAt: now}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, report *model.RunReport) error {
	var fetched, processed, skipped, failed, categorized, deferred int
	var reportJSON any
	if report != nil {
		fetched, processed, skipped, failed = report.Fetched, report.Processed, report.Skipped, report.Failed
		categorized, deferred = report.Categorized, report.Deferred
		data, err := json.Marshal(report)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal run report")
		}
		reportJSON = string(data)
	}
	res, err := s.q.ExecContext(ctx,
		`UPDATE ingest_runs SET status = ?, finished_at = ?,
		        fetched = ?, processed = ?, skipped = ?, failed = ?,
		        categorized = ?, deferred = ?, report = ?
		 WHERE id = ?`,
		string(status), time.Now().UTC(), fetched, processed, skipped, failed,
		categorized, deferred, reportJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, status, started_at, finished_at, fetched, processed, skipped, failed, categorized, deferred
		 FROM ingest_runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var finished sql.NullTime
		if err := rows.Scan(&r.ID, &r.Status, &r.StartedAt, &finished,
			&r.Fetched, &r.Processed, &r.Skipped, &r.Failed,
			&r.Categorized, &r.Deferred); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

// Dead letter queue

func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	emailJSON, err := json.Marshal(entry.Email)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dlq email")
	}

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO dead_letter_queue
		 (id, email, error, error_type, failed_stage, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   error = excluded.error, error_type = excluded.error_type,
		   failed_stage = excluded.failed_stage,
		   retry_count = dead_letter_queue.retry_count + 1,
		   next_retry_at = excluded.next_retry_at, last_failed_at = excluded.last_failed_at`,
		entry.ID, string(emailJSON), entry.Error, entry.ErrorType,
		entry.FailedStage, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, email, error, error_type, failed_stage, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= datetime('now') AND retry_count < max_retries`
	var args []any

	if filter.ErrorType != "" {
		query += ` AND error_type = ?`
		args = append(args, filter.ErrorType)
	}
	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var emailJSON string
		var failedStage sql.NullString
		if err := rows.Scan(&e.ID, &emailJSON, &e.Error, &e.ErrorType,
			&failedStage, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		e.FailedStage = failedStage.String
		if err := json.Unmarshal([]byte(emailJSON), &e.Email); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal dlq email")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: dequeue dlq iterate")
}

func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dlq")
}

func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dlq")
}

// Stats

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM brands),
			(SELECT COUNT(*) FROM processed_emails)`)
	if err := row.Scan(&st.Contacts, &st.Categories, &st.Brands, &st.ProcessedEmails); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats counts")
	}

	rows, err := s.q.QueryContext(ctx, `
		SELECT cat.name, COUNT(cc.contact_id)
		FROM categories cat
		LEFT JOIN contact_categories cc ON cc.category_id = cat.id
		GROUP BY cat.id
		ORDER BY COUNT(cc.contact_id) DESC, cat.name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by category")
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Name, &cc.Contacts); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan category count")
		}
		st.ByCategory = append(st.ByCategory, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by category iterate")
	}

	brandRows, err := s.q.QueryContext(ctx, `
		SELECT b.name, COALESCE(SUM(cb.mention_count), 0)
		FROM brands b
		LEFT JOIN contact_brands cb ON cb.brand_id = b.id
		GROUP BY b.id
		ORDER BY COALESCE(SUM(cb.mention_count), 0) DESC, b.name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by brand")
	}
	defer brandRows.Close()

	for brandRows.Next() {
		var bc BrandCount
		if err := brandRows.Scan(&bc.Name, &bc.Mentions); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan brand count")
		}
		st.ByBrand = append(st.ByBrand, bc)
	}
	if err := brandRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by brand iterate")
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(personalDomains)), ", ")
	args := make([]any, len(personalDomains))
	for i, d := range personalDomains {
		args[i] = d
	}
	domainRows, err := s.q.QueryContext(ctx, `
		SELECT email_domain, COUNT(*)
		FROM contacts
		WHERE email_domain <> '' AND email_domain NOT IN (`+placeholders+`)
		GROUP BY email_domain
		ORDER BY COUNT(*) DESC, email_domain
		LIMIT 25`, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: stats by domain")
	}
	defer domainRows.Close()

	for domainRows.Next() {
		var dc DomainCount
		if err := domainRows.Scan(&dc.Domain, &dc.Contacts); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan domain count")
		}
		st.ByDomain = append(st.ByDomain, dc)
	}
	return &st, eris.Wrap(domainRows.Err(), "sqlite: stats by domain iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func qualifiedContactColumns(alias string) string {
	return alias + ".id, " + alias + ".name, " + alias + ".email, " + alias + ".company, " +
		alias + ".company_source, " + alias + ".title, " + alias + ".phone, " + alias + ".email_domain, " + alias + ".country, " +
		alias + ".country_code, " + alias + ".country_source, " + alias + ".created_at, " + alias + ".updated_at"
}

func scanContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.CompanySource,
		&c.Title, &c.Phone, &c.EmailDomain, &c.Country, &c.CountryCode,
		&c.CountrySource, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan contact")
	}
	return &c, nil
}

func (s *SQLiteStore) scanContactWithAlts(ctx context.Context, row *sql.Row) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.CompanySource,
		&c.Title, &c.Phone, &c.EmailDomain, &c.Country, &c.CountryCode,
		&c.CountrySource, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan contact")
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT email FROM contact_emails WHERE contact_id = ? ORDER BY email`, c.ID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: contact emails")
	}
	defer rows.Close()
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contact email")
		}
		c.AltEmails = append(c.AltEmails, e)
	}
	return &c, eris.Wrap(rows.Err(), "sqlite: contact emails iterate")
}
