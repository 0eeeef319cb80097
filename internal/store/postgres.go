package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/resilience"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it,
// which is how the postgres backend is tested without a database.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// querier is the query surface shared by Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool Pool // nil for a transactional view
	q    querier
}

// PoolConfig tunes the pgx pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// DefaultPoolConfig is sized for a single-process ingest pipeline.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxConns: 10, MinConns: 2}
}

// NewPostgres connects to Postgres and pings the pool.
func NewPostgres(ctx context.Context, dsn string, cfg PoolConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse dsn")
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, q: pool}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool, q: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS contacts (
	id             BIGSERIAL PRIMARY KEY,
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
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS contact_emails (
	contact_id BIGINT NOT NULL REFERENCES contacts(id),
	email      TEXT NOT NULL,
	PRIMARY KEY (contact_id, email)
);

CREATE TABLE IF NOT EXISTS categories (
	id          BIGSERIAL PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS brands (
	id   BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS contact_categories (
	contact_id  BIGINT NOT NULL REFERENCES contacts(id),
	category_id BIGINT NOT NULL REFERENCES categories(id),
	confidence  DOUBLE PRECISION NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, category_id)
);

CREATE TABLE IF NOT EXISTS contact_brands (
	contact_id    BIGINT NOT NULL REFERENCES contacts(id),
	brand_id      BIGINT NOT NULL REFERENCES brands(id),
	mention_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (contact_id, brand_id)
);

CREATE TABLE IF NOT EXISTS processed_emails (
	email_id     TEXT PRIMARY KEY,
	contact_id   BIGINT,
	subject      TEXT NOT NULL DEFAULT '',
	from_email   TEXT NOT NULL DEFAULT '',
	received_at  TIMESTAMPTZ,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS ingest_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ,
	fetched     INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	categorized INTEGER NOT NULL DEFAULT 0,
	deferred    INTEGER NOT NULL DEFAULT 0,
	report      JSONB
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	email          JSONB NOT NULL,
	error          TEXT NOT NULL,
	error_type     TEXT NOT NULL DEFAULT 'transient',
	failed_stage   TEXT,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  TIMESTAMPTZ NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	last_failed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_contacts_company ON contacts(company);
CREATE INDEX IF NOT EXISTS idx_contacts_domain ON contacts(email_domain);
CREATE INDEX IF NOT EXISTS idx_contact_categories_category ON contact_categories(category_id);
CREATE INDEX IF NOT EXISTS idx_contact_brands_brand ON contact_brands(brand_id);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.q.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// WithTx runs fn in a transaction. Calling WithTx on a transactional view
// just runs fn in the enclosing transaction.
func (s *PostgresStore) WithTx(ctx context.Context, fn func(Store) error) error {
	if s.pool == nil {
		return fn(s)
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin tx")
	}
	if err := fn(&PostgresStore{q: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return eris.Wrapf(err, "postgres: rollback failed: %v", rbErr)
		}
		return err
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit tx")
}

// Contacts

func (s *PostgresStore) GetContactByEmail(ctx context.Context, email string) (*model.Contact, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE email = $1`, email)
	return s.pgScanContactWithAlts(ctx, row)
}

func (s *PostgresStore) GetContact(ctx context.Context, id int64) (*model.Contact, error) {
	row := s.q.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id)
	return s.pgScanContactWithAlts(ctx, row)
}

func (s *PostgresStore) CreateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	err := s.q.QueryRow(ctx,
		`INSERT INTO contacts (name, email, company, company_source, title, phone, email_domain, country, country_code, country_source, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id`,
		c.Name, c.Email, c.Company, c.CompanySource, c.Title, c.Phone,
		c.EmailDomain, c.Country, c.CountryCode, c.CountrySource, now, now,
	).Scan(&c.ID)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert contact %s", c.Email)
	}
	c.CreatedAt = now
	c.UpdatedAt = now

	for _, alt := range c.AltEmails {
		if err := s.AddContactEmail(ctx, c.ID, alt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) UpdateContact(ctx context.Context, c *model.Contact) error {
	now := time.Now().UTC()
	tag, err := s.q.Exec(ctx,
		`UPDATE contacts SET name = $1, company = $2, company_source = $3, title = $4, phone = $5,
		        email_domain = $6, country = $7, country_code = $8, country_source = $9, updated_at = $10
		 WHERE id = $11`,
		c.Name, c.Company, c.CompanySource, c.Title, c.Phone,
		c.EmailDomain, c.Country, c.CountryCode, c.CountrySource, now, c.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update contact %d", c.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("contact not found: %d", c.ID)
	}
	c.UpdatedAt = now
	return nil
}

func (s *PostgresStore) AddContactEmail(ctx context.Context, contactID int64, email string) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO contact_emails (contact_id, email) VALUES ($1, $2)
		 ON CONFLICT (contact_id, email) DO NOTHING`,
		contactID, email,
	)
	return eris.Wrapf(err, "postgres: add contact email %d", contactID)
}

// ListContacts returns contacts matching the filter, newest first. Alternate
// emails are not populated here; use GetContact for the full record.
func (s *PostgresStore) ListContacts(ctx context.Context, filter ContactFilter) ([]model.Contact, error) {
	query := `SELECT ` + qualifiedContactColumns("c") + ` FROM contacts c WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Company != "" {
		query += ` AND c.company = ` + arg(filter.Company)
	}
	if filter.Country != "" {
		query += ` AND c.country_code = ` + arg(filter.Country)
	}
	if filter.Category != "" {
		query += ` AND c.id IN (
			SELECT cc.contact_id FROM contact_categories cc
			JOIN categories cat ON cat.id = cc.category_id
			WHERE cat.name = ` + arg(filter.Category) + `)`
	}
	if filter.Brand != "" {
		query += ` AND c.id IN (
			SELECT cb.contact_id FROM contact_brands cb
			JOIN brands b ON b.id = cb.brand_id
			WHERE b.name = ` + arg(filter.Brand) + `)`
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query += ` AND (c.name ILIKE ` + arg(pattern) + ` OR c.email ILIKE ` + arg(pattern) + `)`
	}
	query += ` ORDER BY c.created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ` + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contacts")
	}
	defer rows.Close()

	var contacts []model.Contact
	for rows.Next() {
		c, err := pgScanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, eris.Wrap(rows.Err(), "postgres: list contacts iterate")
}

// Vocabulary

func (s *PostgresStore) GetOrCreateCategory(ctx context.Context, name string) (*model.Category, error) {
	id, err := s.pgGetOrCreateNamed(ctx, "categories", name)
	if err != nil {
		return nil, err
	}
	return &model.Category{ID: id, Name: name}, nil
}

func (s *PostgresStore) GetOrCreateBrand(ctx context.Context, name string) (*model.Brand, error) {
	id, err := s.pgGetOrCreateNamed(ctx, "brands", name)
	if err != nil {
		return nil, err
	}
	return &model.Brand{ID: id, Name: name}, nil
}

func (s *PostgresStore) pgGetOrCreateNamed(ctx context.Context, table, name string) (int64, error) {
	_, err := s.q.Exec(ctx,
		`INSERT INTO `+table+` (name) VALUES ($1) ON CONFLICT (name) DO NOTHING`, name)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: upsert %s %s", table, name)
	}
	var id int64
	err = s.q.QueryRow(ctx,
		`SELECT id FROM `+table+` WHERE name = $1`, name).Scan(&id)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: select %s %s", table, name)
	}
	return id, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name, description FROM categories ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list categories")
	}
	defer rows.Close()

	var cats []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Description); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category")
		}
		cats = append(cats, c)
	}
	return cats, eris.Wrap(rows.Err(), "postgres: list categories iterate")
}

func (s *PostgresStore) ListBrands(ctx context.Context) ([]model.Brand, error) {
	rows, err := s.q.Query(ctx, `SELECT id, name FROM brands ORDER BY name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list brands")
	}
	defer rows.Close()

	var brands []model.Brand
	for rows.Next() {
		var b model.Brand
		if err := rows.Scan(&b.ID, &b.Name); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand")
		}
		brands = append(brands, b)
	}
	return brands, eris.Wrap(rows.Err(), "postgres: list brands iterate")
}

// Classification folds

func (s *PostgresStore) UpsertContactCategory(ctx context.Context, contactID, categoryID int64, confidence float64) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO contact_categories (contact_id, category_id, confidence) VALUES ($1, $2, $3)
		 ON CONFLICT (contact_id, category_id) DO UPDATE
		 SET confidence = GREATEST(contact_categories.confidence, EXCLUDED.confidence)`,
		contactID, categoryID, confidence,
	)
	return eris.Wrapf(err, "postgres: upsert contact category %d/%d", contactID, categoryID)
}

func (s *PostgresStore) IncrementContactBrand(ctx context.Context, contactID, brandID int64, mentions int) error {
	_, err := s.q.Exec(ctx,
		`INSERT INTO contact_brands (contact_id, brand_id, mention_count) VALUES ($1, $2, $3)
		 ON CONFLICT (contact_id, brand_id) DO UPDATE
		 SET mention_count = contact_brands.mention_count + EXCLUDED.mention_count`,
		contactID, brandID, mentions,
	)
	return eris.Wrapf(err, "postgres: increment contact brand %d/%d", contactID, brandID)
}

func (s *PostgresStore) ListContactCategories(ctx context.Context, contactID int64) ([]model.ContactCategory, error) {
	rows, err := s.q.Query(ctx,
		`SELECT cc.contact_id, cc.category_id, cat.name, cc.confidence
		 FROM contact_categories cc
		 JOIN categories cat ON cat.id = cc.category_id
		 WHERE cc.contact_id = $1
		 ORDER BY cc.confidence DESC`,
		contactID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contact categories")
	}
	defer rows.Close()

	var out []model.ContactCategory
	for rows.Next() {
		var cc model.ContactCategory
		if err := rows.Scan(&cc.ContactID, &cc.CategoryID, &cc.Category, &cc.Confidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact category")
		}
		out = append(out, cc)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list contact categories iterate")
}

func (s *PostgresStore) ListContactBrands(ctx context.Context, contactID int64) ([]model.ContactBrand, error) {
	rows, err := s.q.Query(ctx,
		`SELECT cb.contact_id, cb.brand_id, b.name, cb.mention_count
		 FROM contact_brands cb
		 JOIN brands b ON b.id = cb.brand_id
		 WHERE cb.contact_id = $1
		 ORDER BY cb.mention_count DESC`,
		contactID,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contact brands")
	}
	defer rows.Close()

	var out []model.ContactBrand
	for rows.Next() {
		var cb model.ContactBrand
		if err := rows.Scan(&cb.ContactID, &cb.BrandID, &cb.Brand, &cb.MentionCount); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact brand")
		}
		out = append(out, cb)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list contact brands iterate")
}

// Processed emails

func (s *PostgresStore) IsEmailProcessed(ctx context.Context, emailID string) (bool, error) {
	var one int
	err := s.q.QueryRow(ctx,
		`SELECT 1 FROM processed_emails WHERE email_id = $1`, emailID).Scan(&one)
	if err == pgx.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "postgres: is email processed %s", emailID)
	}
	return true, nil
}

func (s *PostgresStore) MarkEmailProcessed(ctx context.Context, rec model.ProcessedEmail) error {
	var cid any
	if rec.ContactID > 0 {
		cid = rec.ContactID
	}
	var received any
	if !rec.ReceivedAt.IsZero() {
		received = rec.ReceivedAt.UTC()
	}
	_, err := s.q.Exec(ctx,
		`INSERT INTO processed_emails (email_id, contact_id, subject, from_email, received_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (email_id) DO NOTHING`,
		rec.EmailID, cid, rec.Subject, rec.FromEmail, received, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: mark email processed %s", rec.EmailID)
}

// Runs

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.IngestRun, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.q.Exec(ctx,
		`INSERT INTO ingest_runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, string(model.RunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.IngestRun{ID: id, Status: model.RunRunning, StartedAt: now}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, report *model.RunReport) error {
	var fetched, processed, skipped, failed, categorized, deferred int
	var reportJSON any
	if report != nil {
		fetched, processed, skipped, failed = report.Fetched, report.Processed, report.Skipped, report.Failed
		categorized, deferred = report.Categorized, report.Deferred
		data, err := json.Marshal(report)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal run report")
		}
		reportJSON = data
	}
	tag, err := s.q.Exec(ctx,
		`UPDATE ingest_runs SET status = $1, finished_at = $2,
		        fetched = $3, processed = $4, skipped = $5, failed = $6,
		        categorized = $7, deferred = $8, report = $9
		 WHERE id = $10`,
		string(status), time.Now().UTC(), fetched, processed, skipped, failed,
		categorized, deferred, reportJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.IngestRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.q.Query(ctx,
		`SELECT id, status, started_at, finished_at, fetched, processed, skipped, failed, categorized, deferred
		 FROM ingest_runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.IngestRun
	for rows.Next() {
		var r model.IngestRun
		var finished *time.Time
		if err := rows.Scan(&r.ID, &r.Status, &r.StartedAt, &finished,
			&r.Fetched, &r.Processed, &r.Skipped, &r.Failed,
			&r.Categorized, &r.Deferred); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if finished != nil {
			r.FinishedAt = *finished
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// Dead letter queue

func (s *PostgresStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	emailJSON, err := json.Marshal(entry.Email)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal dlq email")
	}

	_, err = s.q.Exec(ctx,
		`INSERT INTO dead_letter_queue
		 (id, email, error, error_type, failed_stage, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   error = EXCLUDED.error, error_type = EXCLUDED.error_type,
		   failed_stage = EXCLUDED.failed_stage,
		   retry_count = dead_letter_queue.retry_count + 1,
		   next_retry_at = EXCLUDED.next_retry_at, last_failed_at = EXCLUDED.last_failed_at`,
		entry.ID, string(emailJSON), entry.Error, entry.ErrorType,
		entry.FailedStage, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt, entry.CreatedAt, entry.LastFailedAt,
	)
	return eris.Wrap(err, "postgres: enqueue dlq")
}

func (s *PostgresStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	query := `SELECT id, email, error, error_type, failed_stage, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= now() AND retry_count < max_retries`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ErrorType != "" {
		query += ` AND error_type = ` + arg(filter.ErrorType)
	}
	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: dequeue dlq")
	}
	defer rows.Close()

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var emailJSON []byte
		var failedStage *string
		if err := rows.Scan(&e.ID, &emailJSON, &e.Error, &e.ErrorType,
			&failedStage, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan dlq entry")
		}
		if failedStage != nil {
			e.FailedStage = *failedStage
		}
		if err := json.Unmarshal(emailJSON, &e.Email); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal dlq email")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: dequeue dlq iterate")
}

func (s *PostgresStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM dead_letter_queue WHERE id = $1`, id)
	return eris.Wrap(err, "postgres: remove dlq")
}

func (s *PostgresStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "postgres: count dlq")
}

// Stats

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	row := s.q.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM contacts),
			(SELECT COUNT(*) FROM categories),
			(SELECT COUNT(*) FROM brands),
			(SELECT COUNT(*) FROM processed_emails)`)
	if err := row.Scan(&st.Contacts, &st.Categories, &st.Brands, &st.ProcessedEmails); err != nil {
		return nil, eris.Wrap(err, "postgres: stats counts")
	}

	rows, err := s.q.Query(ctx, `
		SELECT cat.name, COUNT(cc.contact_id)
		FROM categories cat
		LEFT JOIN contact_categories cc ON cc.category_id = cat.id
		GROUP BY cat.id, cat.name
		ORDER BY COUNT(cc.contact_id) DESC, cat.name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by category")
	}
	defer rows.Close()

	for rows.Next() {
		var cc CategoryCount
		if err := rows.Scan(&cc.Name, &cc.Contacts); err != nil {
			return nil, eris.Wrap(err, "postgres: scan category count")
		}
		st.ByCategory = append(st.ByCategory, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats by category iterate")
	}

	brandRows, err := s.q.Query(ctx, `
		SELECT b.name, COALESCE(SUM(cb.mention_count), 0)
		FROM brands b
		LEFT JOIN contact_brands cb ON cb.brand_id = b.id
		GROUP BY b.id, b.name
		ORDER BY COALESCE(SUM(cb.mention_count), 0) DESC, b.name`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by brand")
	}
	defer brandRows.Close()

	for brandRows.Next() {
		var bc BrandCount
		if err := brandRows.Scan(&bc.Name, &bc.Mentions); err != nil {
			return nil, eris.Wrap(err, "postgres: scan brand count")
		}
		st.ByBrand = append(st.ByBrand, bc)
	}
	if err := brandRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats by brand iterate")
	}

	domainRows, err := s.q.Query(ctx, `
		SELECT email_domain, COUNT(*)
		FROM contacts
		WHERE email_domain <> '' AND NOT (email_domain = ANY($1))
		GROUP BY email_domain
		ORDER BY COUNT(*) DESC, email_domain
		LIMIT 25`, personalDomains)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: stats by domain")
	}
	defer domainRows.Close()

	for domainRows.Next() {
		var dc DomainCount
		if err := domainRows.Scan(&dc.Domain, &dc.Contacts); err != nil {
			return nil, eris.Wrap(err, "postgres: scan domain count")
		}
		st.ByDomain = append(st.ByDomain, dc)
	}
	return &st, eris.Wrap(domainRows.Err(), "postgres: stats by domain iterate")
}

// helpers

func pgScanContact(row scannable) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.CompanySource,
		&c.Title, &c.Phone, &c.EmailDomain, &c.Country, &c.CountryCode,
		&c.CountrySource, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan contact")
	}
	return &c, nil
}

func (s *PostgresStore) pgScanContactWithAlts(ctx context.Context, row pgx.Row) (*model.Contact, error) {
	var c model.Contact
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Company, &c.CompanySource,
		&c.Title, &c.Phone, &c.EmailDomain, &c.Country, &c.CountryCode,
		&c.CountrySource, &c.CreatedAt, &c.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan contact")
	}

	rows, err := s.q.Query(ctx,
		`SELECT email FROM contact_emails WHERE contact_id = $1 ORDER BY email`, c.ID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: contact emails")
	}
	defer rows.Close()
	for rows.Next() {
		var e string
		if err := rows.Scan(&e); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contact email")
		}
		c.AltEmails = append(c.AltEmails, e)
	}
	return &c, eris.Wrap(rows.Err(), "postgres: contact emails iterate")
}
