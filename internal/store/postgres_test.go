package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsafwan/pr-contacts/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestDefaultPoolConfig(t *testing.T) {
	cfg := DefaultPoolConfig()
	assert.Equal(t, int32(10), cfg.MaxConns)
	assert.Equal(t, int32(2), cfg.MinConns)
}

func TestPostgresStore_GetContactByEmail_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE email = \$1`).
		WithArgs("nobody@nowhere.com").
		WillReturnError(pgx.ErrNoRows)

	got, err := s.GetContactByEmail(context.Background(), "nobody@nowhere.com")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetContactByEmail_WithAltEmails(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM contacts WHERE email = \$1`).
		WithArgs("jane@acme.com").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "email", "company", "company_source", "title", "phone",
			"email_domain", "country", "country_code", "country_source",
			"created_at", "updated_at",
		}).AddRow(int64(7), "Jane Doe", "jane@acme.com", "Acme Pr", "signature", "Senior Manager", "+15551234567",
			"acme.com", "United States", "US", "phone_code", now, now))

	mock.ExpectQuery(`SELECT email FROM contact_emails WHERE contact_id = \$1`).
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"email"}).AddRow("jane.doe@gmail.com"))

	got, err := s.GetContactByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.ID)
	assert.Equal(t, "Jane Doe", got.Name)
	assert.Equal(t, []string{"jane.doe@gmail.com"}, got.AltEmails)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateContact_ReturnsID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO contacts`).
		WithArgs("", "jane@acme.com", "", "", "", "", "", "", "", "",
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(12)))

	c := &model.Contact{Email: "jane@acme.com"}
	require.NoError(t, s.CreateContact(context.Background(), c))
	assert.Equal(t, int64(12), c.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpsertContactCategory_Greatest(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(contact_id, category_id\) DO UPDATE`).
		WithArgs(int64(1), int64(2), 0.9).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.UpsertContactCategory(context.Background(), 1, 2, 0.9)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IncrementContactBrand(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`mention_count \+ EXCLUDED\.mention_count`).
		WithArgs(int64(1), int64(3), 4).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.IncrementContactBrand(context.Background(), 1, 3, 4)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_IsEmailProcessed(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM processed_emails`).
		WithArgs("msg-1").
		WillReturnError(pgx.ErrNoRows)

	processed, err := s.IsEmailProcessed(context.Background(), "msg-1")
	require.NoError(t, err)
	assert.False(t, processed)

	mock.ExpectQuery(`SELECT 1 FROM processed_emails`).
		WithArgs("msg-2").
		WillReturnRows(pgxmock.NewRows([]string{"?column?"}).AddRow(1))

	processed, err = s.IsEmailProcessed(context.Background(), "msg-2")
	require.NoError(t, err)
	assert.True(t, processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_MarkEmailProcessed_Conflict(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`ON CONFLICT \(email_id\) DO NOTHING`).
		WithArgs("msg-1", int64(7), "Hello", "", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	err := s.MarkEmailProcessed(context.Background(), model.ProcessedEmail{EmailID: "msg-1", ContactID: 7, Subject: "Hello"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FinishRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE ingest_runs SET`).
		WithArgs("failed", pgxmock.AnyArg(), 0, 0, 0, 0, 0, 0,
			pgxmock.AnyArg(), "no-such-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.FinishRun(context.Background(), "no-such-run", model.RunFailed, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_WithTx_CommitAndRollback(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO contact_emails`).
		WithArgs(int64(7), "jane.doe@gmail.com").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.WithTx(ctx, func(tx Store) error {
		return tx.AddContactEmail(ctx, 7, "jane.doe@gmail.com")
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO contact_emails`).
		WithArgs(int64(7), "other@acme.com").
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err = s.WithTx(ctx, func(tx Store) error {
		return tx.AddContactEmail(ctx, 7, "other@acme.com")
	})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
