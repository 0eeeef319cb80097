package resolve

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsafwan/pr-contacts/internal/extract"
	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/store"
)

func newResolver(t *testing.T) (*Resolver, store.Store) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return New(st), st
}

func TestResolve_CreatesNewContact(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	contact, created, err := r.Resolve(ctx, model.ExtractionResult{
		Name:    "Jane Doe",
		Email:   "jane@acme.com",
		Company: "Acme Pr",
		Title:   "Senior Manager",
		Phone:   "+15551234567",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotZero(t, contact.ID)
	assert.Equal(t, "acme.com", contact.EmailDomain)
}

func TestResolve_NoEmail(t *testing.T) {
	r, _ := newResolver(t)

	_, _, err := r.Resolve(context.Background(), model.ExtractionResult{Name: "Jane Doe"})
	require.Error(t, err)
}

func TestResolve_FillsEmptyFieldsOnly(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	first, created, err := r.Resolve(ctx, model.ExtractionResult{
		Name:  "Jane Doe",
		Email: "jane@acme.com",
	})
	require.NoError(t, err)
	require.True(t, created)

	// Second sighting fills company/title but must not rename.
	second, created, err := r.Resolve(ctx, model.ExtractionResult{
		Name:    "J. Doe",
		Email:   "jane@acme.com",
		Company: "Acme Pr",
		Title:   "Senior Manager",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Jane Doe", second.Name)
	assert.Equal(t, "Acme Pr", second.Company)
	assert.Equal(t, "Senior Manager", second.Title)

	stored, err := st.GetContact(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", stored.Name)
	assert.Equal(t, "Acme Pr", stored.Company)
}

func TestResolve_ConflictingFieldsKeepFirstSeen(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	_, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:   "jane@acme.com",
		Company: "Acme Pr",
		Phone:   "+15551234567",
	})
	require.NoError(t, err)

	contact, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:   "jane@acme.com",
		Company: "Totally Different Agency",
		Phone:   "+15559999999",
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Pr", contact.Company)
	assert.Equal(t, "+15551234567", contact.Phone)
}

func TestResolve_SignatureCompanyReplacesDomainGuess(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	// First email carried no signature; the company is only a domain guess.
	first, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:         "jane@acme.com",
		Company:       "Acme",
		CompanySource: extract.CompanySourceDomain,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme", first.Company)

	second, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:         "jane@acme.com",
		Company:       "Acme PR",
		CompanySource: extract.CompanySourceSignature,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme PR", second.Company)
	assert.Equal(t, extract.CompanySourceSignature, second.CompanySource)

	stored, err := st.GetContactByEmail(ctx, "jane@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "Acme PR", stored.Company)
	assert.Equal(t, extract.CompanySourceSignature, stored.CompanySource)
}

func TestResolve_DomainGuessNeverReplacesSignatureCompany(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	_, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:         "jane@acme.com",
		Company:       "Acme PR",
		CompanySource: extract.CompanySourceSignature,
	})
	require.NoError(t, err)

	contact, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:         "jane@acme.com",
		Company:       "Acme",
		CompanySource: extract.CompanySourceDomain,
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme PR", contact.Company)
	assert.Equal(t, extract.CompanySourceSignature, contact.CompanySource)
}

func TestResolve_EmailDomainIsRegistrable(t *testing.T) {
	r, _ := newResolver(t)

	contact, _, err := r.Resolve(context.Background(), model.ExtractionResult{
		Email: "jane@pr.acme.co.uk",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme.co.uk", contact.EmailDomain)
}

func TestResolve_AlternateEmailsAccumulate(t *testing.T) {
	r, st := newResolver(t)
	ctx := context.Background()

	contact, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:     "jane@acme.com",
		AltEmails: []string{"jane.doe@gmail.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"jane.doe@gmail.com"}, contact.AltEmails)

	contact, _, err = r.Resolve(ctx, model.ExtractionResult{
		Email:     "jane@acme.com",
		AltEmails: []string{"jane.doe@gmail.com", "jdoe@acmegroup.com"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"jane.doe@gmail.com", "jdoe@acmegroup.com"}, contact.AltEmails)

	stored, err := st.GetContact(ctx, contact.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"jane.doe@gmail.com", "jdoe@acmegroup.com"}, stored.AltEmails)
}

func TestResolve_PrimaryNeverBecomesAlternate(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	contact, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:     "jane@acme.com",
		AltEmails: []string{"jane@acme.com", "other@acme.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"other@acme.com"}, contact.AltEmails)
}

func TestResolve_CountryFieldsTravelTogether(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	_, _, err := r.Resolve(ctx, model.ExtractionResult{Email: "jane@acme.com"})
	require.NoError(t, err)

	contact, _, err := r.Resolve(ctx, model.ExtractionResult{
		Email:         "jane@acme.com",
		Country:       "United States",
		CountryCode:   "US",
		CountrySource: "phone_code",
	})
	require.NoError(t, err)
	assert.Equal(t, "US", contact.CountryCode)
	assert.Equal(t, "phone_code", contact.CountrySource)

	// A later weaker detection must not replace the recorded one.
	contact, _, err = r.Resolve(ctx, model.ExtractionResult{
		Email:         "jane@acme.com",
		Country:       "United Kingdom",
		CountryCode:   "GB",
		CountrySource: "tld",
	})
	require.NoError(t, err)
	assert.Equal(t, "US", contact.CountryCode)
	assert.Equal(t, "phone_code", contact.CountrySource)
}
