// Package resolve finds or creates the Contact a parsed email belongs to and
// merges new fields into it. Matching is by exact normalized primary email;
// there is no fuzzy name matching, a false merge is worse than a missed one.
package resolve

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/extract"
	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/store"
)

// Resolver merges extraction results into contacts.
type Resolver struct {
	st store.Store
}

func New(st store.Store) *Resolver {
	return &Resolver{st: st}
}

// Resolve finds or creates the Contact for res. Fields already populated on
// an existing contact are never overwritten: empty fields fill in, differing
// non-empty fields keep the first-seen value, and differing emails become
// alternates. Returns the resolved contact and whether it was created.
//
// res must already be normalized; Resolve assumes a non-empty Email.
func (r *Resolver) Resolve(ctx context.Context, res model.ExtractionResult) (*model.Contact, bool, error) {
	if res.Email == "" {
		return nil, false, eris.New("resolve: extraction result has no email")
	}

	existing, err := r.st.GetContactByEmail(ctx, res.Email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if err := r.merge(ctx, existing, res); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	contact := contactFromResult(res)
	if err := r.st.CreateContact(ctx, contact); err != nil {
		if !store.IsConflict(err) {
			return nil, false, err
		}
		// Lost an insert race; the row exists now, merge into it.
		existing, lookupErr := r.st.GetContactByEmail(ctx, res.Email)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing == nil {
			return nil, false, eris.Wrapf(err, "resolve: conflict on %s but contact missing", res.Email)
		}
		if err := r.merge(ctx, existing, res); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	zap.L().Debug("resolve: created contact",
		zap.Int64("contact_id", contact.ID),
		zap.String("email", contact.Email),
	)
	return contact, true, nil
}

// merge fills empty fields on c from res and appends new alternate emails.
// Populated fields are left alone, with one exception: a signature-extracted
// company replaces a company that was only guessed from the email domain.
func (r *Resolver) merge(ctx context.Context, c *model.Contact, res model.ExtractionResult) error {
	changed := false
	fill := func(dst *string, src string) {
		if *dst == "" && src != "" {
			*dst = src
			changed = true
		}
	}

	fill(&c.Name, res.Name)
	switch {
	case c.Company == "" && res.Company != "":
		c.Company = res.Company
		c.CompanySource = res.CompanySource
		changed = true
	case res.Company != "" && res.Company != c.Company &&
		res.CompanySource == extract.CompanySourceSignature &&
		c.CompanySource != extract.CompanySourceSignature:
		c.Company = res.Company
		c.CompanySource = res.CompanySource
		changed = true
	}
	fill(&c.Title, res.Title)
	fill(&c.Phone, res.Phone)
	if c.EmailDomain == "" {
		fill(&c.EmailDomain, extract.SecondLevelDomain(c.Email))
	}

	// Country fields travel together so the source label stays truthful.
	if c.CountryCode == "" && res.CountryCode != "" {
		c.Country = res.Country
		c.CountryCode = res.CountryCode
		c.CountrySource = res.CountrySource
		changed = true
	}

	if changed {
		if err := r.st.UpdateContact(ctx, c); err != nil {
			return err
		}
	}

	known := make(map[string]bool, len(c.AltEmails)+1)
	known[c.Email] = true
	for _, e := range c.AltEmails {
		known[e] = true
	}
	for _, alt := range res.AltEmails {
		if alt == "" || known[alt] {
			continue
		}
		if err := r.st.AddContactEmail(ctx, c.ID, alt); err != nil {
			return err
		}
		c.AltEmails = append(c.AltEmails, alt)
		known[alt] = true
	}
	return nil
}

func contactFromResult(res model.ExtractionResult) *model.Contact {
	var alts []string
	for _, alt := range res.AltEmails {
		if alt != "" && alt != res.Email {
			alts = append(alts, alt)
		}
	}
	return &model.Contact{
		Name:          res.Name,
		Email:         res.Email,
		Company:       res.Company,
		CompanySource: res.CompanySource,
		Title:         res.Title,
		Phone:         res.Phone,
		AltEmails:     alts,
		EmailDomain:   extract.SecondLevelDomain(res.Email),
		Country:       res.Country,
		CountryCode:   res.CountryCode,
		CountrySource: res.CountrySource,
	}
}
