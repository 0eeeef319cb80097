package extract

import (
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/model"
)

// Extractor runs the header and signature parsers over a raw email and fills
// in domain-derived hints. It is stateless and safe for concurrent use.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract builds an ExtractionResult from one email. Header fields win over
// signature fields; the signature only fills what the header left empty.
// Never fails: unparseable input yields an empty result.
func (e *Extractor) Extract(email model.RawEmail) model.ExtractionResult {
	res := model.ExtractionResult{SourceEmailID: email.ID}

	// Header first.
	if email.FromEmail != "" {
		res.Name = CleanName(email.FromName)
		res.Email = email.FromEmail
		if res.Name == "" {
			res.Name = nameFromLocalPart(res.Email)
		}
	} else {
		res.Name, res.Email = ParseFromHeader(email.FromHeader)
	}

	// Signature block.
	var block string
	if email.Body != "" {
		block = SignatureBlock(email.Body)
		sig := ParseSignature(block, res.Email)

		if res.Name == "" {
			res.Name = sig.Name
		}
		res.Title = sig.Title
		res.Company = sig.Company
		res.Phone = sig.Phone
		res.AltEmails = sig.AltEmails
		if res.Company != "" {
			res.CompanySource = CompanySourceSignature
		}
	}

	// Domain fallback for company.
	if res.Company == "" {
		if company, source := CompanyFromEmail(res.Email); company != "" {
			res.Company = company
			res.CompanySource = source
			zap.L().Debug("company resolved from domain",
				zap.String("email", res.Email),
				zap.String("company", company),
				zap.String("source", source))
		}
	}

	res.Country, res.CountryCode, res.CountrySource = DetectCountry(res.Phone, res.Email, block)

	return res
}
