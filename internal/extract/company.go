package extract

import (
	"sort"
	"strings"
)

// Company resolution sources, in decreasing accuracy. A signature-extracted
// company always wins over a domain-derived guess.
const (
	CompanySourceSignature   = "signature"
	CompanySourceKnownDomain = "known_domain"
	CompanySourceDomain      = "domain_formatted"
)

// knownDomains maps email domains to canonical company names. Subdomains
// resolve through their parent (mena.bursonglobal.com -> Burson Global).
var knownDomains = map[string]string{
	// Global PR agencies
	"edelman.com":          "Edelman",
	"bursonglobal.com":     "Burson Global",
	"webershandwick.com":   "Weber Shandwick",
	"golin.com":            "Golin",
	"fleishman.com":        "FleishmanHillard",
	"fleishmanhillard.com": "FleishmanHillard",
	"hillandknowlton.com":  "Hill & Knowlton",
	"hkstrategies.com":     "H+K Strategies",
	"ketchum.com":          "Ketchum",
	"mslgroup.com":         "MSL Group",
	"ogilvy.com":           "Ogilvy",
	"ogilvypr.com":         "Ogilvy PR",
	"bcw-global.com":       "BCW Global",
	"cohnwolfe.com":        "Cohn & Wolfe",
	"prweek.com":           "PRWeek",
	"teamlewis.com":        "TEAM LEWIS",
	"currentglobal.com":    "Current Global",
	"redhavas.com":         "Red Havas",
	"havas.com":            "Havas",
	"havaspr.com":          "Havas PR",
	"ruderfinn.com":        "Ruder Finn",
	"ruderfinninc.com":     "Ruder Finn",
	"icrinc.com":           "ICR",
	"fticonsulting.com":    "FTI Consulting",
	"brunswickgroup.com":   "Brunswick Group",
	"finsbury.com":         "Finsbury",
	"prosek.com":           "Prosek Partners",
	"joelefrank.com":       "Joele Frank",
	"teneo.com":            "Teneo",
	"publicisgroupe.com":   "Publicis Groupe",
	"mccann.com":           "McCann",
	"wpp.com":              "WPP",
	"omnicomgroup.com":     "Omnicom Group",
	"interpublic.com":      "Interpublic Group",
	"dentsu.com":           "Dentsu",
	"cision.com":           "Cision",

	// Middle East PR agencies
	"brazenmena.com":         "Brazen MENA",
	"gambit.ae":              "Gambit Communications",
	"jspr.ae":                "JS PR",
	"activedmc.com":          "Active DMC",
	"matrixpr.ae":            "Matrix PR",
	"actionprgroup.com":      "Action PR Group",
	"actionglobalcomms.com":  "Action Global Communications",
	"fourcommunications.com": "Four Communications",
	"sevenmedia.ae":          "Seven Media",
	"asdaa-bcw.com":          "Asda'a BCW",
	"traccs.net":             "TRACCS",
	"w7worldwide.com":        "W7Worldwide",
	"watermelon.ae":          "Watermelon Communications",
	"houseofcomms.com":       "House of Comms",
	"theqode.com":            "The Qode",
	"katchthis.com":          "Katch Communications",

	// Tech
	"google.com":     "Google",
	"microsoft.com":  "Microsoft",
	"apple.com":      "Apple",
	"amazon.com":     "Amazon",
	"meta.com":       "Meta",
	"facebook.com":   "Meta",
	"netflix.com":    "Netflix",
	"salesforce.com": "Salesforce",
	"oracle.com":     "Oracle",
	"ibm.com":        "IBM",
	"intel.com":      "Intel",
	"nvidia.com":     "NVIDIA",
	"adobe.com":      "Adobe",
	"cisco.com":      "Cisco",
	"samsung.com":    "Samsung",
	"huawei.com":     "Huawei",
	"dell.com":       "Dell",
	"hp.com":         "HP",
	"lenovo.com":     "Lenovo",

	// Hospitality and travel
	"marriott.com":     "Marriott International",
	"hilton.com":       "Hilton",
	"ihg.com":          "IHG Hotels & Resorts",
	"accor.com":        "Accor",
	"hyatt.com":        "Hyatt",
	"fourseasons.com":  "Four Seasons",
	"ritzcarlton.com":  "The Ritz-Carlton",
	"emirates.com":     "Emirates",
	"etihad.ae":        "Etihad Airways",
	"qatarairways.com": "Qatar Airways",
	"flydubai.com":     "flydubai",

	// Automotive
	"bmw.com":           "BMW",
	"mercedes-benz.com": "Mercedes-Benz",
	"audi.com":          "Audi",
	"volkswagen.com":    "Volkswagen",
	"toyota.com":        "Toyota",
	"honda.com":         "Honda",
	"nissan.com":        "Nissan",
	"ford.com":          "Ford",
	"gm.com":            "General Motors",
	"tesla.com":         "Tesla",
	"porsche.com":       "Porsche",
	"ferrari.com":       "Ferrari",
	"landrover.com":     "Land Rover",

	// Finance
	"jpmorgan.com":        "JP Morgan",
	"goldmansachs.com":    "Goldman Sachs",
	"morganstanley.com":   "Morgan Stanley",
	"bankofamerica.com":   "Bank of America",
	"citi.com":            "Citi",
	"hsbc.com":            "HSBC",
	"barclays.com":        "Barclays",
	"deutschebank.com":    "Deutsche Bank",
	"ubs.com":             "UBS",
	"visa.com":            "Visa",
	"mastercard.com":      "Mastercard",
	"americanexpress.com": "American Express",
	"paypal.com":          "PayPal",
}

// personalDomains are consumer mail providers that never identify a company.
var personalDomains = map[string]struct{}{
	"gmail.com": {}, "googlemail.com": {}, "yahoo.com": {}, "hotmail.com": {},
	"outlook.com": {}, "aol.com": {}, "icloud.com": {}, "me.com": {},
	"mac.com": {}, "live.com": {}, "msn.com": {}, "protonmail.com": {},
	"proton.me": {}, "zoho.com": {}, "yandex.com": {}, "mail.com": {},
	"gmx.com": {}, "inbox.com": {},
}

// PersonalDomains returns the consumer provider list in sorted order, for
// callers that need it as a set of values (e.g. SQL exclusion lists).
func PersonalDomains() []string {
	out := make([]string, 0, len(personalDomains))
	for d := range personalDomains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

var compoundTLDSeconds = map[string]struct{}{
	"co": {}, "com": {}, "org": {}, "net": {}, "gov": {}, "edu": {}, "ac": {},
}

// CompanyFromEmail guesses the sender's company from their email domain.
// Known domains map to canonical names; anything else falls back to a
// title-cased rendering of the domain. Personal providers return ("", "").
func CompanyFromEmail(email string) (company, source string) {
	domain := emailDomain(email)
	if domain == "" {
		return "", ""
	}
	if _, ok := personalDomains[domain]; ok {
		return "", ""
	}

	if name, ok := lookupKnownDomain(domain); ok {
		return name, CompanySourceKnownDomain
	}

	if name := formatDomainAsCompany(domain); name != "" {
		return name, CompanySourceDomain
	}
	return "", ""
}

// SecondLevelDomain extracts the registrable domain from an email address
// for grouping, handling compound TLDs (jane@pr.acme.co.uk -> acme.co.uk).
func SecondLevelDomain(email string) string {
	domain := emailDomain(email)
	if domain == "" {
		return ""
	}
	parts := strings.Split(domain, ".")
	if len(parts) < 2 {
		return domain
	}
	if len(parts) >= 3 {
		if _, ok := compoundTLDSeconds[parts[len(parts)-2]]; ok {
			return strings.Join(parts[len(parts)-3:], ".")
		}
	}
	return strings.Join(parts[len(parts)-2:], ".")
}

// IsPersonalDomain reports whether the email belongs to a consumer provider.
func IsPersonalDomain(email string) bool {
	_, ok := personalDomains[emailDomain(email)]
	return ok
}

func emailDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(domain))
}

func lookupKnownDomain(domain string) (string, bool) {
	if name, ok := knownDomains[domain]; ok {
		return name, true
	}
	// Walk up subdomains: mena.bursonglobal.com -> bursonglobal.com.
	parts := strings.Split(domain, ".")
	for i := 1; i < len(parts)-1; i++ {
		if name, ok := knownDomains[strings.Join(parts[i:], ".")]; ok {
			return name, true
		}
	}
	return "", false
}

func formatDomainAsCompany(domain string) string {
	parts := strings.Split(domain, ".")

	var companyPart string
	switch {
	case len(parts) >= 3 && isCompoundSecond(parts[len(parts)-2]):
		companyPart = parts[len(parts)-3]
	case len(parts) >= 2:
		companyPart = parts[len(parts)-2]
	default:
		return ""
	}

	switch companyPart {
	case "www", "mail", "email", "smtp", "imap", "pop":
		return ""
	}

	companyPart = strings.NewReplacer("-", " ", "_", " ").Replace(companyPart)
	formatted := nameCaser.String(companyPart)
	if len(formatted) < 2 {
		return ""
	}
	return formatted
}

func isCompoundSecond(s string) bool {
	switch s {
	case "co", "com", "org", "net":
		return true
	}
	return false
}
