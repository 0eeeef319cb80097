package extract

import (
	"regexp"
	"sort"
	"strings"
)

// Country detection sources, in decreasing confidence.
const (
	CountrySourcePhone     = "phone_code"
	CountrySourceSignature = "signature"
	CountrySourceTLD       = "tld"
)

type countryEntry struct {
	Country string
	ISO     string
}

// phoneCodes maps dialing prefixes to countries. Middle East codes lead the
// table because they dominate the contact base.
var phoneCodes = map[string]countryEntry{
	"+971": {"United Arab Emirates", "AE"},
	"+966": {"Saudi Arabia", "SA"},
	"+974": {"Qatar", "QA"},
	"+965": {"Kuwait", "KW"},
	"+973": {"Bahrain", "BH"},
	"+968": {"Oman", "OM"},
	"+962": {"Jordan", "JO"},
	"+961": {"Lebanon", "LB"},
	"+20":  {"Egypt", "EG"},
	"+212": {"Morocco", "MA"},
	"+216": {"Tunisia", "TN"},
	"+964": {"Iraq", "IQ"},
	"+972": {"Israel", "IL"},
	"+98":  {"Iran", "IR"},

	"+1":   {"United States", "US"},
	"+44":  {"United Kingdom", "GB"},
	"+33":  {"France", "FR"},
	"+49":  {"Germany", "DE"},
	"+39":  {"Italy", "IT"},
	"+34":  {"Spain", "ES"},
	"+31":  {"Netherlands", "NL"},
	"+41":  {"Switzerland", "CH"},
	"+46":  {"Sweden", "SE"},
	"+48":  {"Poland", "PL"},
	"+353": {"Ireland", "IE"},
	"+7":   {"Russia", "RU"},
	"+90":  {"Turkey", "TR"},

	"+91":  {"India", "IN"},
	"+86":  {"China", "CN"},
	"+852": {"Hong Kong", "HK"},
	"+886": {"Taiwan", "TW"},
	"+81":  {"Japan", "JP"},
	"+82":  {"South Korea", "KR"},
	"+65":  {"Singapore", "SG"},
	"+60":  {"Malaysia", "MY"},
	"+66":  {"Thailand", "TH"},
	"+62":  {"Indonesia", "ID"},
	"+63":  {"Philippines", "PH"},
	"+61":  {"Australia", "AU"},
	"+64":  {"New Zealand", "NZ"},

	"+52": {"Mexico", "MX"},
	"+55": {"Brazil", "BR"},
	"+54": {"Argentina", "AR"},

	"+27":  {"South Africa", "ZA"},
	"+234": {"Nigeria", "NG"},
	"+254": {"Kenya", "KE"},
}

// tldCountries maps domain suffixes to countries. Compound TLDs (.co.uk)
// are checked before their shorter variants.
var tldCountries = map[string]countryEntry{
	".ae": {"United Arab Emirates", "AE"},
	".sa": {"Saudi Arabia", "SA"},
	".qa": {"Qatar", "QA"},
	".kw": {"Kuwait", "KW"},
	".bh": {"Bahrain", "BH"},
	".om": {"Oman", "OM"},
	".jo": {"Jordan", "JO"},
	".lb": {"Lebanon", "LB"},
	".eg": {"Egypt", "EG"},
	".ma": {"Morocco", "MA"},
	".il": {"Israel", "IL"},

	".uk":    {"United Kingdom", "GB"},
	".co.uk": {"United Kingdom", "GB"},
	".fr":    {"France", "FR"},
	".de":    {"Germany", "DE"},
	".it":    {"Italy", "IT"},
	".es":    {"Spain", "ES"},
	".nl":    {"Netherlands", "NL"},
	".ch":    {"Switzerland", "CH"},
	".se":    {"Sweden", "SE"},
	".pl":    {"Poland", "PL"},
	".ie":    {"Ireland", "IE"},
	".ru":    {"Russia", "RU"},
	".tr":    {"Turkey", "TR"},

	".in": {"India", "IN"},
	".cn": {"China", "CN"},
	".hk": {"Hong Kong", "HK"},
	".tw": {"Taiwan", "TW"},
	".jp": {"Japan", "JP"},
	".kr": {"South Korea", "KR"},
	".sg": {"Singapore", "SG"},
	".my": {"Malaysia", "MY"},
	".th": {"Thailand", "TH"},
	".id": {"Indonesia", "ID"},
	".ph": {"Philippines", "PH"},
	".au": {"Australia", "AU"},
	".nz": {"New Zealand", "NZ"},

	".us": {"United States", "US"},
	".ca": {"Canada", "CA"},
	".mx": {"Mexico", "MX"},
	".br": {"Brazil", "BR"},

	".za": {"South Africa", "ZA"},
	".ng": {"Nigeria", "NG"},
	".ke": {"Kenya", "KE"},
}

// locationPatterns match city and country names in signature text.
var locationPatterns = []struct {
	re    *regexp.Regexp
	entry countryEntry
}{
	{regexp.MustCompile(`\bdubai\b`), countryEntry{"United Arab Emirates", "AE"}},
	{regexp.MustCompile(`\babu\s*dhabi\b`), countryEntry{"United Arab Emirates", "AE"}},
	{regexp.MustCompile(`\bsharjah\b`), countryEntry{"United Arab Emirates", "AE"}},
	{regexp.MustCompile(`\bu\.?a\.?e\.?\b`), countryEntry{"United Arab Emirates", "AE"}},
	{regexp.MustCompile(`\briyadh\b`), countryEntry{"Saudi Arabia", "SA"}},
	{regexp.MustCompile(`\bjeddah\b`), countryEntry{"Saudi Arabia", "SA"}},
	{regexp.MustCompile(`\bksa\b`), countryEntry{"Saudi Arabia", "SA"}},
	{regexp.MustCompile(`\bdoha\b`), countryEntry{"Qatar", "QA"}},
	{regexp.MustCompile(`\bmanama\b`), countryEntry{"Bahrain", "BH"}},
	{regexp.MustCompile(`\bmuscat\b`), countryEntry{"Oman", "OM"}},
	{regexp.MustCompile(`\bamman\b`), countryEntry{"Jordan", "JO"}},
	{regexp.MustCompile(`\bbeirut\b`), countryEntry{"Lebanon", "LB"}},
	{regexp.MustCompile(`\bcairo\b`), countryEntry{"Egypt", "EG"}},
	{regexp.MustCompile(`\blondon\b`), countryEntry{"United Kingdom", "GB"}},
	{regexp.MustCompile(`\bnew\s*york\b`), countryEntry{"United States", "US"}},
	{regexp.MustCompile(`\blos\s*angeles\b`), countryEntry{"United States", "US"}},
	{regexp.MustCompile(`\bparis\b`), countryEntry{"France", "FR"}},
	{regexp.MustCompile(`\bberlin\b`), countryEntry{"Germany", "DE"}},
	{regexp.MustCompile(`\bamsterdam\b`), countryEntry{"Netherlands", "NL"}},
	{regexp.MustCompile(`\bsingapore\b`), countryEntry{"Singapore", "SG"}},
	{regexp.MustCompile(`\bhong\s*kong\b`), countryEntry{"Hong Kong", "HK"}},
	{regexp.MustCompile(`\btokyo\b`), countryEntry{"Japan", "JP"}},
	{regexp.MustCompile(`\bsydney\b`), countryEntry{"Australia", "AU"}},
	{regexp.MustCompile(`\bmumbai\b`), countryEntry{"India", "IN"}},
}

var phoneStripRe = regexp.MustCompile(`[\s\-().]+`)

// sortedPhoneCodes is phoneCodes keys longest-first so +971 matches before +9.
var sortedPhoneCodes = func() []string {
	keys := make([]string, 0, len(phoneCodes))
	for k := range phoneCodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}()

var sortedTLDs = func() []string {
	keys := make([]string, 0, len(tldCountries))
	for k := range tldCountries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	return keys
}()

// DetectCountry infers a contact's country from available signals, in
// decreasing confidence: phone dialing code, then signature location
// mentions, then email ccTLD. Returns empty values when nothing matches.
func DetectCountry(phone, email, signature string) (country, iso, source string) {
	if c, i := countryFromPhone(phone); c != "" {
		return c, i, CountrySourcePhone
	}
	if c, i := countryFromSignature(signature); c != "" {
		return c, i, CountrySourceSignature
	}
	if c, i := countryFromTLD(email); c != "" {
		return c, i, CountrySourceTLD
	}
	return "", "", ""
}

func countryFromPhone(phone string) (string, string) {
	if phone == "" {
		return "", ""
	}
	normalized := phoneStripRe.ReplaceAllString(phone, "")
	if !strings.HasPrefix(normalized, "+") {
		if strings.HasPrefix(normalized, "00") {
			normalized = "+" + normalized[2:]
		} else {
			return "", ""
		}
	}
	for _, code := range sortedPhoneCodes {
		if strings.HasPrefix(normalized, code) {
			e := phoneCodes[code]
			return e.Country, e.ISO
		}
	}
	return "", ""
}

func countryFromTLD(email string) (string, string) {
	domain := emailDomain(email)
	if domain == "" {
		return "", ""
	}
	for _, tld := range sortedTLDs {
		if strings.HasSuffix(domain, tld) {
			e := tldCountries[tld]
			return e.Country, e.ISO
		}
	}
	return "", ""
}

func countryFromSignature(signature string) (string, string) {
	if signature == "" {
		return "", ""
	}
	lower := strings.ToLower(signature)
	for _, lp := range locationPatterns {
		if lp.re.MatchString(lower) {
			return lp.entry.Country, lp.entry.ISO
		}
	}
	return "", ""
}
