package extract

import (
	"regexp"
	"strings"

	"github.com/zsafwan/pr-contacts/internal/model"
)

// Signature block boundaries. A delimiter line marks the start of the
// trailing signature; the last occurrence wins when a body quotes earlier
// replies that carry their own sign-offs.
var sigDelimiters = []*regexp.Regexp{
	regexp.MustCompile(`^--\s*$`),
	regexp.MustCompile(`^---\s*$`),
	regexp.MustCompile(`^_{3,}\s*$`),
	regexp.MustCompile(`^-{3,}\s*$`),
	regexp.MustCompile(`(?i)^Best\s*(?:regards|wishes)?,?\s*$`),
	regexp.MustCompile(`(?i)^Kind\s+regards?,?\s*$`),
	regexp.MustCompile(`(?i)^Regards?,?\s*$`),
	regexp.MustCompile(`(?i)^Thanks?,?\s*$`),
	regexp.MustCompile(`(?i)^Thank\s+you,?\s*$`),
	regexp.MustCompile(`(?i)^Cheers?,?\s*$`),
	regexp.MustCompile(`(?i)^Sincerely,?\s*$`),
	regexp.MustCompile(`(?i)^Warm\s+regards?,?\s*$`),
	regexp.MustCompile(`(?i)^All\s+the\s+best,?\s*$`),
	regexp.MustCompile(`(?i)^Sent\s+from\s+my\s+`),
}

var phonePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\+?1?[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`), // US
	regexp.MustCompile(`\+\d{1,3}[-.\s]?\d{1,4}[-.\s]?\d{1,4}[-.\s]?\d{1,9}`),
	regexp.MustCompile(`\(\d{3}\)\s*\d{3}[-.\s]?\d{4}`),
	regexp.MustCompile(`\d{3}[-.\s]\d{3}[-.\s]\d{4}`),
}

var titleKeywords = []string{
	"manager", "director", "coordinator", "specialist", "executive",
	"officer", "president", "vp", "vice president", "head of", "lead",
	"senior", "junior", "associate", "assistant", "pr ", "public relations",
	"communications", "media relations", "press", "marketing", "brand",
	"account", "consultant", "strategist", "analyst", "editor", "writer",
	"publicist", "founder", "ceo", "coo", "cmo", "chief",
}

var agencyIndicators = []string{
	"pr", "public relations", "communications", "agency", "consulting",
	"media", "marketing", "group", "partners", "associates",
}

var (
	bulletTrimRe   = regexp.MustCompile(`^[|\-•]\s*|\s*[|\-•]\s*$`)
	nameCompanySep = regexp.MustCompile(`^(.{2,60}?)\s*[,|]\s*(.{2,60})$`)
)

const fallbackSigLines = 10

// SignatureBlock locates the trailing signature in an email body. It returns
// everything from the last delimiter line onward; when no delimiter exists it
// looks for a line in the tail that is followed by phone/email/title signals,
// and failing that returns the last few non-empty, non-quoted lines.
func SignatureBlock(body string) string {
	lines := strings.Split(body, "\n")

	sigStart := -1
	for i, line := range lines {
		if isDelimiter(strings.TrimSpace(line)) {
			sigStart = i
		}
	}

	if sigStart < 0 {
		start := len(lines) - 15
		if start < 0 {
			start = 0
		}
		for i := start; i < len(lines); i++ {
			line := strings.TrimSpace(lines[i])
			if line == "" || strings.HasPrefix(line, ">") {
				continue
			}
			if looksLikeSignatureStart(lines[i:]) {
				sigStart = i
				break
			}
		}
	}

	if sigStart >= 0 {
		return strings.Join(lines[sigStart:], "\n")
	}

	// Last resort: the tail of the body.
	var tail []string
	for i := len(lines) - 1; i >= 0 && len(tail) < fallbackSigLines; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		tail = append([]string{lines[i]}, tail...)
	}
	return strings.Join(tail, "\n")
}

// sigRule is one line-level heuristic: a predicate plus an extractor. Rules
// run in priority order per line and the first match consumes the line.
type sigRule struct {
	name    string
	matches func(line, lower string) bool
	apply   func(line, lower string, res *model.ExtractionResult)
}

var sigRules = []sigRule{
	{
		name: "phone",
		matches: func(line, _ string) bool {
			return findPhone(line) != ""
		},
		apply: func(line, _ string, res *model.ExtractionResult) {
			if res.Phone == "" {
				res.Phone = findPhone(line)
			}
		},
	},
	{
		name: "title",
		matches: func(line, lower string) bool {
			if !containsTitleKeyword(lower) {
				return false
			}
			// "Jane Doe | Acme Communications" belongs to the
			// name-company rule even when the company part carries a
			// keyword.
			if m := nameCompanySep.FindStringSubmatch(trimBullets(line)); m != nil &&
				looksLikePersonName(m[1]) && !containsTitleKeyword(strings.ToLower(m[1])) {
				return false
			}
			return true
		},
		apply: func(line, lower string, res *model.ExtractionResult) {
			title := trimBullets(line)
			if m := nameCompanySep.FindStringSubmatch(title); m != nil &&
				containsTitleKeyword(strings.ToLower(m[1])) {
				// "Senior Manager, Acme PR" style: title before the
				// separator, company after.
				title = strings.TrimSpace(m[1])
				if res.Company == "" {
					res.Company = strings.TrimSpace(m[2])
				}
			}
			if res.Title == "" && len(title) < 100 {
				res.Title = title
			}
		},
	},
	{
		name: "name-company",
		matches: func(line, _ string) bool {
			m := nameCompanySep.FindStringSubmatch(trimBullets(line))
			return m != nil && looksLikePersonName(m[1])
		},
		apply: func(line, _ string, res *model.ExtractionResult) {
			m := nameCompanySep.FindStringSubmatch(trimBullets(line))
			if m == nil {
				return
			}
			if res.Name == "" {
				res.Name = strings.TrimSpace(m[1])
			}
			if res.Company == "" {
				res.Company = strings.TrimSpace(m[2])
			}
		},
	},
	{
		name: "agency",
		matches: func(line, lower string) bool {
			if addrRe.MatchString(line) {
				return false
			}
			return containsAgencyIndicator(lower)
		},
		apply: func(line, _ string, res *model.ExtractionResult) {
			company := trimBullets(line)
			if res.Company == "" && len(company) < 100 {
				res.Company = company
			}
		},
	},
}

// ParseSignature applies the line heuristics to a signature block. Lines run
// through the rules in priority order; a consumed line is never re-classified
// by a later rule or the positional fallback. primaryEmail filters the
// alternate-address scan.
func ParseSignature(block, primaryEmail string) model.ExtractionResult {
	var res model.ExtractionResult
	if strings.TrimSpace(block) == "" {
		return res
	}

	var unconsumed []string
	for _, raw := range strings.Split(block, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, ">") || isDelimiter(line) {
			continue
		}
		lower := strings.ToLower(line)

		consumed := false
		for _, rule := range sigRules {
			if rule.matches(line, lower) {
				rule.apply(line, lower, &res)
				consumed = true
				break
			}
		}
		if !consumed {
			unconsumed = append(unconsumed, line)
		}
	}

	// Positional fallback: the first leftover line is the name, and a later
	// capitalized line the company.
	for i, line := range unconsumed {
		if addrRe.MatchString(line) || strings.Contains(strings.ToLower(line), "http") ||
			strings.Contains(strings.ToLower(line), "www.") {
			continue
		}
		if res.Name == "" && looksLikePersonName(line) {
			res.Name = line
			continue
		}
		if res.Company == "" && i > 0 && isCapitalizedPhrase(line) {
			res.Company = line
		}
	}

	res.AltEmails = findEmails(block, primaryEmail)
	return res
}

func isDelimiter(line string) bool {
	for _, re := range sigDelimiters {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// looksLikeSignatureStart checks the next few lines for signature signals: a
// phone number, or an email address together with a title keyword.
func looksLikeSignatureStart(remaining []string) bool {
	n := len(remaining)
	if n > 10 {
		n = 10
	}
	text := strings.Join(remaining[:n], "\n")
	lower := strings.ToLower(text)

	hasPhone := findPhone(text) != ""
	hasEmail := addrRe.MatchString(text)
	hasTitle := containsTitleKeyword(lower)

	return hasPhone || (hasEmail && hasTitle)
}

func findPhone(text string) string {
	for _, re := range phonePatterns {
		if m := re.FindString(text); m != "" {
			return strings.TrimSpace(m)
		}
	}
	return ""
}

// findEmails collects addresses from the block, dropping the primary and
// role accounts that never identify a person.
func findEmails(text, primaryEmail string) []string {
	primary := strings.ToLower(primaryEmail)
	var out []string
	seen := make(map[string]struct{})
	for _, m := range addrRe.FindAllString(text, -1) {
		lower := strings.ToLower(m)
		if lower == primary {
			continue
		}
		if isRoleAddress(lower) {
			continue
		}
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		out = append(out, lower)
	}
	return out
}

func isRoleAddress(email string) bool {
	for _, x := range []string{"noreply", "no-reply", "support@", "info@", "hello@", "contact@"} {
		if strings.Contains(email, x) {
			return true
		}
	}
	return false
}

func containsTitleKeyword(lower string) bool {
	for _, kw := range titleKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func containsAgencyIndicator(lower string) bool {
	for _, ind := range agencyIndicators {
		if ind == "pr" {
			// Too short for substring matching; require a word boundary.
			if hasWord(lower, "pr") {
				return true
			}
			continue
		}
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

func hasWord(lower, word string) bool {
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '|' || r == ',' || r == '.'
	}) {
		if w == word {
			return true
		}
	}
	return false
}

func trimBullets(line string) string {
	return strings.TrimSpace(bulletTrimRe.ReplaceAllString(strings.TrimSpace(line), ""))
}

// looksLikePersonName accepts 2-4 capitalized words with no digits.
func looksLikePersonName(s string) bool {
	words := strings.Fields(strings.TrimSpace(s))
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		r := rune(w[0])
		if r < 'A' || r > 'Z' {
			return false
		}
		if strings.ContainsAny(w, "0123456789@") {
			return false
		}
	}
	return true
}

// isCapitalizedPhrase accepts 1-5 words that all start uppercase.
func isCapitalizedPhrase(s string) bool {
	words := strings.Fields(strings.TrimSpace(s))
	if len(words) < 1 || len(words) > 5 {
		return false
	}
	for _, w := range words {
		r := rune(w[0])
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
