// Package extract turns raw emails into structured contact fields using
// header parsing and signature-block heuristics. Everything here is
// best-effort: malformed input yields partial or empty results, never errors.
package extract

import (
	"net/mail"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	addrRe        = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	parenSuffixRe = regexp.MustCompile(`\s*\([^)]+\)\s*$`)
	angleSuffixRe = regexp.MustCompile(`\s*<[^>]+>\s*$`)
	prefixRe      = regexp.MustCompile(`(?i)^(?:PR|RE):\s*`)

	localPartSep = strings.NewReplacer(".", " ", "_", " ", "-", " ")
	nameCaser    = cases.Title(language.English)
)

// ParseFromHeader extracts the sender's display name and address from a raw
// From header. The name falls back to a title-cased rendering of the address
// local part when no display name is present. Malformed headers produce
// partial results with empty fields rather than an error.
func ParseFromHeader(header string) (name, email string) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ""
	}

	if addr, err := mail.ParseAddress(header); err == nil {
		name = CleanName(addr.Name)
		email = strings.ToLower(addr.Address)
	} else {
		// Headers with unquoted display names or stray commas fail
		// net/mail; fall back to pulling out the first thing that
		// looks like an address.
		email = strings.ToLower(addrRe.FindString(header))
		if email != "" {
			name = CleanName(stripAddress(header, email))
		}
	}

	if name == "" && email != "" {
		name = nameFromLocalPart(email)
	}
	return name, email
}

// CleanName strips decorations commonly found in display names: surrounding
// quotes, a trailing "<email>" or "(Company)", and "PR:"/"RE:" prefixes.
func CleanName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	name = parenSuffixRe.ReplaceAllString(name, "")
	name = angleSuffixRe.ReplaceAllString(name, "")
	if len(name) >= 2 && strings.HasPrefix(name, `"`) && strings.HasSuffix(name, `"`) {
		name = name[1 : len(name)-1]
	}
	name = prefixRe.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// nameFromLocalPart turns "jane.q_doe" into "Jane Q Doe".
func nameFromLocalPart(email string) string {
	local, _, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return ""
	}
	// Strip plus-addressing tags.
	local, _, _ = strings.Cut(local, "+")
	words := strings.Fields(localPartSep.Replace(local))
	if len(words) == 0 {
		return ""
	}
	return nameCaser.String(strings.Join(words, " "))
}

func stripAddress(header, email string) string {
	lower := strings.ToLower(header)
	i := strings.Index(lower, email)
	if i < 0 {
		return header
	}
	out := header[:i] + header[i+len(email):]
	out = strings.NewReplacer("<", "", ">", "", `"`, "").Replace(out)
	return strings.Trim(out, " \t,")
}
