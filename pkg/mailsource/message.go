package mailsource

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/emersion/go-message/mail"
)

// parseBody extracts a text body from a raw RFC 2822 message, preferring
// text/plain over text/html and skipping attachments. If MIME parsing fails
// the raw bytes are returned as-is.
func parseBody(raw []byte) string {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}
	defer mr.Close()

	var plain, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := h.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain") && plain == "":
			plain = string(body)
		case strings.HasPrefix(contentType, "text/html") && html == "":
			html = string(body)
		}
	}

	if plain != "" {
		return plain
	}
	return html
}

// snippet returns roughly the first 200 bytes of body with newlines
// collapsed, cutting on a rune boundary.
func snippet(body string) string {
	if len(body) > 200 {
		cut := 200
		for cut > 0 && !utf8.RuneStart(body[cut]) {
			cut--
		}
		body = body[:cut]
	}
	return strings.TrimSpace(strings.ReplaceAll(body, "\n", " "))
}

// stableID returns the Message-ID when present, otherwise a hash of
// date+subject+from so re-fetching the same message yields the same id.
// Angle brackets are stripped so IMAP envelopes and parsed mbox headers
// produce the same id for the same message.
func stableID(messageID, date, subject, from string) string {
	messageID = strings.Trim(strings.TrimSpace(messageID), "<>")
	if messageID != "" {
		return messageID
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(date+"-"+subject+"-"+from)))
}
