package mailsource

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/model"
)

// MBOXSource reads a Google Takeout mbox export. Messages are split on
// "From " separator lines and parsed individually; a message that fails to
// parse is skipped, not fatal.
type MBOXSource struct {
	Path string
}

func NewMBOX(path string) *MBOXSource {
	return &MBOXSource{Path: path}
}

func (s *MBOXSource) Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawEmail, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "mailsource: open mbox %s", s.Path)
	}
	defer f.Close()

	var emails []model.RawEmail
	var skipped int

	err = splitMbox(f, func(raw []byte) bool {
		if ctx.Err() != nil {
			return false
		}
		email, parseErr := parseMessage(raw)
		if parseErr != nil {
			skipped++
			zap.L().Debug("mailsource: skipping unparseable mbox message", zap.Error(parseErr))
			return true
		}
		if !since.IsZero() && !email.ReceivedAt.IsZero() && email.ReceivedAt.Before(since) {
			return true
		}
		emails = append(emails, email)
		return limit <= 0 || len(emails) < limit
	})
	if err != nil {
		return nil, eris.Wrapf(err, "mailsource: read mbox %s", s.Path)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "mailsource: read mbox")
	}

	zap.L().Info("mailsource: read mbox",
		zap.String("path", s.Path),
		zap.Int("count", len(emails)),
		zap.Int("skipped", skipped),
	)
	return emails, nil
}

// splitMbox streams messages out of an mbox file, calling fn with the raw
// bytes of each. fn returns false to stop early. ">From " quoting in bodies
// is unescaped.
func splitMbox(r io.Reader, fn func(raw []byte) bool) error {
	reader := bufio.NewReaderSize(r, 256*1024)

	var current bytes.Buffer
	flush := func() bool {
		if current.Len() == 0 {
			return true
		}
		raw := make([]byte, current.Len())
		copy(raw, current.Bytes())
		current.Reset()
		return fn(raw)
	}

	for {
		line, err := reader.ReadString('\n')
		if len(line) > 0 {
			switch {
			case strings.HasPrefix(line, "From "):
				if !flush() {
					return nil
				}
			case strings.HasPrefix(line, ">From "):
				current.WriteString(line[1:])
			default:
				current.WriteString(line)
			}
		}
		if err == io.EOF {
			flush()
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// parseMessage parses one raw RFC 2822 message into a RawEmail.
func parseMessage(raw []byte) (model.RawEmail, error) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return model.RawEmail{}, eris.Wrap(err, "mailsource: parse message")
	}
	defer mr.Close()

	h := mr.Header
	subject, _ := h.Subject()
	date, _ := h.Date()
	rawFrom := h.Get("From")
	messageID, _ := h.MessageID()

	email := model.RawEmail{
		ID:         stableID(messageID, h.Get("Date"), subject, rawFrom),
		Subject:    subject,
		FromHeader: rawFrom,
		ReceivedAt: date,
	}
	if addrs, err := h.AddressList("From"); err == nil && len(addrs) > 0 {
		email.FromName = addrs[0].Name
		email.FromEmail = addrs[0].Address
	}

	var plain, html string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}
		ih, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := ih.ContentType()
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

	email.Body = plain
	if email.Body == "" {
		email.Body = html
	}
	email.Snippet = snippet(email.Body)
	return email, nil
}
