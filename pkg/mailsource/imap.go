package mailsource

import (
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/resilience"
)

// IMAPSource fetches emails over IMAP using go-imap v2. Each Fetch opens a
// fresh connection; runs are infrequent enough that keeping a session alive
// buys nothing.
type IMAPSource struct {
	Addr     string // host:port, TLS
	Username string
	Password string
	Mailbox  string
}

func NewIMAP(addr, username, password, mailbox string) *IMAPSource {
	if mailbox == "" {
		mailbox = "INBOX"
	}
	return &IMAPSource{Addr: addr, Username: username, Password: password, Mailbox: mailbox}
}

func (s *IMAPSource) Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawEmail, error) {
	client, err := imapclient.DialTLS(s.Addr, nil)
	if err != nil {
		return nil, resilience.NewTransientError(
			eris.Wrapf(err, "mailsource: dial %s", s.Addr), 0)
	}
	defer func() { _ = client.Logout().Wait() }()

	if err := client.Login(s.Username, s.Password).Wait(); err != nil {
		return nil, eris.Wrapf(err, "mailsource: login %s", s.Username)
	}

	if _, err := client.Select(s.Mailbox, nil).Wait(); err != nil {
		return nil, eris.Wrapf(err, "mailsource: select %s", s.Mailbox)
	}

	criteria := &imap.SearchCriteria{}
	if !since.IsZero() {
		criteria.Since = since
	}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, resilience.NewTransientError(
			eris.Wrap(err, "mailsource: search"), 0)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchCmd := client.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	})
	defer fetchCmd.Close()

	var emails []model.RawEmail
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			zap.L().Warn("mailsource: collect message failed", zap.Error(err))
			continue
		}
		emails = append(emails, emailFromBuffer(buf, bodySection))
	}
	if err := fetchCmd.Close(); err != nil {
		return emails, resilience.NewTransientError(
			eris.Wrap(err, "mailsource: fetch"), 0)
	}

	zap.L().Info("mailsource: fetched over imap",
		zap.String("mailbox", s.Mailbox),
		zap.Int("count", len(emails)),
	)
	return emails, nil
}

func emailFromBuffer(buf *imapclient.FetchMessageBuffer, section *imap.FetchItemBodySection) model.RawEmail {
	email := model.RawEmail{
		ID: fmt.Sprintf("uid-%d", buf.UID),
	}

	var date string
	if env := buf.Envelope; env != nil {
		email.Subject = env.Subject
		email.ReceivedAt = env.Date
		date = env.Date.String()
		if len(env.From) > 0 {
			from := env.From[0]
			email.FromName = from.Name
			email.FromEmail = from.Addr()
			if from.Name != "" {
				email.FromHeader = fmt.Sprintf("%s <%s>", from.Name, from.Addr())
			} else {
				email.FromHeader = from.Addr()
			}
		}
		email.ID = stableID(env.MessageID, date, env.Subject, email.FromHeader)
	}

	if raw := buf.FindBodySection(section); raw != nil {
		email.Body = parseBody(raw)
		email.Snippet = snippet(email.Body)
	}
	return email
}
