package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/zsafwan/pr-contacts/internal/store"
	"github.com/zsafwan/pr-contacts/pkg/mailsource"
)

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "pr_contacts.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, store.DefaultPoolConfig())
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initMailSource() (mailsource.Source, error) {
	switch cfg.Mail.Source {
	case "imap":
		return mailsource.NewIMAP(cfg.Mail.Server, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.Mailbox), nil
	case "mbox":
		return mailsource.NewMBOX(cfg.Mail.MboxPath), nil
	default:
		return nil, eris.Errorf("unsupported mail source: %s", cfg.Mail.Source)
	}
}
