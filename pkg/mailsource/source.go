// Package mailsource fetches raw emails for the ingest pipeline. A Source
// hides the transport; both implementations return the same RawEmail shape
// with a stable id used for at-most-once processing.
package mailsource

import (
	"context"
	"time"

	"github.com/zsafwan/pr-contacts/internal/model"
)

// Source is a windowed email fetcher.
type Source interface {
	// Fetch returns emails received at or after since, newest last.
	// limit <= 0 means no limit. Connectivity failures are wrapped as
	// transient so the caller can distinguish them from parse errors.
	Fetch(ctx context.Context, since time.Time, limit int) ([]model.RawEmail, error)
}
