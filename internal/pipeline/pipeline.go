// Package pipeline drives the per-run ingest pass: fetch raw emails, parse
// and normalize each one, resolve it to a contact, classify, and record the
// outcome. Emails are processed sequentially; there is exactly one writer.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/zsafwan/pr-contacts/internal/classify"
	"github.com/zsafwan/pr-contacts/internal/config"
	"github.com/zsafwan/pr-contacts/internal/extract"
	"github.com/zsafwan/pr-contacts/internal/model"
	"github.com/zsafwan/pr-contacts/internal/normalize"
	"github.com/zsafwan/pr-contacts/internal/resilience"
	"github.com/zsafwan/pr-contacts/internal/resolve"
	"github.com/zsafwan/pr-contacts/internal/store"
	"github.com/zsafwan/pr-contacts/pkg/mailsource"
)

// Pipeline orchestrates one ingest run.
type Pipeline struct {
	cfg       config.ExtractionConfig
	store     store.Store
	source    mailsource.Source
	oracle    classify.Oracle
	extractor *extract.Extractor
	breaker   *resilience.CircuitBreaker
}

// pending is an email whose contact has been persisted and which still needs
// classification before it can be marked processed.
type pending struct {
	email    model.RawEmail
	contact  *model.Contact
	evidence classify.Evidence
}

// New wires a pipeline. oracle may be nil only when cfg.SkipClassify is set.
func New(cfg config.ExtractionConfig, st store.Store, src mailsource.Source, oracle classify.Oracle) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		store:     st,
		source:    src,
		oracle:    oracle,
		extractor: extract.New(),
		breaker:   resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig()),
	}
}

// Run executes one pass. A mail source failure aborts the run; any per-email
// failure is recorded and skipped past. Cancellations leave already-committed
// work in place, so re-running over the same window is safe.
func (p *Pipeline) Run(ctx context.Context) (*model.RunReport, error) {
	start := time.Now()
	log := zap.L()

	run, err := p.store.CreateRun(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: create run")
	}
	report := &model.RunReport{RunID: run.ID}

	finish := func(status model.RunStatus) {
		report.Duration = time.Since(start)
		if finishErr := p.store.FinishRun(ctx, run.ID, status, report); finishErr != nil {
			log.Warn("pipeline: failed to finish run", zap.Error(finishErr))
		}
	}

	since := time.Now().AddDate(0, 0, -p.cfg.SinceDays)
	emails, err := p.source.Fetch(ctx, since, p.cfg.MaxEmails)
	if err != nil {
		finish(model.RunFailed)
		return report, eris.Wrap(err, "pipeline: fetch emails")
	}
	report.Fetched = len(emails)
	log.Info("pipeline: starting run",
		zap.String("run_id", run.ID),
		zap.Int("fetched", len(emails)),
		zap.Bool("skip_classify", p.cfg.SkipClassify),
	)

	var toClassify []pending
	for _, email := range emails {
		if err := ctx.Err(); err != nil {
			finish(model.RunFailed)
			return report, eris.Wrap(err, "pipeline: run canceled")
		}

		processed, err := p.store.IsEmailProcessed(ctx, email.ID)
		if err != nil {
			p.recordFailure(ctx, report, email, "lookup", err)
			continue
		}
		if processed {
			report.Skipped++
			continue
		}

		pend, err := p.processEmail(ctx, email)
		if err != nil {
			p.recordFailure(ctx, report, email, "extract", err)
			continue
		}
		if pend == nil {
			// Nothing extractable; marked processed so it is not retried.
			report.Processed++
			continue
		}

		if p.cfg.SkipClassify {
			if err := p.markProcessed(ctx, email, pend.contact.ID); err != nil {
				p.recordFailure(ctx, report, email, "persist", err)
				continue
			}
			report.Processed++
			continue
		}
		toClassify = append(toClassify, *pend)
	}

	if len(toClassify) > 0 {
		p.classifyAndCommit(ctx, report, toClassify)
	}

	finish(model.RunSucceeded)
	log.Info("pipeline: run complete",
		zap.String("run_id", run.ID),
		zap.Int("fetched", report.Fetched),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("deferred", report.Deferred),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

// processEmail parses, normalizes, and resolves one email. The contact merge
// commits atomically. A nil pending with nil error means the email carried no
// extractable contact and was marked processed.
func (p *Pipeline) processEmail(ctx context.Context, email model.RawEmail) (*pending, error) {
	result := normalize.Result(p.extractor.Extract(email))

	if result.Email == "" {
		zap.L().Debug("pipeline: no contact in email",
			zap.String("email_id", email.ID),
			zap.String("subject", email.Subject),
		)
		if err := p.markProcessed(ctx, email, 0); err != nil {
			return nil, err
		}
		return nil, nil
	}

	var contact *model.Contact
	err := p.store.WithTx(ctx, func(tx store.Store) error {
		var resolveErr error
		contact, _, resolveErr = resolve.New(tx).Resolve(ctx, result)
		return resolveErr
	})
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: resolve contact for %s", email.ID)
	}

	return &pending{
		email:    email,
		contact:  contact,
		evidence: classify.EvidenceFromEmail(email, result),
	}, nil
}

// classifyAndCommit runs the batched classification pass. Each successfully
// classified email folds its result and is marked processed in one
// transaction; a failed item stays unmarked and is deferred to the next run.
func (p *Pipeline) classifyAndCommit(ctx context.Context, report *model.RunReport, items []pending) {
	known, err := p.knownCategories(ctx)
	if err != nil {
		zap.L().Warn("pipeline: listing categories failed", zap.Error(err))
	}

	evs := make([]classify.Evidence, len(items))
	for i, it := range items {
		evs[i] = it.evidence
	}

	results, err := resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) ([]classify.Result, error) {
		return p.oracle.ClassifyBatch(ctx, evs, known)
	})

	deferred := make(map[int]bool)
	if err != nil {
		var batchErr *classify.BatchError
		if errors.As(err, &batchErr) {
			deferred = batchErr.FailedSet()
			zap.L().Warn("pipeline: partial classification failure",
				zap.Int("deferred", len(batchErr.Failed)),
				zap.Error(err),
			)
		} else {
			// Whole-batch failure: defer everything to the next run.
			zap.L().Warn("pipeline: classification failed, deferring batch",
				zap.Int("deferred", len(items)),
				zap.Error(err),
			)
			report.Deferred += len(items)
			for _, it := range items {
				p.enqueueDLQ(ctx, it.email, "classify", err)
			}
			return
		}
	}

	for i, it := range items {
		if deferred[i] {
			report.Deferred++
			p.enqueueDLQ(ctx, it.email, "classify", err)
			continue
		}

		commitErr := p.store.WithTx(ctx, func(tx store.Store) error {
			if foldErr := classify.Fold(ctx, tx, it.contact.ID, results[i], p.cfg.MinConfidence); foldErr != nil {
				return foldErr
			}
			return tx.MarkEmailProcessed(ctx, processedRecord(it.email, it.contact.ID))
		})
		if commitErr != nil {
			p.recordFailure(ctx, report, it.email, "fold", commitErr)
			continue
		}
		report.Processed++
		if len(results[i].Categories) > 0 || len(results[i].Brands) > 0 {
			report.Categorized++
		}
	}
}

// Retry pushes dead-lettered emails back through the normal processing path.
// Emails that make it through are removed from the queue; an email that fails
// again is requeued under the same key, which advances its retry counter.
// The mail source is never consulted, so Retry works with a nil source.
func (p *Pipeline) Retry(ctx context.Context, entries []resilience.DLQEntry) (*model.RunReport, error) {
	report := &model.RunReport{Fetched: len(entries)}
	log := zap.L()

	var toClassify []pending
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return report, eris.Wrap(err, "pipeline: retry canceled")
		}
		if !entry.CanRetry() {
			// Exhausted its retry budget; stays parked for manual review.
			report.Skipped++
			continue
		}
		email := entry.Email

		processed, err := p.store.IsEmailProcessed(ctx, email.ID)
		if err != nil {
			p.recordFailure(ctx, report, email, "lookup", err)
			continue
		}
		if processed {
			// Handled by a later run; the entry is stale.
			report.Skipped++
			continue
		}

		pend, err := p.processEmail(ctx, email)
		if err != nil {
			p.recordFailure(ctx, report, email, "extract", err)
			continue
		}
		if pend == nil {
			report.Processed++
			continue
		}

		if p.cfg.SkipClassify {
			if err := p.markProcessed(ctx, email, pend.contact.ID); err != nil {
				p.recordFailure(ctx, report, email, "persist", err)
				continue
			}
			report.Processed++
			continue
		}
		toClassify = append(toClassify, *pend)
	}

	if len(toClassify) > 0 {
		p.classifyAndCommit(ctx, report, toClassify)
	}

	// Clear every entry whose email made it through this time.
	for _, entry := range entries {
		processed, err := p.store.IsEmailProcessed(ctx, entry.Email.ID)
		if err != nil || !processed {
			continue
		}
		if err := p.store.RemoveDLQ(ctx, entry.ID); err != nil {
			log.Warn("pipeline: dlq remove failed",
				zap.String("id", entry.ID),
				zap.Error(err),
			)
		}
	}

	log.Info("pipeline: retry pass complete",
		zap.Int("entries", len(entries)),
		zap.Int("processed", report.Processed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("deferred", report.Deferred),
	)
	return report, nil
}

func (p *Pipeline) knownCategories(ctx context.Context) ([]string, error) {
	cats, err := p.store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = c.Name
	}
	return names, nil
}

func (p *Pipeline) markProcessed(ctx context.Context, email model.RawEmail, contactID int64) error {
	return p.store.MarkEmailProcessed(ctx, processedRecord(email, contactID))
}

func processedRecord(email model.RawEmail, contactID int64) model.ProcessedEmail {
	return model.ProcessedEmail{
		EmailID:    email.ID,
		ContactID:  contactID,
		Subject:    email.Subject,
		FromEmail:  email.FromEmail,
		ReceivedAt: email.ReceivedAt,
	}
}

func (p *Pipeline) recordFailure(ctx context.Context, report *model.RunReport, email model.RawEmail, stage string, err error) {
	report.Failed++
	report.Failures = append(report.Failures, model.Failure{
		EmailID: email.ID,
		Subject: email.Subject,
		Err:     err.Error(),
	})
	zap.L().Warn("pipeline: email failed",
		zap.String("email_id", email.ID),
		zap.String("stage", stage),
		zap.Error(err),
	)
	p.enqueueDLQ(ctx, email, stage, err)
}

func (p *Pipeline) enqueueDLQ(ctx context.Context, email model.RawEmail, stage string, err error) {
	now := time.Now().UTC()
	entry := resilience.DLQEntry{
		// Keyed by the email so repeated failures fold into one entry.
		ID:           email.ID,
		Email:        email,
		Error:        err.Error(),
		ErrorType:    resilience.ClassifyError(err),
		FailedStage:  stage,
		MaxRetries:   3,
		NextRetryAt:  now.Add(time.Hour),
		CreatedAt:    now,
		LastFailedAt: now,
	}
	if dlqErr := p.store.EnqueueDLQ(ctx, entry); dlqErr != nil {
		zap.L().Warn("pipeline: dlq enqueue failed",
			zap.String("email_id", email.ID),
			zap.Error(dlqErr),
		)
	}
}
