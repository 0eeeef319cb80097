package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/zsafwan/pr-contacts/internal/config"
	"github.com/zsafwan/pr-contacts/internal/resilience"
	"github.com/zsafwan/pr-contacts/pkg/anthropic"
)

// defaultDirectConcurrency bounds direct-mode fan-out when the caller does
// not set its own limit.
const defaultDirectConcurrency = 4

const classifySystemPrompt = `You analyze PR and marketing emails sent to journalists. For each email, extract:
1. PR categories (industry/topic focused, e.g. "Technology", "Travel & Hospitality", "Consumer Electronics", "Healthcare", "Automotive")
2. Specific brands/companies being promoted (never the PR agency itself)
3. A confidence score (0-1) for each category

Rules:
- Include 1-3 most relevant categories per email
- Only include brands being promoted, not PR agencies
- Confidence should reflect how clearly the email fits the category
Respond with valid JSON only.`

const classifyUserPrompt = `Email Subject: %s
Sender: %s%s
Email Body Preview:
%s
%s
Return ONLY valid JSON in this exact format:
{
  "categories": [
    {"name": "Category Name", "confidence": 0.9}
  ],
  "brands": ["Brand1", "Brand2"]
}`

const discoverPrompt = `Analyze these PR email samples and identify distinct PR/marketing categories.

Email Samples:
%s

Based on these emails, identify 10-20 distinct PR categories that would be useful for organizing contacts.
Categories should be industry/topic focused (e.g., "Technology", "Travel & Hospitality", "Consumer Electronics", "Healthcare", "Automotive", etc.)

Return ONLY a JSON array of category names, nothing else. Example:
["Technology", "Travel & Hospitality", "Consumer Electronics"]`

// defaultConfidence is used when the model assigns a category but omits the
// confidence score.
const defaultConfidence = 0.8

// ClaudeOracle implements Oracle over the Anthropic API. Small batches go
// through direct messages with bounded concurrency; large batches through
// the Message Batches API.
type ClaudeOracle struct {
	client      anthropic.Client
	cfg         config.AnthropicConfig
	limiter     *rate.Limiter
	retry       resilience.RetryConfig
	concurrency int
}

// NewClaudeOracle builds an oracle from an API client and config.
func NewClaudeOracle(client anthropic.Client, cfg config.AnthropicConfig) *ClaudeOracle {
	return &ClaudeOracle{
		client:      client,
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		retry:       resilience.DefaultRetryConfig(),
		concurrency: defaultDirectConcurrency,
	}
}

// WithConcurrency bounds direct-mode fan-out. Values below 1 keep the
// current limit.
func (o *ClaudeOracle) WithConcurrency(n int) *ClaudeOracle {
	if n > 0 {
		o.concurrency = n
	}
	return o
}

// Classify sends one email's evidence for classification.
func (o *ClaudeOracle) Classify(ctx context.Context, ev Evidence, known []string) (*Result, error) {
	if err := o.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "classify: rate limit wait")
	}

	req := o.buildRequest(ev, known)
	resp, err := resilience.DoVal(ctx, o.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return o.client.CreateMessage(ctx, req)
	})
	if err != nil {
		return nil, eris.Wrap(err, "classify: create message")
	}
	resp.Usage.LogCost(o.cfg.Model, "classify")

	result, err := parseResult(extractText(resp))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ClassifyBatch classifies evs in order. The returned slice always has
// len(evs) entries; when some items fail the error is a *BatchError naming
// the failed indexes, and those slots hold zero Results.
func (o *ClaudeOracle) ClassifyBatch(ctx context.Context, evs []Evidence, known []string) ([]Result, error) {
	if len(evs) == 0 {
		return nil, nil
	}

	threshold := o.cfg.SmallBatchThreshold
	if threshold <= 0 {
		threshold = 8
	}
	if o.cfg.NoBatch || len(evs) <= threshold {
		return o.classifyDirect(ctx, evs, known)
	}
	return o.classifyBatchAPI(ctx, evs, known)
}

func (o *ClaudeOracle) buildRequest(ev Evidence, known []string) anthropic.MessageRequest {
	sender := ev.SenderName
	var at string
	if ev.SenderCompany != "" {
		at = " at " + ev.SenderCompany
	}

	var knownHint string
	if len(known) > 0 {
		knownHint = "Prefer these existing categories when they fit: " +
			strings.Join(known, ", ") + "\n"
	}

	snippet := truncateRunes(ev.Snippet, 500)

	prompt := fmt.Sprintf(classifyUserPrompt, ev.Subject, sender, at, snippet, knownHint)
	return anthropic.MessageRequest{
		Model:     o.cfg.Model,
		MaxTokens: 512,
		System:    anthropic.BuildCachedSystemBlocks(classifySystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: prompt},
		},
	}
}

func (o *ClaudeOracle) classifyDirect(ctx context.Context, evs []Evidence, known []string) ([]Result, error) {
	results := make([]Result, len(evs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)

	var mu sync.Mutex
	var failed []int
	var reasons []string

	for i, ev := range evs {
		g.Go(func() error {
			res, err := o.Classify(gCtx, ev, known)
			if err != nil {
				zap.L().Warn("classify: direct item failed",
					zap.Int("index", i),
					zap.Error(err),
				)
				mu.Lock()
				failed = append(failed, i)
				reasons = append(reasons, err.Error())
				mu.Unlock()
				return nil
			}
			results[i] = *res
			return nil
		})
	}
	_ = g.Wait()

	if len(failed) > 0 {
		return results, &BatchError{Failed: failed, Reasons: reasons}
	}
	return results, nil
}

// classifyBatchAPI submits evs through the Message Batches API in chunks of
// at most cfg.MaxBatchSize requests. A chunk that fails to submit or poll
// marks only its own indexes failed; other chunks still return results.
func (o *ClaudeOracle) classifyBatchAPI(ctx context.Context, evs []Evidence, known []string) ([]Result, error) {
	size := o.cfg.MaxBatchSize
	if size <= 0 {
		size = len(evs)
	}

	// Warm the prompt cache before submitting so every batch request reads
	// the shared system prompt instead of re-creating the cache entry.
	primer := anthropic.MessageRequest{
		Model:     o.cfg.Model,
		MaxTokens: 16,
		System:    anthropic.BuildCachedSystemBlocks(classifySystemPrompt),
		Messages: []anthropic.Message{
			{Role: "user", Content: "Acknowledge that you are ready to classify emails."},
		},
	}
	if resp, err := anthropic.PrimerRequest(ctx, o.client, primer); err != nil {
		zap.L().Warn("classify: cache primer failed", zap.Error(err))
	} else {
		resp.Usage.LogCost(o.cfg.Model, "primer")
	}

	results := make([]Result, len(evs))
	var failed []int
	var reasons []string

	for start := 0; start < len(evs); start += size {
		end := start + size
		if end > len(evs) {
			end = len(evs)
		}
		if err := o.runBatchChunk(ctx, evs[start:end], known, start, results); err != nil {
			var batchErr *BatchError
			if !errors.As(err, &batchErr) {
				// Whole-chunk failure: every index in it is failed.
				for i := start; i < end; i++ {
					failed = append(failed, i)
					reasons = append(reasons, err.Error())
				}
				continue
			}
			failed = append(failed, batchErr.Failed...)
			reasons = append(reasons, batchErr.Reasons...)
		}
	}

	if len(failed) > 0 {
		return results, &BatchError{Failed: failed, Reasons: reasons}
	}
	return results, nil
}

// runBatchChunk classifies one chunk and writes into results at the chunk's
// global offset. Per-item failures come back as a *BatchError carrying
// global indexes.
func (o *ClaudeOracle) runBatchChunk(ctx context.Context, evs []Evidence, known []string, offset int, results []Result) error {
	items := make([]anthropic.BatchRequestItem, len(evs))
	for i, ev := range evs {
		items[i] = anthropic.BatchRequestItem{
			CustomID: fmt.Sprintf("classify-%d", offset+i),
			Params:   o.buildRequest(ev, known),
		}
	}

	batch, err := o.client.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return eris.Wrap(err, "classify: create batch")
	}

	batch, err = anthropic.PollBatch(ctx, o.client, batch.ID)
	if err != nil {
		return eris.Wrap(err, "classify: poll batch")
	}

	iter, err := o.client.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return eris.Wrap(err, "classify: get batch results")
	}
	collected, err := anthropic.CollectBatchResultsDetailed(iter)
	if err != nil {
		return eris.Wrap(err, "classify: collect batch results")
	}

	var failed []int
	var reasons []string
	for i := range evs {
		customID := fmt.Sprintf("classify-%d", offset+i)
		resp, ok := collected.Succeeded[customID]
		if !ok {
			failed = append(failed, offset+i)
			reasons = append(reasons, customID+" not in batch results")
			continue
		}
		resp.Usage.LogCost(o.cfg.Model, "classify-batch")

		res, err := parseResult(extractText(resp))
		if err != nil {
			failed = append(failed, offset+i)
			reasons = append(reasons, err.Error())
			continue
		}
		results[offset+i] = *res
	}

	if len(failed) > 0 {
		return &BatchError{Failed: failed, Reasons: reasons}
	}
	return nil
}

// DiscoverCategories analyzes up to 50 email samples and proposes category
// names for seeding the vocabulary.
func (o *ClaudeOracle) DiscoverCategories(ctx context.Context, samples []Evidence) ([]string, error) {
	if len(samples) > 50 {
		samples = samples[:50]
	}

	var sb strings.Builder
	for _, s := range samples {
		fmt.Fprintf(&sb, "Subject: %s\nSnippet: %s\n\n", s.Subject, truncateRunes(s.Snippet, 200))
	}

	resp, err := resilience.DoVal(ctx, o.retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return o.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     o.cfg.Model,
			MaxTokens: 1024,
			Messages: []anthropic.Message{
				{Role: "user", Content: fmt.Sprintf(discoverPrompt, sb.String())},
			},
		})
	})
	if err != nil {
		return nil, eris.Wrap(err, "classify: discover categories")
	}
	resp.Usage.LogCost(o.cfg.Model, "discover")

	var names []string
	if err := json.Unmarshal([]byte(cleanJSONArray(extractText(resp))), &names); err != nil {
		return nil, eris.Wrap(err, "classify: parse discovered categories")
	}
	return names, nil
}

// wire types for the model's JSON contract

type wireCategory struct {
	Name       string   `json:"name"`
	Confidence *float64 `json:"confidence"`
}

type wireResult struct {
	Categories []wireCategory `json:"categories"`
	Brands     []string       `json:"brands"`
}

func parseResult(text string) (*Result, error) {
	var wire wireResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &wire); err != nil {
		return nil, eris.Wrap(err, "classify: parse response")
	}

	res := &Result{}
	for _, c := range wire.Categories {
		if c.Name == "" {
			continue
		}
		conf := defaultConfidence
		if c.Confidence != nil {
			conf = *c.Confidence
		}
		res.Categories = append(res.Categories, CategoryScore{Name: c.Name, Confidence: conf})
	}
	for _, b := range wire.Brands {
		if b == "" {
			continue
		}
		res.Brands = append(res.Brands, BrandMention{Name: b, Count: 1})
	}
	return res, nil
}

// extractText concatenates text content blocks from a response.
func extractText(resp *anthropic.MessageResponse) string {
	var parts []string
	for _, b := range resp.Content {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// cleanJSON extracts a JSON object from text that may contain markdown code
// fences or other wrapping.
func cleanJSON(text string) string {
	text = stripFences(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

// cleanJSONArray is cleanJSON for top-level arrays.
func cleanJSONArray(text string) string {
	text = stripFences(text)

	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}
	return text
}
