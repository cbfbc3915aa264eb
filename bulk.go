package verimail

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/optimode/verimail/internal/parse"
	"github.com/optimode/verimail/internal/ratelimit"
	"github.com/optimode/verimail/internal/sanitize"
	"github.com/optimode/verimail/types"
)

const (
	// prewarmBatchSize bounds concurrent DNS warm-up lookups.
	prewarmBatchSize = 20
	// bulkBatchSize bounds concurrent validations per batch.
	bulkBatchSize = 50
	// bulkBatchDelay is the pause between batches.
	bulkBatchDelay = 50 * time.Millisecond
	// bulkMinBudget: no new batch starts with less than this much of the
	// deadline remaining.
	bulkMinBudget = 5 * time.Second
)

// timedOutMessage fills the placeholder results of unprocessed entries.
const timedOutMessage = "Validation timed out"

// ValidateBulk validates a list of addresses. The list is sanitised
// first (deduplicated, obviously broken entries dropped), then the
// unique domains are pre-warmed into the DNS caches, then the addresses
// are processed in concurrent batches until done or the time budget runs
// out. Entries never processed get a placeholder result.
func (v *Validator) ValidateBulk(ctx context.Context, emails []string, opts Options, bulkOpts BulkOptions) (BulkResult, error) {
	if v.isClosed() {
		return BulkResult{}, ErrClosed
	}
	if len(emails) > v.cfg.MaxBulkSize {
		return BulkResult{}, ErrInvalidBulkSize
	}
	opts = opts.withDefaults()
	bulkOpts = bulkOpts.withDefaults()

	if bulkOpts.ClientID != "" {
		d := v.limiter.Allow(ratelimit.ScopeBulk, bulkOpts.ClientID)
		if !d.Allowed {
			v.metrics.RecordRateLimitDenial(string(ratelimit.ScopeBulk))
			return BulkResult{}, &RateLimitError{
				Scope:      string(ratelimit.ScopeBulk),
				RetryAfter: d.RetryAfter,
			}
		}
	}
	// Per-entry validations are not individually rate limited.
	opts.ClientID = ""

	start := time.Now()
	report := sanitize.EmailList(emails, v.cfg.MaxBulkSize)
	list := report.Emails

	out := BulkResult{
		Results: make([]ValidationResult, len(list)),
		Metadata: BulkMetadata{
			Total:             len(list),
			DuplicatesRemoved: report.DuplicatesRemoved,
			InvalidRemoved:    report.InvalidRemoved,
		},
	}
	if len(list) == 0 {
		out.Metadata.ProcessingTime = time.Since(start)
		return out, nil
	}

	deadline := start.Add(bulkOpts.MaxTimeout)
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	v.prewarm(runCtx, list, deadline)

	completed := 0
	for batchStart := 0; batchStart < len(list); batchStart += bulkBatchSize {
		if time.Until(deadline) < bulkMinBudget || runCtx.Err() != nil {
			out.Metadata.TimedOut = true
			break
		}
		if batchStart > 0 {
			time.Sleep(bulkBatchDelay)
		}

		end := batchStart + bulkBatchSize
		if end > len(list) {
			end = len(list)
		}

		var wg sync.WaitGroup
		for i := batchStart; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				res, err := v.Validate(runCtx, list[i], opts)
				if err != nil {
					res = placeholderResult(list[i])
				}
				out.Results[i] = res
			}(i)
		}
		wg.Wait()

		completed = end
		if bulkOpts.Progress != nil {
			bulkOpts.Progress(completed, len(list))
		}
	}

	for i := completed; i < len(list); i++ {
		out.Results[i] = placeholderResult(list[i])
	}

	out.Metadata.Completed = completed
	out.Metadata.ProcessingTime = time.Since(start)

	v.log.Info("bulk validation finished",
		zap.Int("total", out.Metadata.Total),
		zap.Int("completed", completed),
		zap.Bool("timedOut", out.Metadata.TimedOut),
		zap.Duration("took", out.Metadata.ProcessingTime))
	return out, nil
}

// prewarm resolves the unique domains of the list in small batches so
// the per-address validations hit warm DNS caches.
func (v *Validator) prewarm(ctx context.Context, list []string, deadline time.Time) {
	seen := make(map[string]struct{})
	var domains []string
	for _, email := range list {
		addr := parse.NewAddress(email)
		if !addr.Valid {
			continue
		}
		if _, ok := seen[addr.Domain]; ok {
			continue
		}
		seen[addr.Domain] = struct{}{}
		domains = append(domains, addr.Domain)
	}

	for batchStart := 0; batchStart < len(domains); batchStart += prewarmBatchSize {
		if time.Until(deadline) < bulkMinBudget || ctx.Err() != nil {
			return
		}
		end := batchStart + prewarmBatchSize
		if end > len(domains) {
			end = len(domains)
		}

		var wg sync.WaitGroup
		for _, domain := range domains[batchStart:end] {
			wg.Add(1)
			go func(domain string) {
				defer wg.Done()
				// Results land in the MX cache; failures are fine here.
				_ = v.mx.Check(ctx, domain)
			}(domain)
		}
		wg.Wait()
	}
}

// placeholderResult is the verdict recorded for entries the deadline cut
// off.
func placeholderResult(email string) ValidationResult {
	return ValidationResult{
		Email:          email,
		IsValid:        false,
		Score:          0,
		Deliverability: types.Unknown,
		Risk:           types.RiskHigh,
		Message:        timedOutMessage,
		Timestamp:      time.Now(),
	}
}
