package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-scorer-go/internal/classifier"
	"inbox-scorer-go/internal/config"
	"inbox-scorer-go/internal/mailbox"
	"inbox-scorer-go/internal/metrics"
	"inbox-scorer-go/internal/model"
	"inbox-scorer-go/internal/store"
	"inbox-scorer-go/internal/usage"
)

// ErrQuotaExceeded signals that scoring the current email would push the
// run's cumulative word usage past the ceiling. It halts the whole run, not
// just the item: every later scoring call would only worsen the overshoot.
var ErrQuotaExceeded = errors.New("projected word usage exceeds the quota ceiling")

// Outcome tags the terminal state of one processed candidate.
type Outcome int

const (
	OutcomeScored Outcome = iota
	OutcomeSkippedExisting
	OutcomeSkippedQuotaOrRateLimit
	OutcomeErrored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeScored:
		return "scored"
	case OutcomeSkippedExisting:
		return "skipped_existing"
	case OutcomeSkippedQuotaOrRateLimit:
		return "skipped_quota_or_rate_limit"
	case OutcomeErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Stats aggregates per-email outcomes over a run.
type Stats struct {
	Scored                  int `json:"scored"`
	SkippedAlreadyScored    int `json:"skipped_already_scored"`
	SkippedQuotaOrRateLimit int `json:"skipped_quota_or_rate_limit"`
	Errored                 int `json:"errored"`
}

// RunReport is the end-of-run summary: outcome statistics plus the final
// usage ledger snapshot.
type RunReport struct {
	Stats          Stats          `json:"stats"`
	Usage          usage.Snapshot `json:"usage"`
	CandidateCount int            `json:"candidate_count"`
	HaltedOnQuota  bool           `json:"halted_on_quota"`
	StartedAt      time.Time      `json:"started_at"`
	FinishedAt     time.Time      `json:"finished_at"`
}

// Pipeline ingests candidate emails sequentially: skip already-scored
// identities, fetch, score under the word quota, persist. A fresh usage
// ledger is created per run, so the ceiling is a per-run cap.
type Pipeline struct {
	source      mailbox.Source
	store       store.RecordStore
	classifier  classifier.Classifier
	metrics     *metrics.Metrics
	filter      string
	maxResults  int64
	wordCeiling int
	pacingDelay time.Duration
}

// New creates a pipeline over the given collaborators and scan policy.
// metrics may be nil.
func New(source mailbox.Source, recordStore store.RecordStore, cls classifier.Classifier, m *metrics.Metrics, cfg *config.ScanConfig) *Pipeline {
	return &Pipeline{
		source:      source,
		store:       recordStore,
		classifier:  cls,
		metrics:     m,
		filter:      mailbox.BuildSenderFilter(cfg.AllowedDomains),
		maxResults:  cfg.MaxResults,
		wordCeiling: cfg.WordCeiling,
		pacingDelay: cfg.PacingDelay,
	}
}

// Run lists candidates once and processes them sequentially. No per-email
// failure terminates the run; only a projected quota overshoot stops
// iteration early, and only a candidate listing failure is returned as an
// error. Cancellation is honored between emails.
func (p *Pipeline) Run(ctx context.Context) (*RunReport, error) {
	ledger := usage.NewLedger(p.wordCeiling)
	report := &RunReport{StartedAt: time.Now()}
	if p.metrics != nil {
		p.metrics.RunCount.Inc()
	}

	ids, err := p.source.ListCandidates(ctx, p.filter, p.maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	report.CandidateCount = len(ids)

	if len(ids) == 0 {
		logrus.Info("No matching emails found")
	} else {
		logrus.Infof("Found %d emails to process", len(ids))
	}

	for i, id := range ids {
		select {
		case <-ctx.Done():
			p.finish(report, ledger)
			return report, ctx.Err()
		default:
		}

		outcome, persisted, err := p.processOne(ctx, id, ledger)
		if errors.Is(err, ErrQuotaExceeded) {
			logrus.Warnf("Email %d/%d would exceed the word ceiling, halting run", i+1, len(ids))
			report.HaltedOnQuota = true
			if p.metrics != nil {
				p.metrics.QuotaHalts.Inc()
			}
			break
		}

		p.tally(&report.Stats, outcome)
		logrus.Infof("Email %d/%d: %s", i+1, len(ids), outcome)

		if persisted && p.pacingDelay > 0 {
			time.Sleep(p.pacingDelay)
		}
	}

	p.finish(report, ledger)
	return report, nil
}

// processOne runs the per-email state machine. Item-local failures are
// folded into OutcomeErrored; the only error returned is ErrQuotaExceeded.
// The second return value reports whether the record was persisted, which
// is what the pacing delay keys on.
func (p *Pipeline) processOne(ctx context.Context, id string, ledger *usage.Ledger) (Outcome, bool, error) {
	found, hasScores, err := p.store.Exists(id)
	if err != nil {
		logrus.Errorf("Failed to check email %s: %v", id, err)
		return OutcomeErrored, false, nil
	}
	if found && hasScores {
		return OutcomeSkippedExisting, false, nil
	}

	msg, err := p.source.FetchMessage(ctx, id)
	if err != nil {
		logrus.Errorf("Failed to fetch email %s: %v", id, err)
		return OutcomeErrored, false, nil
	}
	if msg.Body == "" {
		logrus.Warnf("Email %s has no content", id)
		return OutcomeErrored, false, nil
	}

	if projected := ledger.ProjectedTotal(msg.Body); projected > ledger.Ceiling() {
		snapshot := ledger.GetSnapshot()
		logrus.Warnf("Email %s would exceed the word ceiling by %d words (%d consumed of %d)",
			id, projected-ledger.Ceiling(), snapshot.WordsConsumed, snapshot.WordCeiling)
		return OutcomeErrored, false, ErrQuotaExceeded
	}

	record := &model.Email{
		MessageID: id,
		Sender:    msg.Sender,
		Body:      msg.Body,
	}

	start := time.Now()
	result := p.classifier.Classify(ctx, msg.Body)
	if p.metrics != nil {
		p.metrics.ClassifierTime.Observe(time.Since(start).Seconds())
	}

	outcome := OutcomeScored
	switch result.Status {
	case classifier.StatusScored:
		words := ledger.RecordUsage(msg.Body)
		record.SetScores(result.AIProbability, result.HumanProbability)
		if p.metrics != nil {
			p.metrics.WordsConsumed.Add(float64(words))
		}
		logrus.Infof("Email %s scored (ai=%.2f human=%.2f, %d words, %.1f%% of quota used)",
			id, result.AIProbability, result.HumanProbability, words, ledger.GetSnapshot().PercentageUsed)
	case classifier.StatusRateLimited:
		logrus.Warnf("Email %s not scored: classifier rate limit", id)
		outcome = OutcomeSkippedQuotaOrRateLimit
	default:
		logrus.Warnf("Email %s not scored: %s", id, result.Detail)
		outcome = OutcomeSkippedQuotaOrRateLimit
	}

	// Persist with or without scores: a scoreless record keeps sender and
	// body so a later run can re-attempt scoring.
	if err := p.store.Upsert(record); err != nil {
		logrus.Errorf("Failed to persist email %s: %v", id, err)
		return OutcomeErrored, false, nil
	}

	return outcome, true, nil
}

func (p *Pipeline) tally(stats *Stats, outcome Outcome) {
	switch outcome {
	case OutcomeScored:
		stats.Scored++
		if p.metrics != nil {
			p.metrics.ScoredCount.Inc()
		}
	case OutcomeSkippedExisting:
		stats.SkippedAlreadyScored++
		if p.metrics != nil {
			p.metrics.SkippedExisting.Inc()
		}
	case OutcomeSkippedQuotaOrRateLimit:
		stats.SkippedQuotaOrRateLimit++
		if p.metrics != nil {
			p.metrics.SkippedQuota.Inc()
		}
	case OutcomeErrored:
		stats.Errored++
		if p.metrics != nil {
			p.metrics.ErrorCount.Inc()
		}
	}
}

func (p *Pipeline) finish(report *RunReport, ledger *usage.Ledger) {
	report.Usage = ledger.GetSnapshot()
	report.FinishedAt = time.Now()
	if p.metrics != nil {
		p.metrics.WordsRemaining.Set(float64(report.Usage.WordsRemaining))
	}

	logrus.Infof("Processing complete: %d scored, %d skipped (existing), %d skipped (quota/rate limit), %d errors",
		report.Stats.Scored, report.Stats.SkippedAlreadyScored,
		report.Stats.SkippedQuotaOrRateLimit, report.Stats.Errored)
	logrus.Infof("Word usage: %d of %d (%.1f%%), %d remaining, average %.0f per email",
		report.Usage.WordsConsumed, report.Usage.WordCeiling, report.Usage.PercentageUsed,
		report.Usage.WordsRemaining, report.Usage.AveragePerItem)
}
