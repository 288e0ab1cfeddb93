package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-windspeed-predictor/internal/domain"
	"github.com/couchcryptid/storm-windspeed-predictor/internal/observability"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw readings from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns one raw reading into a prediction event.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.PredictionEvent, error)
}

// BatchLoader writes prediction events to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, events []domain.PredictionEvent) error
}

// Pipeline runs the extract, predict, load, commit loop.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	connected   atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness returns nil once an extract has succeeded, even an empty one.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.connected.Load() {
		return errors.New("pipeline has not reached the source topic yet")
	}
	return nil
}

// Run executes the batch loop until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		if !p.processBatch(ctx, &backoff) {
			return nil
		}
	}
}

// processBatch runs one cycle. Returns false if the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	rawBatch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("extract batch failed", "error", err)
		return waitBackoff(ctx, backoff)
	}
	p.connected.Store(true)

	if len(rawBatch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.MessagesConsumed.Add(float64(len(rawBatch)))
	p.metrics.BatchSize.Observe(float64(len(rawBatch)))
	*backoff = initialBackoff

	events := p.predictAll(ctx, rawBatch)
	if len(events) > 0 {
		if err := p.loader.LoadBatch(ctx, events); err != nil {
			p.logger.Error("load batch failed", "error", err, "batch_size", len(events))
			return waitBackoff(ctx, backoff)
		}
		p.metrics.MessagesProduced.Add(float64(len(events)))
	}

	// Commit only after the load: a commit covers every earlier offset in
	// the partition, skipped readings included.
	for _, raw := range rawBatch {
		p.commit(ctx, raw)
	}
	if len(events) > 0 {
		p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	}
	return true
}

// predictAll transforms each reading. Readings that cannot be predicted are
// logged, counted, and dropped; they are committed with the rest of the batch
// so they are never retried.
func (p *Pipeline) predictAll(ctx context.Context, rawBatch []domain.RawEvent) []domain.PredictionEvent {
	events := make([]domain.PredictionEvent, 0, len(rawBatch))
	for _, raw := range rawBatch {
		ev, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.logger.Warn("prediction failed, skipping reading",
				"error", err,
				"key", string(raw.Key),
				"topic", raw.Topic,
				"partition", raw.Partition,
				"offset", raw.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		events = append(events, ev)
	}
	return events
}

func (p *Pipeline) commit(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

// waitBackoff sleeps for the current backoff and doubles it up to
// maxBackoff. Returns false if the context ended first.
func waitBackoff(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	timer := time.NewTimer(*backoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	*backoff = nextBackoff(*backoff)
	return true
}

func nextBackoff(current time.Duration) time.Duration {
	return min(current*2, maxBackoff)
}
