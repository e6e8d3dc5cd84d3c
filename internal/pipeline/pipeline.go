// Package pipeline moves review texts through an engine into an output,
// either as a known list or as a stream that is scored in small batches.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/reviewclf/internal/logging"
	"github.com/crimson-sun/reviewclf/internal/model"
	"github.com/crimson-sun/reviewclf/internal/output"
)

const (
	defaultBatchSize = 64
	defaultWindow    = 200 * time.Millisecond
)

// Processor scores a batch of texts, one prediction per text in order.
type Processor interface {
	ProcessBatch(texts []string) ([]model.Prediction, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize caps how many texts are scored per Processor call.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushWindow sets how long Stream holds a partial batch before scoring
// it anyway.
func WithFlushWindow(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.window = d
		}
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// Pipeline connects a processor and an output.
type Pipeline struct {
	proc      Processor
	out       output.Output
	batchSize int
	window    time.Duration
	logger    *slog.Logger
}

// New creates a Pipeline from the given components.
func New(proc Processor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		proc:      proc,
		out:       out,
		batchSize: defaultBatchSize,
		window:    defaultWindow,
		logger:    logging.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run scores texts in batches and writes every prediction in input order.
// It returns the number of predictions written.
func (p *Pipeline) Run(ctx context.Context, texts []string) (int, error) {
	written := 0
	for start := 0; start < len(texts); start += p.batchSize {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		end := min(start+p.batchSize, len(texts))
		n, err := p.score(ctx, texts[start:end])
		written += n
		if err != nil {
			return written, err
		}
	}
	p.logger.Debug("pipeline run finished", "written", written)
	return written, nil
}

// Stream scores texts as they arrive on ch until ch closes or ctx is done.
// A batch is scored once it is full or once the flush window has passed
// since its first text. Pending texts are still scored when ctx is done.
func (p *Pipeline) Stream(ctx context.Context, ch <-chan string) (int, error) {
	buf := newStreamBuffer(p.window, p.batchSize)
	written := 0
	flush := func(ctx context.Context) error {
		n, err := p.score(ctx, buf.drain())
		written += n
		return err
	}

	for {
		select {
		case <-ctx.Done():
			if err := flush(context.WithoutCancel(ctx)); err != nil {
				return written, err
			}
			return written, ctx.Err()
		case text, ok := <-ch:
			if !ok {
				err := flush(ctx)
				p.logger.Debug("pipeline stream finished", "written", written)
				return written, err
			}
			if buf.add(text) {
				if err := flush(ctx); err != nil {
					return written, err
				}
			}
		case <-buf.flushCh():
			if err := flush(ctx); err != nil {
				return written, err
			}
		}
	}
}

func (p *Pipeline) score(ctx context.Context, texts []string) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	preds, err := p.proc.ProcessBatch(texts)
	if err != nil {
		return 0, fmt.Errorf("pipeline process: %w", err)
	}
	for i, pred := range preds {
		if err := p.out.Write(ctx, pred); err != nil {
			return i, fmt.Errorf("pipeline output: %w", err)
		}
	}
	return len(preds), nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.out.Close()
}
