// Package attachment fits generated documents under a channel's attachment
// ceiling, degrading to compression, truncation or a fallback note.
package attachment

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Outcome is the governor's decision for one blob.
type Outcome string

// Outcome values
const (
	OutcomeUnchanged  Outcome = "unchanged"
	OutcomeCompressed Outcome = "compressed"
	OutcomeTruncated  Outcome = "truncated"
	OutcomeNone       Outcome = "none"
)

// Result is what Condition hands back. Bytes is nil when Outcome is
// OutcomeNone; Note is always set for OutcomeTruncated and OutcomeNone.
type Result struct {
	Outcome      Outcome
	Bytes        []byte
	Note         string
	OriginalSize int
	Rounds       int
}

// Compressor reduces a blob toward target bytes. It may return a result
// larger than target; it must not modify blob.
type Compressor interface {
	Compress(ctx context.Context, blob []byte, target int) ([]byte, error)
}

// Options bounds the compression loop.
type Options struct {
	// MaxRounds is the number of compression attempts before giving up.
	MaxRounds int
	// ShrinkFactor is the fraction of the current size each round targets.
	ShrinkFactor float64
	// TruncateMargin is how far over the ceiling, as a fraction of it, a
	// compressed result may be and still be truncated to fit.
	TruncateMargin float64
}

// DefaultOptions returns three rounds at 70% each with a 5% truncation margin.
func DefaultOptions() Options {
	return Options{MaxRounds: 3, ShrinkFactor: 0.7, TruncateMargin: 0.05}
}

func (o Options) normalize() Options {
	d := DefaultOptions()
	if o.MaxRounds <= 0 {
		o.MaxRounds = d.MaxRounds
	}
	if o.ShrinkFactor <= 0 || o.ShrinkFactor >= 1 {
		o.ShrinkFactor = d.ShrinkFactor
	}
	if o.TruncateMargin < 0 {
		o.TruncateMargin = d.TruncateMargin
	}
	return o
}

// Governor conditions blobs against a byte ceiling.
type Governor struct {
	compressor Compressor
	opts       Options
	logger     *zap.Logger
}

// NewGovernor creates a Governor. A nil compressor disables compression, so
// oversized blobs go straight to the note fallback.
func NewGovernor(compressor Compressor, opts Options, logger *zap.Logger) *Governor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Governor{compressor: compressor, opts: opts.normalize(), logger: logger}
}

// Condition decides how blob can be delivered under ceiling bytes. A blob
// that already fits is returned untouched. It never fails: the worst case
// is OutcomeNone with a note for a human.
func (g *Governor) Condition(ctx context.Context, blob []byte, ceiling int) Result {
	res := Result{OriginalSize: len(blob)}
	if len(blob) <= ceiling {
		res.Outcome = OutcomeUnchanged
		res.Bytes = blob
		return res
	}

	current := blob
	compressed := false
	if g.compressor != nil {
		for round := 1; round <= g.opts.MaxRounds; round++ {
			if ctx.Err() != nil {
				break
			}
			target := int(float64(len(current)) * g.opts.ShrinkFactor)
			out, err := g.compressor.Compress(ctx, current, target)
			res.Rounds = round
			if err != nil {
				g.logger.Warn("compression round failed", zap.Int("round", round), zap.Error(err))
				break
			}
			if len(out) >= len(current) {
				g.logger.Debug("compression made no progress", zap.Int("round", round), zap.Int("size", len(out)))
				break
			}
			current = out
			compressed = true
			g.logger.Debug("compression round",
				zap.Int("round", round),
				zap.Int("target", target),
				zap.Int("size", len(current)))
			if len(current) <= ceiling {
				res.Outcome = OutcomeCompressed
				res.Bytes = current
				return res
			}
		}
	}

	limit := int(float64(ceiling) * (1 + g.opts.TruncateMargin))
	if compressed && len(current) <= limit {
		res.Outcome = OutcomeTruncated
		res.Bytes = append([]byte(nil), current[:ceiling]...)
		res.Note = fmt.Sprintf(
			"The attached document was cut from %d to %d bytes to fit the attachment limit and may be incomplete. Please request the full document from the sender.",
			len(current), ceiling)
		return res
	}

	res.Outcome = OutcomeNone
	res.Note = fmt.Sprintf(
		"The generated document is %d bytes, above the %d byte attachment limit, and could not be reduced enough to attach. Share it through a file-sharing link instead.",
		len(blob), ceiling)
	return res
}

// ConditionStrict is Condition for channels that cannot carry a note in
// place of the document. OutcomeNone becomes a SizeLimitError.
func (g *Governor) ConditionStrict(ctx context.Context, blob []byte, ceiling int) (Result, error) {
	res := g.Condition(ctx, blob, ceiling)
	if res.Outcome == OutcomeNone {
		return res, &SizeLimitError{Size: len(blob), Ceiling: ceiling, Message: "document cannot be reduced under the attachment ceiling"}
	}
	return res, nil
}
