// Package pipeline orchestrates a transaction submission: it saves the
// record, generates the transaction sheet and delivers it through email,
// object storage and the record store.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/attachment"
	"github.com/jonathan/transaction-desk/internal/config"
	"github.com/jonathan/transaction-desk/internal/mailer"
	"github.com/jonathan/transaction-desk/internal/pipeline/steps"
	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/recordstore"
	"github.com/jonathan/transaction-desk/internal/types"
)

const tracerName = "github.com/jonathan/transaction-desk/internal/pipeline"

// DefaultRenderTimeout bounds a single document-rendering call.
const DefaultRenderTimeout = 30 * time.Second

// ProgressCallback is called whenever the step sequence changes.
type ProgressCallback func(snapshot progress.Snapshot)

// Notifier sends the notification email.
type Notifier interface {
	Deliver(ctx context.Context, n mailer.Notice) error
}

// Uploader stores a document and returns a retrievable URL.
type Uploader interface {
	Upload(ctx context.Context, key string, doc []byte) (string, error)
}

// Conditioner fits a document under a channel's attachment ceiling.
type Conditioner interface {
	Condition(ctx context.Context, blob []byte, ceiling int) attachment.Result
}

// Dependencies are the external collaborators of an Orchestrator. Mailer
// and Uploader are optional; a missing channel is skipped.
type Dependencies struct {
	Store     recordstore.Store
	Generator Generator
	Mailer    Notifier
	Uploader  Uploader
	Governor  Conditioner
}

// Options tunes an Orchestrator.
type Options struct {
	RenderTimeout     time.Duration
	AttachmentCeiling int
	AttachmentFields  []string
	// PartyConcurrency caps concurrent party row writes.
	PartyConcurrency int
	Breakers         BreakerOptions
	Logger           *zap.Logger
	Tracer           trace.Tracer
	Now              func() time.Time
}

// Orchestrator runs submissions. One Orchestrator serves concurrent
// submissions; nothing but the channel breakers is shared between them.
type Orchestrator struct {
	deps     Dependencies
	opts     Options
	breakers *channelBreakers
	logger   *zap.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates an Orchestrator. Store, Generator and Governor are required.
func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if deps.Generator == nil {
		return nil, fmt.Errorf("document generator is required")
	}
	if deps.Governor == nil {
		return nil, fmt.Errorf("attachment governor is required")
	}

	if opts.RenderTimeout <= 0 {
		opts.RenderTimeout = DefaultRenderTimeout
	}
	if opts.AttachmentCeiling <= 0 {
		opts.AttachmentCeiling = config.DefaultRecordStoreCeiling
	}
	if len(opts.AttachmentFields) == 0 {
		opts.AttachmentFields = config.DefaultAttachmentFields
	}
	if opts.PartyConcurrency <= 0 {
		opts.PartyConcurrency = 4
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Orchestrator{
		deps:     deps,
		opts:     opts,
		breakers: newChannelBreakers(opts.Breakers, logger),
		logger:   logger,
		tracer:   tracer,
		now:      now,
	}, nil
}

// Submit runs one submission to a terminal state. The returned attempt is
// never nil. The error is non-nil only when the submission stopped before a
// document existed: a save failure, returned verbatim, or a generate
// failure. Delivery channel failures are recorded on the attempt instead.
func (o *Orchestrator) Submit(ctx context.Context, rec types.TransactionRecord, onProgress ProgressCallback) (*types.DeliveryAttempt, error) {
	attempt := &types.DeliveryAttempt{
		ID:        uuid.New().String(),
		RecordID:  rec.RecordID,
		Stage:     types.StageSave,
		StartedAt: o.now(),
	}

	r := &run{
		attempt: attempt,
		record:  rec,
		tracker: progress.NewTracker(steps.NewSteps(), onProgress),
		logger: o.logger.With(
			zap.String("attempt_id", attempt.ID),
			zap.String("address", rec.Property.Address)),
	}

	ctx, span := o.tracer.Start(ctx, "pipeline.Submit", trace.WithAttributes(attemptAttrs(attempt)...))
	defer span.End()

	for _, st := range o.plan() {
		if err := o.runStage(ctx, r, st); err != nil {
			handleSpanError(span, "submission failed", err)
			return attempt, err
		}
	}

	attempt.Stage = types.StageComplete
	completed := o.now()
	attempt.CompletedAt = &completed
	r.tracker.Advance()
	r.logger.Info("submission complete",
		zap.String("record_id", attempt.RecordID),
		zap.Bool("email_sent", attempt.EmailSent),
		zap.String("attachment_outcome", string(attempt.AttachmentOutcome)))
	return attempt, nil
}

// Steps returns a fresh, untouched step sequence for presentation layers
// that render the sequence before a submission starts.
func Steps() []progress.Step {
	return steps.NewSteps()
}
