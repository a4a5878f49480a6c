package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/transaction-desk/internal/attachment"
	"github.com/jonathan/transaction-desk/internal/mailer"
	"github.com/jonathan/transaction-desk/internal/mapping"
	"github.com/jonathan/transaction-desk/internal/objectstore"
	"github.com/jonathan/transaction-desk/internal/pipeline/steps"
	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/recordstore"
	"github.com/jonathan/transaction-desk/internal/types"
)

// run is the per-submission state threaded through the stage actions.
type run struct {
	attempt     *types.DeliveryAttempt
	record      types.TransactionRecord
	tracker     *progress.Tracker
	conditioned attachment.Result
	// detail narrates a successful stage that did something unusual.
	detail string
	logger *zap.Logger
}

func (r *run) advance() {
	if r.detail != "" {
		r.tracker.AdvanceWithDetail(r.detail)
	} else {
		r.tracker.Advance()
	}
	r.detail = ""
}

type action func(ctx context.Context, r *run) error

// failureHandler decides what a failed action means for the submission.
// Returning an error ends the submission; returning nil moves on.
type failureHandler func(ctx context.Context, r *run, err error) error

type stage struct {
	id        types.Stage
	action    action
	onFailure failureHandler
}

// plan is the submission sequence. Storage is always tried before the
// record attachment channel, which has the smallest ceiling.
func (o *Orchestrator) plan() []stage {
	return []stage{
		{id: types.StageSave, action: o.save, onFailure: abort},
		{id: types.StageGenerate, action: o.generate, onFailure: abort},
		{id: types.StageEmail, action: o.email, onFailure: absorb(ChannelEmail)},
		{id: types.StageStore, action: o.upload, onFailure: fallbackTo(ChannelStorage, o.attach, o.manualFollowUp)},
	}
}

func (o *Orchestrator) runStage(ctx context.Context, r *run, st stage) error {
	r.attempt.Stage = st.id
	ctx, span := o.tracer.Start(ctx, "pipeline."+string(st.id), trace.WithAttributes(attemptAttrs(r.attempt)...))
	defer span.End()

	log := r.logger.With(zap.String("stage", string(st.id)))
	log.Debug("stage started", zap.String("record_id", r.attempt.RecordID))

	if err := checkOrder(r, st.id); err != nil {
		handleSpanError(span, "stage out of order", err)
		return abort(ctx, r, err)
	}

	err := st.action(ctx, r)
	if err == nil {
		log.Debug("stage finished", zap.String("record_id", r.attempt.RecordID))
		r.advance()
		return nil
	}

	handleSpanError(span, "stage failed", err)
	return st.onFailure(ctx, r, err)
}

// checkOrder rejects a stage table that would run a stage out of sequence
// or before its dependencies completed.
func checkOrder(r *run, id types.Stage) error {
	snap := r.tracker.Snapshot()
	if want := steps.IndexOf(id); snap.Current != want {
		return fmt.Errorf("stage %s reached at step %d, expected step %d", id, snap.Current, want)
	}
	return steps.ValidateDependencies(snap.Steps, string(id))
}

// abort ends the submission with err.
func abort(_ context.Context, r *run, err error) error {
	r.attempt.Error = err.Error()
	r.tracker.Fail(err.Error())
	r.logger.Error("submission stopped",
		zap.String("stage", string(r.attempt.Stage)),
		zap.String("record_id", r.attempt.RecordID),
		zap.Error(err))
	return err
}

// absorb records a channel failure and moves on.
func absorb(channel string) failureHandler {
	return func(_ context.Context, r *run, err error) error {
		r.attempt.AddChannelError(channel, err)
		r.logger.Warn("delivery channel failed",
			zap.String("channel", channel),
			zap.String("record_id", r.attempt.RecordID),
			zap.Error(err))
		r.detail = ""
		r.tracker.AdvanceWithDetail(err.Error())
		return nil
	}
}

// fallbackTo records a channel failure and runs alt in its place. When alt
// fails too, onAltFailure decides.
func fallbackTo(channel string, alt action, onAltFailure failureHandler) failureHandler {
	return func(ctx context.Context, r *run, err error) error {
		r.attempt.AddChannelError(channel, err)
		r.logger.Warn("delivery channel failed, trying fallback",
			zap.String("channel", channel),
			zap.String("record_id", r.attempt.RecordID),
			zap.Error(err))
		r.detail = ""

		if altErr := alt(ctx, r); altErr != nil {
			return onAltFailure(ctx, r, altErr)
		}
		r.advance()
		return nil
	}
}

func (o *Orchestrator) save(ctx context.Context, r *run) error {
	if r.attempt.RecordID != "" {
		r.logger.Info("record already saved, skipping create", zap.String("record_id", r.attempt.RecordID))
		r.detail = "Record already saved"
		return nil
	}

	id, err := o.deps.Store.CreateTransaction(ctx, r.record)
	if err != nil {
		return err
	}
	r.attempt.RecordID = id
	r.record = r.record.WithRecordID(id)
	r.logger.Info("record saved", zap.String("record_id", id))

	r.attempt.PartyErrors = o.saveParties(ctx, r)
	if n := len(r.attempt.PartyErrors); n > 0 {
		r.detail = fmt.Sprintf("%d of %d parties could not be saved", n, len(r.record.Parties))
	}
	return nil
}

// saveParties writes the child party rows concurrently. Failures are
// collected per party and never fail the save.
func (o *Orchestrator) saveParties(ctx context.Context, r *run) []types.PartyError {
	var (
		g      errgroup.Group
		mu     sync.Mutex
		failed []types.PartyError
	)
	g.SetLimit(o.opts.PartyConcurrency)

	joinKey := recordstore.JoinKey(r.record)
	for i, p := range r.record.Parties {
		row := recordstore.PartyRow{
			RecordID: r.attempt.RecordID,
			JoinKey:  joinKey,
			Index:    i,
			Side:     mapping.NormalizePartySide(p.Role),
			Party:    p,
		}
		g.Go(func() error {
			if err := o.deps.Store.CreateParty(ctx, row); err != nil {
				r.logger.Warn("party not saved",
					zap.Int("index", row.Index),
					zap.String("record_id", row.RecordID),
					zap.Error(err))
				mu.Lock()
				failed = append(failed, types.PartyError{Index: row.Index, Name: p.Name, Message: err.Error()})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failed, func(i, j int) bool { return failed[i].Index < failed[j].Index })
	return failed
}

func (o *Orchestrator) generate(ctx context.Context, r *run) error {
	doc, err := o.render(ctx, r.record)
	if err != nil {
		return err
	}

	r.attempt.Document = doc
	r.attempt.DocumentSize = len(doc)
	r.attempt.DocumentName = mailer.AttachmentName(r.record.Property.Address, o.now())

	r.conditioned = o.deps.Governor.Condition(ctx, doc, o.opts.AttachmentCeiling)
	if r.conditioned.Note != "" {
		r.attempt.Note = r.conditioned.Note
		r.detail = r.conditioned.Note
	}
	r.logger.Info("document generated",
		zap.String("record_id", r.attempt.RecordID),
		zap.Int("size", len(doc)),
		zap.String("conditioned", string(r.conditioned.Outcome)))
	return nil
}

// render calls the generator under the render timeout. A generator that
// ignores its context is abandoned at the deadline.
func (o *Orchestrator) render(ctx context.Context, rec types.TransactionRecord) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.RenderTimeout)
	defer cancel()

	type result struct {
		doc []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		doc, err := o.deps.Generator.Generate(ctx, rec)
		done <- result{doc: doc, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &RenderTimeoutError{Timeout: o.opts.RenderTimeout, Cause: res.err}
		}
		return res.doc, res.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &RenderTimeoutError{Timeout: o.opts.RenderTimeout, Cause: ctx.Err()}
		}
		return nil, ctx.Err()
	}
}

func (o *Orchestrator) email(ctx context.Context, r *run) error {
	if o.deps.Mailer == nil {
		r.detail = "Email is not configured"
		return nil
	}

	notice := mailer.Notice{
		Record:       r.record,
		Document:     r.conditioned.Bytes,
		DocumentName: r.attempt.DocumentName,
		Note:         r.conditioned.Note,
	}
	err := o.breakers.execute(ChannelEmail, func() error {
		return o.deps.Mailer.Deliver(ctx, notice)
	})
	if err != nil {
		return &DeliveryChannelError{Channel: ChannelEmail, Message: "notification email not sent", Cause: err}
	}
	r.attempt.EmailSent = true
	return nil
}

func (o *Orchestrator) upload(ctx context.Context, r *run) error {
	if o.deps.Uploader == nil {
		return &DeliveryChannelError{Channel: ChannelStorage, Message: "object storage is not configured"}
	}

	key := objectstore.Key(r.attempt.RecordID, r.record.Property.ListingID)
	var url string
	err := o.breakers.execute(ChannelStorage, func() error {
		var err error
		url, err = o.deps.Uploader.Upload(ctx, key, r.attempt.Document)
		return err
	})
	if err != nil {
		return &DeliveryChannelError{Channel: ChannelStorage, Message: "document not uploaded", Cause: err}
	}
	r.attempt.StorageURL = url
	r.attempt.AttachmentOutcome = types.AttachmentAttached

	if err := o.deps.Store.LinkDocumentURL(ctx, r.attempt.RecordID, url); err != nil {
		r.logger.Warn("document url not linked on record",
			zap.String("record_id", r.attempt.RecordID),
			zap.String("url", url),
			zap.Error(err))
		r.detail = "Document stored, but its link could not be saved on the record"
	}
	return nil
}

// attach stores the conditioned document on the record, trying each
// candidate attachment field in order.
func (o *Orchestrator) attach(ctx context.Context, r *run) error {
	res := r.conditioned
	if res.Outcome == attachment.OutcomeNone {
		return &attachment.SizeLimitError{
			Size:    res.OriginalSize,
			Ceiling: o.opts.AttachmentCeiling,
			Message: "document cannot be reduced under the attachment ceiling",
		}
	}

	var errs []error
	for _, field := range o.opts.AttachmentFields {
		err := o.breakers.execute(ChannelAttach, func() error {
			return o.deps.Store.AttachDocument(ctx, r.attempt.RecordID, field, r.attempt.DocumentName, res.Bytes)
		})
		if err == nil {
			r.attempt.AttachmentField = field
			r.attempt.AttachmentOutcome = attachmentOutcome(res.Outcome)
			r.detail = "Document attached to the record"
			r.logger.Info("document attached to record",
				zap.String("record_id", r.attempt.RecordID),
				zap.String("field", field))
			return nil
		}
		r.logger.Debug("attachment field rejected document", zap.String("field", field), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", field, err))
	}
	return &DeliveryChannelError{
		Channel: ChannelAttach,
		Message: "no attachment field accepted the document",
		Cause:   errors.Join(errs...),
	}
}

// manualFollowUp closes a submission whose document reached neither storage
// nor the record. The record exists, so the submission still completes.
func (o *Orchestrator) manualFollowUp(_ context.Context, r *run, err error) error {
	r.attempt.AddChannelError(ChannelAttach, err)
	r.attempt.AttachmentOutcome = types.AttachmentNone

	followUp := fmt.Sprintf("The document could not be stored or attached to record %s. Manual follow-up is required to deliver it.", r.attempt.RecordID)
	r.attempt.Note = joinNotes(followUp, r.attempt.Note)

	r.logger.Error("document not delivered to any channel",
		zap.String("record_id", r.attempt.RecordID),
		zap.Error(err))
	r.detail = ""
	r.tracker.AdvanceWithDetail(followUp)
	return nil
}

func attachmentOutcome(o attachment.Outcome) types.AttachmentOutcome {
	switch o {
	case attachment.OutcomeCompressed:
		return types.AttachmentCompressed
	case attachment.OutcomeTruncated:
		return types.AttachmentTruncated
	case attachment.OutcomeNone:
		return types.AttachmentNone
	default:
		return types.AttachmentAttached
	}
}

func joinNotes(notes ...string) string {
	kept := notes[:0:0]
	for _, n := range notes {
		if n = strings.TrimSpace(n); n != "" {
			kept = append(kept, n)
		}
	}
	return strings.Join(kept, " ")
}

func attemptAttrs(a *types.DeliveryAttempt) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("attempt.id", a.ID),
		attribute.String("record.id", a.RecordID),
	}
}

// handleSpanError sets the span status to error and records err.
func handleSpanError(span trace.Span, message string, err error) {
	if span == nil || err == nil {
		return
	}
	span.SetStatus(codes.Error, message+": "+err.Error())
	span.RecordError(err)
}
