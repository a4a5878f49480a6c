package types

import "time"

// Stage identifies where a DeliveryAttempt is in the submission sequence.
type Stage string

// Stage values
const (
	StageSave     Stage = "save"
	StageGenerate Stage = "generate"
	StageEmail    Stage = "email"
	StageStore    Stage = "store"
	StageComplete Stage = "complete"
)

// AttachmentOutcome describes how the document reached the record store.
type AttachmentOutcome string

// AttachmentOutcome values. AttachmentNone means only a note could be
// delivered and a human has to follow up.
const (
	AttachmentAttached   AttachmentOutcome = "attached"
	AttachmentCompressed AttachmentOutcome = "compressed"
	AttachmentTruncated  AttachmentOutcome = "truncated"
	AttachmentNone       AttachmentOutcome = "none"
)

// PartyError records a child party row that could not be created.
type PartyError struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// ChannelError records a non-fatal delivery channel failure.
type ChannelError struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// DeliveryAttempt is the mutable run-state of one submission. It is never
// persisted.
type DeliveryAttempt struct {
	ID                string            `json:"id"`
	RecordID          string            `json:"record_id,omitempty"`
	Document          []byte            `json:"-"`
	DocumentName      string            `json:"document_name,omitempty"`
	DocumentSize      int               `json:"document_size,omitempty"`
	EmailSent         bool              `json:"email_sent"`
	StorageURL        string            `json:"storage_url,omitempty"`
	AttachmentOutcome AttachmentOutcome `json:"attachment_outcome,omitempty"`
	AttachmentField   string            `json:"attachment_field,omitempty"`
	Note              string            `json:"note,omitempty"`
	Stage             Stage             `json:"stage"`
	Error             string            `json:"error,omitempty"`
	PartyErrors       []PartyError      `json:"party_errors,omitempty"`
	ChannelErrors     []ChannelError    `json:"channel_errors,omitempty"`
	StartedAt         time.Time         `json:"started_at"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
}

// Failed reports whether the attempt ended before the durable record existed
// or before a document could be produced.
func (a *DeliveryAttempt) Failed() bool {
	return a.Error != "" && a.Stage != StageComplete
}

// AddChannelError appends a non-fatal channel failure.
func (a *DeliveryAttempt) AddChannelError(channel string, err error) {
	a.ChannelErrors = append(a.ChannelErrors, ChannelError{Channel: channel, Message: err.Error()})
}
