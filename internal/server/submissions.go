package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/schemas"
	"github.com/jonathan/transaction-desk/internal/types"
)

// submissionResponse is the body returned for a finished submission.
type submissionResponse struct {
	Attempt  *types.DeliveryAttempt `json:"attempt"`
	Progress progress.Snapshot      `json:"progress"`
	Error    string                 `json:"error,omitempty"`
}

// readBody reads a bounded request body.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &ErrValidation{Field: "(body)", Message: err.Error()}
	}
	return body, nil
}

// decodeRecord checks raw JSON against the record schema and then decodes
// and validates the typed record.
func decodeRecord(raw []byte) (types.TransactionRecord, error) {
	var rec types.TransactionRecord
	if err := schemas.Validate(schemas.TransactionRecord, raw); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return rec, &ErrValidation{Field: "(root)", Message: fmt.Sprintf("invalid record: %v", err)}
	}
	if err := rec.Validate(); err != nil {
		return rec, validationError(err)
	}
	return rec, nil
}

// handleSubmit runs a submission and replies once it reaches a terminal
// state. The attempt is included even when the submission failed.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	rec, err := decodeRecord(body)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	var last progress.Snapshot
	attempt, err := s.submitter.Submit(r.Context(), rec, func(snap progress.Snapshot) {
		last = snap
	})

	resp := submissionResponse{Attempt: attempt, Progress: last}
	status := http.StatusOK
	if err != nil {
		s.logger.Warn("submission failed", zap.Error(err))
		resp.Error = err.Error()
		status = HTTPStatus(err)
	}
	s.jsonResponse(w, status, resp)
}

// handleSubmitStream runs a submission and streams every progress change.
// The stream ends with a complete event, or an error event when the
// submission could not finish.
func (s *Server) handleSubmitStream(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	rec, err := decodeRecord(body)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	attempt, err := s.submitter.Submit(r.Context(), rec, func(snap progress.Snapshot) {
		if werr := sse.WriteEvent(eventProgress, snap); werr != nil {
			s.logger.Debug("progress event not delivered", zap.Error(werr))
		}
	})

	final := submissionResponse{Attempt: attempt}
	event := eventComplete
	if err != nil {
		final.Error = err.Error()
		event = eventError
	}
	if werr := sse.WriteEvent(event, final); werr != nil {
		s.logger.Debug("final event not delivered", zap.Error(werr))
	}
}
