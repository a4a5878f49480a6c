package server

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/jonathan/transaction-desk/internal/renderclient"
	"github.com/jonathan/transaction-desk/internal/rendering"
	"github.com/jonathan/transaction-desk/internal/schemas"
	"github.com/jonathan/transaction-desk/internal/server/middleware"
)

// renderRequest keeps the record raw so it can be checked against its own
// schema before decoding.
type renderRequest struct {
	Record   json.RawMessage `json:"record"`
	RecordID string          `json:"record_id"`
}

// handleRender produces the transaction document for one record. The
// caller's token must have been issued for the requested record id.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		s.renderFailure(w, err)
		return
	}
	if err := schemas.Validate(schemas.RenderRequest, body); err != nil {
		s.renderFailure(w, err)
		return
	}

	var req renderRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.renderFailure(w, &ErrValidation{Field: "(root)", Message: err.Error()})
		return
	}

	tokenRecordID, err := middleware.GetRecordID(r)
	if err != nil || tokenRecordID != req.RecordID {
		s.renderFailure(w, &ErrForbidden{Message: "token was not issued for this record"})
		return
	}

	rec, err := decodeRecord(req.Record)
	if err != nil {
		s.renderFailure(w, err)
		return
	}
	rec = rec.WithRecordID(req.RecordID)

	doc, err := s.renderer.Generate(r.Context(), rec)
	if err != nil {
		s.renderFailure(w, err)
		return
	}
	pages, err := rendering.PageCount(doc)
	if err != nil {
		s.renderFailure(w, err)
		return
	}

	s.logger.Info("document rendered",
		zap.String("record_id", req.RecordID),
		zap.Int("pages", pages),
		zap.Int("bytes", len(doc)))
	s.jsonResponse(w, http.StatusOK, renderclient.Response{
		PDFBase64: base64.StdEncoding.EncodeToString(doc),
		PageCount: pages,
	})
}

// renderFailure replies in the rendering endpoint's error shape.
func (s *Server) renderFailure(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("render failed", zap.Error(err))
	}
	s.jsonResponse(w, status, renderclient.Response{Error: err.Error()})
}
