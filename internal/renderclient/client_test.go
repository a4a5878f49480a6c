package renderclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transaction-desk/internal/types"
)

type staticTokens struct {
	token string
	err   error
	got   string
}

func (s *staticTokens) GenerateToken(recordID string) (string, error) {
	s.got = recordID
	return s.token, s.err
}

func record() types.TransactionRecord {
	return types.TransactionRecord{
		RecordID: "rec42",
		Property: types.Property{Address: "12 Orchard Lane"},
		Agent:    types.AgentIdentity{Name: "Dana", Role: "buyer"},
	}
}

func TestGenerate(t *testing.T) {
	doc := []byte("%PDF-1.4 remote")
	var gotAuth string
	var gotReq Request

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(Response{PDFBase64: base64.StdEncoding.EncodeToString(doc), PageCount: 2})
	}))
	defer srv.Close()

	tokens := &staticTokens{token: "signed"}
	c := New(srv.URL, WithTokenSource(tokens))

	got, err := c.Generate(context.Background(), record())
	require.NoError(t, err)
	assert.Equal(t, doc, got)
	assert.Equal(t, "Bearer signed", gotAuth)
	assert.Equal(t, "rec42", tokens.got)
	assert.Equal(t, "rec42", gotReq.RecordID)
	assert.Equal(t, "12 Orchard Lane", gotReq.Record.Property.Address)
}

func TestGenerate_ErrorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(Response{Error: "template error: template is empty"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), record())
	var renderErr *Error
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, http.StatusUnprocessableEntity, renderErr.StatusCode)
	assert.Contains(t, renderErr.Message, "template is empty")
}

func TestGenerate_NonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), record())
	var renderErr *Error
	require.ErrorAs(t, err, &renderErr)
	assert.Equal(t, http.StatusUnauthorized, renderErr.StatusCode)
	assert.Equal(t, "Unauthorized", renderErr.Message)
}

func TestGenerate_InvalidBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pdf_base64":"!!!"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), record())
	var renderErr *Error
	require.ErrorAs(t, err, &renderErr)
	assert.Contains(t, renderErr.Message, "base64")
}

func TestGenerate_EmptyDocument(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL).Generate(context.Background(), record())
	assert.Error(t, err)
}

func TestGenerate_TokenFailure(t *testing.T) {
	c := New("http://127.0.0.1:1", WithTokenSource(&staticTokens{err: errors.New("no secret")}))
	_, err := c.Generate(context.Background(), record())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to sign render request")
}

func TestGenerate_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := New(srv.URL).Generate(ctx, record())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
