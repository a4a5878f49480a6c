package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/jonathan/transaction-desk/internal/attachment"
	"github.com/jonathan/transaction-desk/internal/mailer"
	"github.com/jonathan/transaction-desk/internal/recordstore"
	"github.com/jonathan/transaction-desk/internal/types"
)

type fakeStore struct {
	mu sync.Mutex

	createErr  error
	partyErrAt map[int]error
	attachErr  map[string]error
	linkErr    error

	created  int
	parties  []recordstore.PartyRow
	attached []string
	linked   string
}

func (s *fakeStore) CreateTransaction(_ context.Context, _ types.TransactionRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return "", s.createErr
	}
	s.created++
	return "rec1", nil
}

func (s *fakeStore) CreateParty(_ context.Context, row recordstore.PartyRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.partyErrAt[row.Index]; err != nil {
		return err
	}
	s.parties = append(s.parties, row)
	return nil
}

func (s *fakeStore) AttachDocument(_ context.Context, _, field, _ string, _ []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = append(s.attached, field)
	if err, ok := s.attachErr[field]; ok {
		return err
	}
	if s.attachErr["*"] != nil {
		return s.attachErr["*"]
	}
	return nil
}

func (s *fakeStore) LinkDocumentURL(_ context.Context, _, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.linkErr != nil {
		return s.linkErr
	}
	s.linked = url
	return nil
}

type fakeGenerator struct {
	mu    sync.Mutex
	doc   []byte
	err   error
	block bool
	calls int
	seen  types.TransactionRecord
}

func (g *fakeGenerator) Generate(ctx context.Context, rec types.TransactionRecord) ([]byte, error) {
	g.mu.Lock()
	g.calls++
	g.seen = rec
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return g.doc, g.err
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type fakeMailer struct {
	err     error
	calls   int
	notices []mailer.Notice
}

func (m *fakeMailer) Deliver(_ context.Context, n mailer.Notice) error {
	m.calls++
	m.notices = append(m.notices, n)
	return m.err
}

type fakeUploader struct {
	err  error
	keys []string
}

func (u *fakeUploader) Upload(_ context.Context, key string, _ []byte) (string, error) {
	u.keys = append(u.keys, key)
	if u.err != nil {
		return "", u.err
	}
	return "https://files.example.com/" + key, nil
}

// fixedConditioner returns result, or the blob unchanged when result is unset.
type fixedConditioner struct {
	result *attachment.Result
}

func (c fixedConditioner) Condition(_ context.Context, blob []byte, _ int) attachment.Result {
	if c.result != nil {
		return *c.result
	}
	return attachment.Result{Outcome: attachment.OutcomeUnchanged, Bytes: blob, OriginalSize: len(blob)}
}

var errUnavailable = errors.New("service unavailable")
