// Package recordstore is the system of record for transactions and their
// parties. The hosted REST store lives here; a PostgreSQL implementation of
// the same interface lives in package db.
package recordstore

import (
	"context"
	"fmt"

	"github.com/jonathan/transaction-desk/internal/types"
)

// Store creates transaction records and attaches documents to them.
type Store interface {
	// CreateTransaction creates the parent record and returns its id.
	CreateTransaction(ctx context.Context, rec types.TransactionRecord) (string, error)
	// CreateParty creates one child party row linked by row.JoinKey.
	CreateParty(ctx context.Context, row PartyRow) error
	// AttachDocument stores doc directly on the parent record under field.
	AttachDocument(ctx context.Context, recordID, field, filename string, doc []byte) error
	// LinkDocumentURL records where the stored document can be retrieved.
	LinkDocumentURL(ctx context.Context, recordID, url string) error
}

// PartyRow is a child party record. The store has no foreign keys in this
// integration, so rows are joined to their parent by the property address.
type PartyRow struct {
	RecordID string
	JoinKey  string
	Index    int
	Side     types.PartySide
	Party    types.Party
}

// JoinKey returns the value party rows use to reference their transaction.
func JoinKey(rec types.TransactionRecord) string {
	return rec.Property.Address
}

// RecordStoreError represents a failed record-store operation. StatusCode is
// zero when the failure happened before a response was received.
type RecordStoreError struct {
	Op         string
	StatusCode int
	Message    string
	Cause      error
}

func (e *RecordStoreError) Error() string {
	msg := fmt.Sprintf("record store %s failed", e.Op)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	return msg
}

func (e *RecordStoreError) Unwrap() error {
	return e.Cause
}
