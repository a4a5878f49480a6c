package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/transaction-desk/internal/recordstore"
	"github.com/jonathan/transaction-desk/internal/types"
)

var _ recordstore.Store = (*DB)(nil)

// CreateTransaction inserts the parent record and returns its id
func (db *DB) CreateTransaction(ctx context.Context, rec types.TransactionRecord) (string, error) {
	payload, err := json.Marshal(rec)
	if err != nil {
		return "", &recordstore.RecordStoreError{Op: "create transaction", Message: "failed to marshal record", Cause: err}
	}

	id := uuid.New()
	_, err = db.pool.Exec(ctx,
		`INSERT INTO transactions (id, property_address, listing_id, agent_name, agent_role, record)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		id, rec.Property.Address, rec.Property.ListingID, rec.Agent.Name, rec.Agent.Role, payload,
	)
	if err != nil {
		return "", &recordstore.RecordStoreError{Op: "create transaction", Cause: err}
	}
	return id.String(), nil
}

// CreateParty inserts a party row joined by address and, when it parses,
// the parent transaction id
func (db *DB) CreateParty(ctx context.Context, row recordstore.PartyRow) error {
	var txID *uuid.UUID
	if parsed, err := uuid.Parse(row.RecordID); err == nil {
		txID = &parsed
	}

	_, err := db.pool.Exec(ctx,
		`INSERT INTO parties (id, transaction_id, join_key, position, side, name, email, phone, mailing_address)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		uuid.New(), txID, row.JoinKey, row.Index, string(row.Side),
		row.Party.Name, row.Party.Email, row.Party.Phone, row.Party.Address,
	)
	if err != nil {
		return &recordstore.RecordStoreError{Op: "create party", Message: row.Party.Name, Cause: err}
	}
	return nil
}

// AttachDocument stores doc under field, replacing any earlier attachment
func (db *DB) AttachDocument(ctx context.Context, recordID, field, filename string, doc []byte) error {
	id, err := parseRecordID("attach document", recordID)
	if err != nil {
		return err
	}
	if field == "" {
		return &recordstore.RecordStoreError{Op: "attach document", Message: "attachment field is empty"}
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO transaction_documents (transaction_id, field, filename, content)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (transaction_id, field) DO UPDATE SET filename = $3, content = $4, created_at = NOW()`,
		id, field, filename, doc,
	)
	if err != nil {
		return &recordstore.RecordStoreError{Op: "attach document", Message: field, Cause: err}
	}
	return nil
}

// LinkDocumentURL sets the stored document URL on the parent record
func (db *DB) LinkDocumentURL(ctx context.Context, recordID, url string) error {
	id, err := parseRecordID("link document", recordID)
	if err != nil {
		return err
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE transactions SET document_url = $2, updated_at = NOW() WHERE id = $1`,
		id, url,
	)
	if err != nil {
		return &recordstore.RecordStoreError{Op: "link document", Cause: err}
	}
	if tag.RowsAffected() == 0 {
		return &recordstore.RecordStoreError{Op: "link document", Message: fmt.Sprintf("transaction %s not found", recordID)}
	}
	return nil
}

// GetTransaction retrieves a transaction by id. Returns nil if not found.
func (db *DB) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var t Transaction
	err := db.pool.QueryRow(ctx,
		`SELECT id, property_address, listing_id, agent_name, agent_role, record, document_url, created_at, updated_at
		 FROM transactions WHERE id = $1`,
		id,
	).Scan(&t.ID, &t.PropertyAddress, &t.ListingID, &t.AgentName, &t.AgentRole, &t.Record, &t.DocumentURL, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return &t, nil
}

// ListParties returns the party rows for a join key in submission order
func (db *DB) ListParties(ctx context.Context, joinKey string) ([]Party, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, transaction_id, join_key, position, side, name, email, phone, mailing_address, created_at
		 FROM parties WHERE join_key = $1 ORDER BY position, created_at`,
		joinKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list parties: %w", err)
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		var p Party
		if err := rows.Scan(&p.ID, &p.TransactionID, &p.JoinKey, &p.Position, &p.Side,
			&p.Name, &p.Email, &p.Phone, &p.MailingAddress, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan party: %w", err)
		}
		parties = append(parties, p)
	}
	return parties, rows.Err()
}

// GetDocument retrieves an attached document. Returns nil if not found.
func (db *DB) GetDocument(ctx context.Context, id uuid.UUID, field string) (*Document, error) {
	var d Document
	err := db.pool.QueryRow(ctx,
		`SELECT transaction_id, field, filename, content, created_at
		 FROM transaction_documents WHERE transaction_id = $1 AND field = $2`,
		id, field,
	).Scan(&d.TransactionID, &d.Field, &d.Filename, &d.Content, &d.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return &d, nil
}

func parseRecordID(op, recordID string) (uuid.UUID, error) {
	id, err := uuid.Parse(recordID)
	if err != nil {
		return uuid.Nil, &recordstore.RecordStoreError{Op: op, Message: fmt.Sprintf("invalid record id %q", recordID), Cause: err}
	}
	return id, nil
}
