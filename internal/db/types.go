package db

import (
	"time"

	"github.com/google/uuid"
)

// Transaction is a stored parent record.
type Transaction struct {
	ID              uuid.UUID `json:"id"`
	PropertyAddress string    `json:"property_address"`
	ListingID       string    `json:"listing_id"`
	AgentName       string    `json:"agent_name"`
	AgentRole       string    `json:"agent_role"`
	Record          []byte    `json:"record"`
	DocumentURL     *string   `json:"document_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Party is a stored child party row.
type Party struct {
	ID             uuid.UUID  `json:"id"`
	TransactionID  *uuid.UUID `json:"transaction_id,omitempty"`
	JoinKey        string     `json:"join_key"`
	Position       int        `json:"position"`
	Side           string     `json:"side"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Phone          string     `json:"phone"`
	MailingAddress string     `json:"mailing_address"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Document is a document attached directly to a transaction.
type Document struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Field         string    `json:"field"`
	Filename      string    `json:"filename"`
	Content       []byte    `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}
