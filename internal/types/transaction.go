// Package types provides type definitions for the transaction records, layout
// instructions and delivery run-state shared across the submission pipeline.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// AgentRole is the canonical side an agent represents in a transaction.
type AgentRole string

// AgentRole values
const (
	RoleSeller AgentRole = "seller"
	RoleBuyer  AgentRole = "buyer"
	RoleDual   AgentRole = "dual"
)

// PartySide is the canonical tag of a party entry.
type PartySide string

// PartySide values
const (
	SideSeller  PartySide = "seller"
	SideBuyer   PartySide = "buyer"
	SideUnknown PartySide = ""
)

// TransactionRecord is a validated transaction submitted by an agent.
// Monetary fields use decimal.NullDecimal so that an absent value is
// distinguishable from zero.
type TransactionRecord struct {
	// RecordID is set once the parent record exists in the record store.
	// A record that already carries an ID is never re-created.
	RecordID     string          `json:"record_id,omitempty"`
	Property     Property        `json:"property" validate:"required"`
	Parties      []Party         `json:"parties" validate:"dive"`
	Commission   CommissionTerms `json:"commission"`
	Details      PropertyDetail  `json:"details"`
	TitleCompany TitleCompany    `json:"title_company"`
	Notes        string          `json:"notes,omitempty"`
	Agent        AgentIdentity   `json:"agent" validate:"required"`
}

// Property holds the attributes of the property being transacted.
type Property struct {
	Address      string              `json:"address" validate:"required,min=3"`
	City         string              `json:"city,omitempty"`
	State        string              `json:"state,omitempty"`
	ZipCode      string              `json:"zip_code,omitempty"`
	ListingID    string              `json:"listing_id,omitempty"`
	PropertyType string              `json:"property_type,omitempty"`
	SalePrice    decimal.NullDecimal `json:"sale_price"`
	ClosingDate  string              `json:"closing_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Status       string              `json:"status,omitempty"`
}

// Party is one buyer- or seller-side participant. Role is a free-form tag as
// entered by the agent; it is normalized by the field mapper.
type Party struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	Role    string `json:"role,omitempty"`
}

// CommissionTerms describes how commission is split between the sides.
type CommissionTerms struct {
	ListingSidePercent decimal.NullDecimal `json:"listing_side_percent"`
	BuyerSidePercent   decimal.NullDecimal `json:"buyer_side_percent"`
	ListingSideFlatFee decimal.NullDecimal `json:"listing_side_flat_fee"`
	BuyerSideFlatFee   decimal.NullDecimal `json:"buyer_side_flat_fee"`
	BrokerageFee       decimal.NullDecimal `json:"brokerage_fee"`
	Referral           bool                `json:"referral"`
	ReferralParty      string              `json:"referral_party,omitempty"`
	ReferralPercent    decimal.NullDecimal `json:"referral_percent"`
	ReferralTerms      string              `json:"referral_terms,omitempty"`
}

// PropertyDetail holds the optional extras collected for the property.
// HOA and HomeWarranty are nil when the question was not answered.
type PropertyDetail struct {
	HOA             *bool               `json:"hoa,omitempty"`
	HOAName         string              `json:"hoa_name,omitempty"`
	HOAFee          decimal.NullDecimal `json:"hoa_fee"`
	Municipality    string              `json:"municipality,omitempty"`
	AttorneyName    string              `json:"attorney_name,omitempty"`
	AttorneyEmail   string              `json:"attorney_email,omitempty" validate:"omitempty,email"`
	AttorneyPhone   string              `json:"attorney_phone,omitempty"`
	HomeWarranty    *bool               `json:"home_warranty,omitempty"`
	WarrantyCompany string              `json:"warranty_company,omitempty"`
	WarrantyCost    decimal.NullDecimal `json:"warranty_cost"`
}

// TitleCompany references the title company handling the closing.
type TitleCompany struct {
	Name    string `json:"name,omitempty"`
	Contact string `json:"contact,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Phone   string `json:"phone,omitempty"`
}

// AgentIdentity identifies the submitting agent. Role is free-form.
type AgentIdentity struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email,omitempty" validate:"omitempty,email"`
	Role  string `json:"role" validate:"required"`
}

var validate = validator.New()

// Validate validates the TransactionRecord using the validator.
func (r *TransactionRecord) Validate() error {
	return validate.Struct(r)
}

// WithRecordID returns a copy of the record bound to the given record id.
func (r TransactionRecord) WithRecordID(id string) TransactionRecord {
	r.RecordID = id
	return r
}
