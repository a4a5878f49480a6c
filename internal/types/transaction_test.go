package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() TransactionRecord {
	return TransactionRecord{
		Property: Property{
			Address:     "12 Elm Street",
			ListingID:   "MLS-42",
			SalePrice:   decimal.NewNullDecimal(decimal.NewFromInt(450000)),
			ClosingDate: "2026-11-30",
		},
		Parties: []Party{
			{Name: "Sam Seller", Role: "seller", Email: "sam@example.com"},
			{Name: "Bea Buyer", Role: "buyer"},
		},
		Agent: AgentIdentity{Name: "Alex Agent", Role: "Seller"},
	}
}

func TestTransactionRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *TransactionRecord)
		wantErr bool
	}{
		{name: "valid", mutate: func(r *TransactionRecord) {}},
		{name: "missing address", mutate: func(r *TransactionRecord) { r.Property.Address = "" }, wantErr: true},
		{name: "missing agent name", mutate: func(r *TransactionRecord) { r.Agent.Name = "" }, wantErr: true},
		{name: "bad party email", mutate: func(r *TransactionRecord) { r.Parties[0].Email = "nope" }, wantErr: true},
		{name: "bad closing date", mutate: func(r *TransactionRecord) { r.Property.ClosingDate = "30/11/2026" }, wantErr: true},
		{name: "party without name", mutate: func(r *TransactionRecord) { r.Parties[1].Name = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTransactionRecord_JSONAbsentMoneyIsInvalid(t *testing.T) {
	var r TransactionRecord
	err := json.Unmarshal([]byte(`{"property":{"address":"1 Main St","sale_price":"250000"},"agent":{"name":"A","role":"buyer"}}`), &r)
	require.NoError(t, err)

	assert.True(t, r.Property.SalePrice.Valid)
	assert.True(t, r.Property.SalePrice.Decimal.Equal(decimal.NewFromInt(250000)))
	assert.False(t, r.Commission.BuyerSidePercent.Valid)
}

func TestWithRecordID(t *testing.T) {
	r := validRecord()
	bound := r.WithRecordID("rec123")

	assert.Equal(t, "rec123", bound.RecordID)
	assert.Empty(t, r.RecordID)
}

func TestMaxPage(t *testing.T) {
	assert.Equal(t, -1, MaxPage(nil))
	assert.Equal(t, 3, MaxPage([]PositionedTextInstruction{{Page: 0}, {Page: 3}, {Page: 1}}))
}

func TestDeliveryAttempt_Failed(t *testing.T) {
	a := &DeliveryAttempt{Stage: StageSave, Error: "boom"}
	assert.True(t, a.Failed())

	a = &DeliveryAttempt{Stage: StageComplete}
	a.AddChannelError("email", assert.AnError)
	assert.False(t, a.Failed())
	require.Len(t, a.ChannelErrors, 1)
	assert.Equal(t, "email", a.ChannelErrors[0].Channel)
}
