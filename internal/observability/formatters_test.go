package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/types"
)

func TestPrintRecord(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRecord(types.TransactionRecord{
		Property: types.Property{
			Address:   "12 Orchard Lane",
			ListingID: "MLS-4471",
			SalePrice: decimal.NewNullDecimal(decimal.NewFromInt(450000)),
		},
		Parties: []types.Party{
			{Name: "Avery Seller", Role: "Seller"},
			{Name: "Jordan Buyer"},
		},
		Agent: types.AgentIdentity{Name: "Dana Whitfield", Role: "dual agency"},
	})
	output := buf.String()

	assert.Contains(t, output, "TRANSACTION RECORD")
	assert.Contains(t, output, "12 Orchard Lane")
	assert.Contains(t, output, "$450000")
	assert.Contains(t, output, "Dana Whitfield (Dual Agent)")
	assert.Contains(t, output, "Avery Seller [seller]")
	assert.Contains(t, output, "Jordan Buyer [untagged]")
}

func TestPrintRecord_ManyParties(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	parties := make([]types.Party, 8)
	for i := range parties {
		parties[i] = types.Party{Name: "P"}
	}
	p.PrintRecord(types.TransactionRecord{Parties: parties})

	assert.Contains(t, buf.String(), "... and 3 more")
}

func TestPrintInstructions(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintInstructions([]types.PositionedTextInstruction{
		{Page: 0, X: 72, Y: 90, Text: "12 Orchard Lane"},
		{Page: 0, X: 72, Y: 110, Text: "Avery Seller"},
		{Page: 1, X: 72, Y: 72, Text: "Dual agency disclosure"},
	})
	output := buf.String()

	assert.Contains(t, output, "LAYOUT INSTRUCTIONS")
	assert.Contains(t, output, "Page 1: 2 instructions")
	assert.Contains(t, output, "Page 2: 1 instructions")
	assert.Contains(t, output, "(72, 90) 12 Orchard Lane")
}

func TestPrintInstructions_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintInstructions(nil)
	assert.Empty(t, buf.String())
}

func TestPrintSteps(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintSteps(progress.Snapshot{
		Steps: []progress.Step{
			{ID: "save", Label: "Saving transaction record", Status: progress.StatusComplete},
			{ID: "generate", Label: "Generating transaction sheet", Status: progress.StatusError, Detail: "template error"},
			{ID: "email", Label: "Emailing document", Status: progress.StatusPending},
		},
		Current: 1,
		Error:   "template error",
	})
	output := buf.String()

	assert.Contains(t, output, "✓ Saving transaction record")
	assert.Contains(t, output, "✗ Generating transaction sheet")
	assert.Contains(t, output, "○ Emailing document")
	assert.Contains(t, output, "Error: template error")
}

func TestPrintAttempt(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintAttempt(&types.DeliveryAttempt{
		ID:                "a1",
		RecordID:          "rec1",
		Stage:             types.StageComplete,
		DocumentName:      "Transaction_12-orchard-lane_2026-10-15.pdf",
		DocumentSize:      2048,
		AttachmentOutcome: types.AttachmentNone,
		Note:              "Manual follow-up is required.",
		ChannelErrors:     []types.ChannelError{{Channel: "storage", Message: "timeout"}},
		PartyErrors:       []types.PartyError{{Index: 1, Name: "Jordan", Message: "duplicate"}},
	})
	output := buf.String()

	assert.Contains(t, output, "DELIVERY ATTEMPT")
	assert.Contains(t, output, "Record:   rec1")
	assert.Contains(t, output, "Email:    No")
	assert.Contains(t, output, "Storage:  (none)")
	assert.Contains(t, output, "Attached: none")
	assert.Contains(t, output, "storage: timeout")
	assert.Contains(t, output, "#1 Jordan: duplicate")
	assert.Contains(t, output, "Note: Manual follow-up is required.")
}

func TestPrintAttempt_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintAttempt(nil)
	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 100))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), strings.Repeat("x", 60))
}
