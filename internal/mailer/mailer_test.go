package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/transaction-desk/internal/types"
)

type captureSender struct {
	msgs []Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg Message) error {
	c.msgs = append(c.msgs, msg)
	return c.err
}

func notice() Notice {
	return Notice{
		Record: types.TransactionRecord{
			Property: types.Property{
				Address:     "12 Orchard Lane, Unit 4",
				ListingID:   "MLS-4471",
				SalePrice:   decimal.NewNullDecimal(decimal.NewFromInt(450000)),
				ClosingDate: "2026-11-30",
			},
			Parties: []types.Party{
				{Name: "Avery Seller", Role: "Seller", Email: "avery@example.com"},
				{Name: "Jordan Buyer", Role: "buyer"},
			},
			Commission: types.CommissionTerms{
				ListingSidePercent: decimal.NewNullDecimal(decimal.RequireFromString("2.5")),
			},
			Notes: "Keys at <title> office",
			Agent: types.AgentIdentity{Name: "Dana Whitfield", Role: "listing agent"},
		},
		Document: []byte("%PDF-1.4"),
	}
}

func TestAttachmentName(t *testing.T) {
	date := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "Transaction_12-orchard-lane-unit-4_2026-10-15.pdf", AttachmentName("12 Orchard Lane, Unit 4", date))
	assert.Equal(t, "Transaction_unknown_2026-10-15.pdf", AttachmentName("  ", date))
}

func TestCompose(t *testing.T) {
	date := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	n := notice()
	n.StorageURL = "https://files.example.com/a.pdf"

	msg, err := Compose(n, date)
	require.NoError(t, err)

	assert.Equal(t, "Transaction submitted: 12 Orchard Lane, Unit 4", msg.Subject)
	assert.Equal(t, "Transaction_12-orchard-lane-unit-4_2026-10-15.pdf", msg.AttachmentName)
	assert.Equal(t, n.Document, msg.Attachment)

	assert.Contains(t, msg.HTML, "$450000")
	assert.Contains(t, msg.HTML, "Keys at &lt;title&gt; office")
	assert.Contains(t, msg.HTML, `href="https://files.example.com/a.pdf"`)

	assert.Contains(t, msg.Text, "New transaction: 12 Orchard Lane, Unit 4")
	assert.Contains(t, msg.Text, "Listing ID: MLS-4471")
	assert.Contains(t, msg.Text, "Agent: Dana Whitfield (Seller's Agent)")
	assert.Contains(t, msg.Text, "Seller: Avery Seller, avery@example.com")
	assert.Contains(t, msg.Text, "Buyer: Jordan Buyer")
	assert.Contains(t, msg.Text, "Listing side: 2.5%")
	assert.Contains(t, msg.Text, "Keys at <title> office")
	assert.NotContains(t, msg.Text, "<li>")
}

func TestCompose_UsesGivenDocumentName(t *testing.T) {
	n := notice()
	n.DocumentName = "custom.pdf"

	msg, err := Compose(n, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "custom.pdf", msg.AttachmentName)
}

func TestCompose_NoteWithoutDocument(t *testing.T) {
	n := notice()
	n.Document = nil
	n.Note = "Share it through a file-sharing link instead."

	msg, err := Compose(n, time.Now())
	require.NoError(t, err)
	assert.Empty(t, msg.AttachmentName)
	assert.Nil(t, msg.Attachment)
	assert.Contains(t, msg.Text, "Attention: Share it through a file-sharing link instead.")
}

func TestMailer_DropsOversizedAttachment(t *testing.T) {
	sender := &captureSender{}
	m := New(sender, 4, nil)

	require.NoError(t, m.Deliver(context.Background(), notice()))
	require.Len(t, sender.msgs, 1)
	assert.Nil(t, sender.msgs[0].Attachment)
	assert.Contains(t, sender.msgs[0].Text, "above the 4 byte email limit")
}

func TestMailer_PropagatesSendError(t *testing.T) {
	m := New(&captureSender{err: errors.New("relay refused")}, 0, nil)
	err := m.Deliver(context.Background(), notice())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "relay refused"))
}

func TestSMTPSender_Build(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{From: "desk@example.com", To: []string{"closings@example.com"}})
	msg, err := Compose(notice(), time.Now())
	require.NoError(t, err)

	m, err := s.build(msg)
	require.NoError(t, err)
	assert.Len(t, m.GetAttachments(), 1)
}

func TestSMTPSender_InvalidAddress(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{From: "not an address", To: []string{"closings@example.com"}})
	_, err := s.build(Message{Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid from address")
}
