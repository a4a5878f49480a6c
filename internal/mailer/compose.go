// Package mailer composes the transaction notification email and hands it
// to an SMTP relay.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/transaction-desk/internal/mapping"
	"github.com/jonathan/transaction-desk/internal/types"
)

// Notice is everything the email needs to describe one submission.
type Notice struct {
	Record       types.TransactionRecord
	Document     []byte // nil when the document cannot be attached
	DocumentName string
	StorageURL   string
	Note         string
}

// Message is a composed email ready for a Sender.
type Message struct {
	Subject        string
	HTML           string
	Text           string
	AttachmentName string
	Attachment     []byte
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// AddressSlug lowercases an address and joins its words with hyphens.
func AddressSlug(address string) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(address), "-"), "-")
	if slug == "" {
		return "unknown"
	}
	return slug
}

// AttachmentName returns Transaction_<address-slug>_<date>.pdf.
func AttachmentName(address string, date time.Time) string {
	return fmt.Sprintf("Transaction_%s_%s.pdf", AddressSlug(address), date.Format("2006-01-02"))
}

type partyView struct {
	Side  string
	Name  string
	Email string
	Phone string
}

type summaryView struct {
	Address     string
	ListingID   string
	SalePrice   string
	ClosingDate string
	Status      string
	AgentName   string
	AgentRole   string
	Parties     []partyView
	Commission  []string
	Notes       string
	StorageURL  string
	Note        string
}

var summaryTemplate = template.Must(template.New("summary").Parse(`<!DOCTYPE html>
<html>
<body>
<h1>New transaction: {{.Address}}</h1>
<table>
{{if .ListingID}}<tr><th>Listing ID</th><td>{{.ListingID}}</td></tr>{{end}}
{{if .SalePrice}}<tr><th>Sale price</th><td>{{.SalePrice}}</td></tr>{{end}}
{{if .ClosingDate}}<tr><th>Closing date</th><td>{{.ClosingDate}}</td></tr>{{end}}
{{if .Status}}<tr><th>Status</th><td>{{.Status}}</td></tr>{{end}}
<tr><th>Agent</th><td>{{.AgentName}} ({{.AgentRole}})</td></tr>
</table>
{{if .Parties}}<h2>Parties</h2>
<ul>
{{range .Parties}}<li>{{.Side}}: {{.Name}}{{if .Email}}, {{.Email}}{{end}}{{if .Phone}}, {{.Phone}}{{end}}</li>
{{end}}</ul>{{end}}
{{if .Commission}}<h2>Commission</h2>
<ul>
{{range .Commission}}<li>{{.}}</li>
{{end}}</ul>{{end}}
{{if .Notes}}<h2>Notes</h2>
<p>{{.Notes}}</p>{{end}}
{{if .StorageURL}}<p>Document: <a href="{{.StorageURL}}">{{.StorageURL}}</a></p>{{end}}
{{if .Note}}<p><strong>Attention:</strong> {{.Note}}</p>{{end}}
</body>
</html>
`))

func newSummaryView(n Notice) summaryView {
	rec := n.Record
	v := summaryView{
		Address:     rec.Property.Address,
		ListingID:   rec.Property.ListingID,
		SalePrice:   mapping.Currency(rec.Property.SalePrice),
		ClosingDate: rec.Property.ClosingDate,
		Status:      rec.Property.Status,
		AgentName:   rec.Agent.Name,
		AgentRole:   mapping.RoleLabel(mapping.NormalizeAgentRole(rec.Agent.Role)),
		Notes:       rec.Notes,
		StorageURL:  n.StorageURL,
		Note:        n.Note,
	}

	for _, p := range rec.Parties {
		side := "Party"
		switch mapping.NormalizePartySide(p.Role) {
		case types.SideSeller:
			side = "Seller"
		case types.SideBuyer:
			side = "Buyer"
		}
		v.Parties = append(v.Parties, partyView{Side: side, Name: p.Name, Email: p.Email, Phone: p.Phone})
	}

	c := rec.Commission
	add := func(label, value string) {
		if value != "" {
			v.Commission = append(v.Commission, label+": "+value)
		}
	}
	add("Listing side", mapping.Percent(c.ListingSidePercent))
	add("Listing side flat fee", mapping.Currency(c.ListingSideFlatFee))
	add("Buyer side", mapping.Percent(c.BuyerSidePercent))
	add("Buyer side flat fee", mapping.Currency(c.BuyerSideFlatFee))
	add("Brokerage fee", mapping.Currency(c.BrokerageFee))
	if c.Referral {
		add("Referral", strings.TrimSpace(c.ReferralParty+" "+mapping.Percent(c.ReferralPercent)))
	}
	return v
}

// Compose renders the HTML summary, derives its plain-text alternative and
// names the attachment.
func Compose(n Notice, now time.Time) (Message, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, newSummaryView(n)); err != nil {
		return Message{}, fmt.Errorf("failed to render email body: %w", err)
	}
	html := buf.String()

	text, err := PlainText(html)
	if err != nil {
		return Message{}, err
	}

	msg := Message{
		Subject: fmt.Sprintf("Transaction submitted: %s", n.Record.Property.Address),
		HTML:    html,
		Text:    text,
	}
	if len(n.Document) > 0 {
		msg.AttachmentName = n.DocumentName
		if msg.AttachmentName == "" {
			msg.AttachmentName = AttachmentName(n.Record.Property.Address, now)
		}
		msg.Attachment = n.Document
	}
	return msg, nil
}

// PlainText flattens the summary HTML into one line per heading, row,
// paragraph or list item.
func PlainText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("failed to parse email body: %w", err)
	}

	var lines []string
	doc.Find("h1, h2, tr, p, li").Each(func(_ int, s *goquery.Selection) {
		if goquery.NodeName(s) == "tr" {
			var cells []string
			s.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, collapse(cell.Text()))
			})
			lines = append(lines, strings.Join(cells, ": "))
			return
		}
		if line := collapse(s.Text()); line != "" {
			lines = append(lines, line)
		}
	})
	return strings.Join(lines, "\n"), nil
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
