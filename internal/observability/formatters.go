// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/transaction-desk/internal/mapping"
	"github.com/jonathan/transaction-desk/internal/progress"
	"github.com/jonathan/transaction-desk/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRecord outputs the key fields of a transaction record.
func (p *Printer) PrintRecord(rec types.TransactionRecord) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Address:  %s\n", rec.Property.Address))
	if rec.Property.ListingID != "" {
		sb.WriteString(fmt.Sprintf("Listing:  %s\n", rec.Property.ListingID))
	}
	if price := mapping.Currency(rec.Property.SalePrice); price != "" {
		sb.WriteString(fmt.Sprintf("Price:    %s\n", price))
	}
	sb.WriteString(fmt.Sprintf("Agent:    %s (%s)\n", rec.Agent.Name,
		mapping.RoleLabel(mapping.NormalizeAgentRole(rec.Agent.Role))))

	if len(rec.Parties) > 0 {
		sb.WriteString("\nParties:\n")
		count := min(len(rec.Parties), maxItemsToShow)
		for _, party := range rec.Parties[:count] {
			side := string(mapping.NormalizePartySide(party.Role))
			if side == "" {
				side = "untagged"
			}
			sb.WriteString(fmt.Sprintf("  • %s [%s]\n", party.Name, side))
		}
		if len(rec.Parties) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(rec.Parties)-maxItemsToShow))
		}
	}

	p.printBox("TRANSACTION RECORD", sb.String())
}

// PrintInstructions outputs a per-page count of drawn text and the first
// few instructions.
func (p *Printer) PrintInstructions(instructions []types.PositionedTextInstruction) {
	if len(instructions) == 0 {
		return
	}

	perPage := make([]int, types.MaxPage(instructions)+1)
	for _, in := range instructions {
		perPage[in.Page]++
	}

	var sb strings.Builder
	for page, n := range perPage {
		sb.WriteString(fmt.Sprintf("Page %d: %d instructions\n", page+1, n))
	}
	sb.WriteString("\n")
	count := min(len(instructions), maxItemsToShow)
	for _, in := range instructions[:count] {
		sb.WriteString(fmt.Sprintf("  (%.0f, %.0f) %s\n", in.X, in.Y, in.Text))
	}
	if len(instructions) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(instructions)-maxItemsToShow))
	}

	p.printBox("LAYOUT INSTRUCTIONS", sb.String())
}

var statusIcons = map[progress.Status]string{
	progress.StatusPending:  "○",
	progress.StatusLoading:  "…",
	progress.StatusComplete: "✓",
	progress.StatusError:    "✗",
}

// PrintSteps outputs the submission step sequence with each step's status.
func (p *Printer) PrintSteps(snapshot progress.Snapshot) {
	var sb strings.Builder
	for _, step := range snapshot.Steps {
		sb.WriteString(fmt.Sprintf("%s %s\n", statusIcons[step.Status], step.Label))
		if step.Detail != "" {
			sb.WriteString(fmt.Sprintf("    %s\n", step.Detail))
		}
	}
	if snapshot.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError: %s\n", snapshot.Error))
	}
	p.printBox("SUBMISSION STEPS", sb.String())
}

// PrintAttempt outputs the outcome of a submission.
func (p *Printer) PrintAttempt(attempt *types.DeliveryAttempt) {
	if attempt == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Attempt:  %s\n", attempt.ID))
	sb.WriteString(fmt.Sprintf("Record:   %s\n", orNone(attempt.RecordID)))
	sb.WriteString(fmt.Sprintf("Stage:    %s\n", attempt.Stage))
	if attempt.DocumentSize > 0 {
		sb.WriteString(fmt.Sprintf("Document: %s (%d bytes)\n", attempt.DocumentName, attempt.DocumentSize))
	}
	sb.WriteString(fmt.Sprintf("Email:    %s\n", mapping.YesNo(attempt.EmailSent)))
	sb.WriteString(fmt.Sprintf("Storage:  %s\n", orNone(attempt.StorageURL)))
	if attempt.AttachmentOutcome != "" {
		outcome := string(attempt.AttachmentOutcome)
		if attempt.AttachmentField != "" {
			outcome += " (" + attempt.AttachmentField + ")"
		}
		sb.WriteString(fmt.Sprintf("Attached: %s\n", outcome))
	}

	if len(attempt.PartyErrors) > 0 {
		sb.WriteString("\nParties not saved:\n")
		for _, pe := range attempt.PartyErrors {
			sb.WriteString(fmt.Sprintf("  • #%d %s: %s\n", pe.Index, pe.Name, pe.Message))
		}
	}
	if len(attempt.ChannelErrors) > 0 {
		sb.WriteString("\nChannel failures:\n")
		for _, ce := range attempt.ChannelErrors {
			sb.WriteString(fmt.Sprintf("  • %s: %s\n", ce.Channel, ce.Message))
		}
	}
	if attempt.Note != "" {
		sb.WriteString(fmt.Sprintf("\nNote: %s\n", attempt.Note))
	}
	if attempt.Error != "" {
		sb.WriteString(fmt.Sprintf("\nError: %s\n", attempt.Error))
	}

	p.printBox("DELIVERY ATTEMPT", sb.String())
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
