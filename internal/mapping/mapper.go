package mapping

import (
	"fmt"
	"strings"

	"github.com/jonathan/transaction-desk/internal/types"
)

// builder accumulates instructions and drops empty text.
type builder struct {
	out []types.PositionedTextInstruction
}

func (b *builder) text(a anchor, dy float64, text string, size float64, bold bool) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.out = append(b.out, types.PositionedTextInstruction{
		Page:     a.Page,
		X:        a.X,
		Y:        a.Y - dy,
		Text:     strings.TrimSpace(text),
		FontSize: size,
		Bold:     bold,
	})
}

func (b *builder) wrapped(a anchor, text string, size, width float64) {
	if strings.TrimSpace(text) == "" {
		return
	}
	w := width
	b.out = append(b.out, types.PositionedTextInstruction{
		Page:     a.Page,
		X:        a.X,
		Y:        a.Y,
		Text:     strings.TrimSpace(text),
		FontSize: size,
		MaxWidth: &w,
	})
}

// Map converts a record into the ordered instruction list for its agent's
// layout variant. It has no side effects and emits nothing for empty fields.
func Map(record types.TransactionRecord) []types.PositionedTextInstruction {
	role := NormalizeAgentRole(record.Agent.Role)
	l := layoutFor(role)
	b := &builder{}

	b.text(anchorAgent, 0, record.Agent.Name, headerSize, true)
	b.text(anchorAgent, 14, RoleLabel(role), bodySize, false)

	mapProperty(b, record.Property)

	if seller, ok := SelectParty(record.Parties, types.SideSeller); ok {
		mapParty(b, l.Seller, seller)
	}
	if buyer, ok := SelectParty(record.Parties, types.SideBuyer); ok {
		mapParty(b, l.Buyer, buyer)
	}

	mapCommission(b, l, record.Commission)
	mapDetails(b, record.Details, record.TitleCompany)
	b.wrapped(anchorNotes, record.Notes, noteSize, notesWidth)

	if l.DualDisclosure {
		b.text(anchorDualHeader, 0, "Dual Agency Acknowledgement", headerSize, true)
		b.wrapped(anchorDualBody, dualDisclosureText(record), bodySize, notesWidth)
	}

	return b.out
}

func mapProperty(b *builder, p types.Property) {
	b.text(anchorAddress, 0, p.Address, headerSize, true)
	b.text(anchorCityLine, 0, joinNonEmpty(", ", p.City, joinNonEmpty(" ", p.State, p.ZipCode)), bodySize, false)
	b.text(anchorListingID, 0, p.ListingID, bodySize, false)
	b.text(anchorPropertyType, 0, p.PropertyType, bodySize, false)
	b.text(anchorSalePrice, 0, Currency(p.SalePrice), bodySize, true)
	b.text(anchorClosingDate, 0, p.ClosingDate, bodySize, false)
	b.text(anchorStatus, 0, p.Status, bodySize, false)
}

func mapParty(b *builder, block partyBlock, p types.Party) {
	b.text(block.anchor, 0, p.Name, bodySize+1, block.Emphasize)
	b.text(block.anchor, lineGap, p.Email, bodySize, false)
	b.text(block.anchor, 2*lineGap, p.Phone, bodySize, false)
	b.text(block.anchor, 3*lineGap, p.Address, bodySize, false)
}

func mapCommission(b *builder, l layout, c types.CommissionTerms) {
	if l.ListingSide.Draw {
		b.text(l.ListingSide.anchor, 0, Percent(c.ListingSidePercent), bodySize, false)
		b.text(l.ListingSide.anchor, lineGap, Currency(c.ListingSideFlatFee), bodySize, false)
	}
	if l.BuyerSide.Draw {
		b.text(l.BuyerSide.anchor, 0, Percent(c.BuyerSidePercent), bodySize, false)
		b.text(l.BuyerSide.anchor, lineGap, Currency(c.BuyerSideFlatFee), bodySize, false)
	}
	b.text(anchorBrokerage, 0, Currency(c.BrokerageFee), bodySize, false)

	if c.Referral {
		b.text(anchorReferral, 0, joinNonEmpty(" - ", c.ReferralParty, Percent(c.ReferralPercent)), bodySize, true)
		b.wrapped(anchor{anchorReferral.Page, anchorReferral.X, anchorReferral.Y - lineGap}, c.ReferralTerms, noteSize, notesWidth-56)
	}
}

func mapDetails(b *builder, d types.PropertyDetail, title types.TitleCompany) {
	if d.HOA != nil {
		b.text(anchorHOAFlag, 0, YesNo(*d.HOA), bodySize, true)
		if *d.HOA {
			b.text(anchorHOA, 0, joinNonEmpty(" - ", d.HOAName, Currency(d.HOAFee)), bodySize, false)
		}
	}
	b.text(anchorMunicipality, 0, d.Municipality, bodySize, false)
	b.text(anchorAttorney, 0, d.AttorneyName, bodySize, false)
	b.text(anchorAttorney, lineGap, joinNonEmpty(" | ", d.AttorneyEmail, d.AttorneyPhone), bodySize, false)
	if d.HomeWarranty != nil {
		b.text(anchorWarrantyFlag, 0, YesNo(*d.HomeWarranty), bodySize, true)
		if *d.HomeWarranty {
			b.text(anchorWarranty, 0, joinNonEmpty(" - ", d.WarrantyCompany, Currency(d.WarrantyCost)), bodySize, false)
		}
	}
	b.text(anchorTitle, 0, title.Name, bodySize, true)
	b.text(anchorTitle, lineGap, title.Contact, bodySize, false)
	b.text(anchorTitle, 2*lineGap, joinNonEmpty(" | ", title.Email, title.Phone), bodySize, false)
}

func dualDisclosureText(record types.TransactionRecord) string {
	agent := record.Agent.Name
	if agent == "" {
		agent = "The agent"
	}
	return fmt.Sprintf("%s represents both the seller and the buyer in the transaction for %s. "+
		"Both parties were informed of and consented to dual agency before the contract was executed.",
		agent, record.Property.Address)
}
