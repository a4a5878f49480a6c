package mapping

import "github.com/jonathan/transaction-desk/internal/types"

// Page geometry of the transaction sheet template, in points with a
// bottom-left origin.
const (
	PageSummary = 0
	PageDetails = 1
	// PageDualAgency is not part of the two-page template; the assembler
	// appends it when a dual-agency sheet is produced.
	PageDualAgency = 2

	bodySize   = 10.0
	headerSize = 12.0
	noteSize   = 9.0
	lineGap    = 16.0
)

type anchor struct {
	Page int
	X, Y float64
}

// partyBlock lays out name, email, phone and address top-down from its anchor.
type partyBlock struct {
	anchor
	Emphasize bool
}

// commissionBlock lays out percent, flat fee for one side.
type commissionBlock struct {
	anchor
	Draw bool
}

type layout struct {
	Seller         partyBlock
	Buyer          partyBlock
	ListingSide    commissionBlock
	BuyerSide      commissionBlock
	DualDisclosure bool
}

// Fixed anchors shared by every role.
var (
	anchorAgent        = anchor{PageSummary, 360, 742}
	anchorAddress      = anchor{PageSummary, 128, 682}
	anchorCityLine     = anchor{PageSummary, 128, 666}
	anchorListingID    = anchor{PageSummary, 128, 646}
	anchorPropertyType = anchor{PageSummary, 392, 646}
	anchorSalePrice    = anchor{PageSummary, 128, 630}
	anchorClosingDate  = anchor{PageSummary, 392, 630}
	anchorStatus       = anchor{PageSummary, 128, 614}
	anchorBrokerage    = anchor{PageSummary, 128, 330}
	anchorReferral     = anchor{PageSummary, 128, 300}

	anchorHOAFlag      = anchor{PageDetails, 480, 700}
	anchorHOA          = anchor{PageDetails, 150, 700}
	anchorMunicipality = anchor{PageDetails, 150, 668}
	anchorAttorney     = anchor{PageDetails, 150, 636}
	anchorWarrantyFlag = anchor{PageDetails, 480, 588}
	anchorWarranty     = anchor{PageDetails, 150, 588}
	anchorTitle        = anchor{PageDetails, 150, 540}
	anchorNotes        = anchor{PageDetails, 72, 440}
	notesWidth         = 468.0

	anchorDualHeader = anchor{PageDualAgency, 72, 720}
	anchorDualBody   = anchor{PageDualAgency, 72, 690}
)

var (
	leftParty  = anchor{PageSummary, 72, 560}
	rightParty = anchor{PageSummary, 320, 560}
	leftComm   = anchor{PageSummary, 128, 400}
	rightComm  = anchor{PageSummary, 392, 400}
)

// layouts maps each canonical role to its layout variant. The represented
// side's party block is drawn on the left and emphasized.
var layouts = map[types.AgentRole]layout{
	types.RoleSeller: {
		Seller:      partyBlock{anchor: leftParty, Emphasize: true},
		Buyer:       partyBlock{anchor: rightParty},
		ListingSide: commissionBlock{anchor: leftComm, Draw: true},
		BuyerSide:   commissionBlock{anchor: rightComm},
	},
	types.RoleBuyer: {
		Seller:      partyBlock{anchor: rightParty},
		Buyer:       partyBlock{anchor: leftParty, Emphasize: true},
		ListingSide: commissionBlock{anchor: rightComm},
		BuyerSide:   commissionBlock{anchor: leftComm, Draw: true},
	},
	types.RoleDual: {
		Seller:         partyBlock{anchor: leftParty, Emphasize: true},
		Buyer:          partyBlock{anchor: rightParty, Emphasize: true},
		ListingSide:    commissionBlock{anchor: leftComm, Draw: true},
		BuyerSide:      commissionBlock{anchor: rightComm, Draw: true},
		DualDisclosure: true,
	},
}

func layoutFor(role types.AgentRole) layout {
	if l, ok := layouts[role]; ok {
		return l
	}
	return layouts[types.RoleBuyer]
}
