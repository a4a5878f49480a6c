// Package mapping turns a transaction record into positioned text
// instructions for the transaction sheet template.
package mapping

import (
	"strings"

	"github.com/jonathan/transaction-desk/internal/types"
)

var agentRoleAliases = map[string]types.AgentRole{
	"seller":         types.RoleSeller,
	"sellerside":     types.RoleSeller,
	"sellersagent":   types.RoleSeller,
	"selleragent":    types.RoleSeller,
	"listing":        types.RoleSeller,
	"listingagent":   types.RoleSeller,
	"listingside":    types.RoleSeller,
	"buyer":          types.RoleBuyer,
	"buyerside":      types.RoleBuyer,
	"buyersagent":    types.RoleBuyer,
	"buyeragent":     types.RoleBuyer,
	"dual":           types.RoleDual,
	"dualagent":      types.RoleDual,
	"dualagency":     types.RoleDual,
	"both":           types.RoleDual,
	"bothsides":      types.RoleDual,
	"sellerandbuyer": types.RoleDual,
	"buyerandseller": types.RoleDual,
	"buyerseller":    types.RoleDual,
	"sellerbuyer":    types.RoleDual,
}

var partySideAliases = map[string]types.PartySide{
	"seller":     types.SideSeller,
	"sellers":    types.SideSeller,
	"sellerside": types.SideSeller,
	"listing":    types.SideSeller,
	"owner":      types.SideSeller,
	"buyer":      types.SideBuyer,
	"buyers":     types.SideBuyer,
	"buyerside":  types.SideBuyer,
	"purchaser":  types.SideBuyer,
}

// roleKey folds case and drops spacing, hyphens, underscores and apostrophes
// so "Seller-Side", "seller side" and "Seller's Agent" compare equal to their
// alias keys.
func roleKey(s string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '\t', '-', '_', '\'', '’', '.', '/', '&':
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// NormalizeAgentRole maps a free-form role string onto one of the three
// canonical roles. A role naming both sides, such as "Buyer & Seller" or
// "listing/buyer", is dual. Unrecognized values fall back to the buyer-side
// layout.
func NormalizeAgentRole(s string) types.AgentRole {
	key := roleKey(s)
	if role, ok := agentRoleAliases[key]; ok {
		return role
	}
	sellerSide := strings.Contains(key, "seller") || strings.Contains(key, "listing")
	if sellerSide && strings.Contains(key, "buyer") {
		return types.RoleDual
	}
	return types.RoleBuyer
}

// NormalizePartySide maps a party role tag onto a side, or SideUnknown.
func NormalizePartySide(s string) types.PartySide {
	return partySideAliases[roleKey(s)]
}

// SelectParty returns the party for the given side.
//
// Lookup is two-path: the first party whose tag normalizes to the side wins;
// when no party carries that tag, the party at the positional slot is used
// (index 0 for the seller side, index 1 for the buyer side). Legacy records
// that never tagged their parties depend on the positional path.
func SelectParty(parties []types.Party, side types.PartySide) (types.Party, bool) {
	for _, p := range parties {
		if NormalizePartySide(p.Role) == side {
			return p, true
		}
	}

	idx := 0
	if side == types.SideBuyer {
		idx = 1
	}
	if idx < len(parties) {
		return parties[idx], true
	}
	return types.Party{}, false
}

// RoleLabel is the human label drawn in the sheet header.
func RoleLabel(role types.AgentRole) string {
	switch role {
	case types.RoleSeller:
		return "Seller's Agent"
	case types.RoleDual:
		return "Dual Agent"
	default:
		return "Buyer's Agent"
	}
}
