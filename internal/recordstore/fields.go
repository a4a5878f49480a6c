package recordstore

import (
	"github.com/shopspring/decimal"

	"github.com/jonathan/transaction-desk/internal/types"
)

// Column names of the hosted transactions table.
const (
	FieldAddress     = "Property Address"
	FieldDocumentURL = "Document URL"
)

// TransactionFields flattens a record into the hosted table's columns.
// Empty values are omitted so the store keeps its own defaults.
func TransactionFields(rec types.TransactionRecord) map[string]any {
	f := fields{}
	p := rec.Property
	f.str(FieldAddress, p.Address)
	f.str("City", p.City)
	f.str("State", p.State)
	f.str("Zip Code", p.ZipCode)
	f.str("Listing ID", p.ListingID)
	f.str("Property Type", p.PropertyType)
	f.money("Sale Price", p.SalePrice)
	f.str("Closing Date", p.ClosingDate)
	f.str("Status", p.Status)

	c := rec.Commission
	f.money("Listing Side Percent", c.ListingSidePercent)
	f.money("Buyer Side Percent", c.BuyerSidePercent)
	f.money("Listing Side Flat Fee", c.ListingSideFlatFee)
	f.money("Buyer Side Flat Fee", c.BuyerSideFlatFee)
	f.money("Brokerage Fee", c.BrokerageFee)
	f["Referral"] = c.Referral
	f.str("Referral Party", c.ReferralParty)
	f.money("Referral Percent", c.ReferralPercent)
	f.str("Referral Terms", c.ReferralTerms)

	d := rec.Details
	f.flag("HOA", d.HOA)
	f.str("HOA Name", d.HOAName)
	f.money("HOA Fee", d.HOAFee)
	f.str("Municipality", d.Municipality)
	f.str("Attorney Name", d.AttorneyName)
	f.str("Attorney Email", d.AttorneyEmail)
	f.str("Attorney Phone", d.AttorneyPhone)
	f.flag("Home Warranty", d.HomeWarranty)
	f.str("Warranty Company", d.WarrantyCompany)
	f.money("Warranty Cost", d.WarrantyCost)

	f.str("Title Company", rec.TitleCompany.Name)
	f.str("Title Contact", rec.TitleCompany.Contact)
	f.str("Title Email", rec.TitleCompany.Email)
	f.str("Title Phone", rec.TitleCompany.Phone)

	f.str("Notes", rec.Notes)
	f.str("Agent Name", rec.Agent.Name)
	f.str("Agent Email", rec.Agent.Email)
	f.str("Agent Role", rec.Agent.Role)
	return f
}

// PartyFields flattens a party row.
func PartyFields(row PartyRow) map[string]any {
	f := fields{}
	f.str(FieldAddress, row.JoinKey)
	f.str("Transaction", row.RecordID)
	f.str("Name", row.Party.Name)
	f.str("Email", row.Party.Email)
	f.str("Phone", row.Party.Phone)
	f.str("Mailing Address", row.Party.Address)
	f.str("Side", string(row.Side))
	return f
}

type fields map[string]any

func (f fields) str(key, value string) {
	if value != "" {
		f[key] = value
	}
}

func (f fields) flag(key string, value *bool) {
	if value != nil {
		f[key] = *value
	}
}

func (f fields) money(key string, value decimal.NullDecimal) {
	if value.Valid {
		f[key] = value.Decimal.InexactFloat64()
	}
}
