package accounts

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType enumerates CoA categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// AccountNature determines the sign convention for balance changes.
// DEBIT-nature accounts grow with debits, CREDIT-nature with credits.
type AccountNature string

const (
	NatureDebit  AccountNature = "DEBIT"
	NatureCredit AccountNature = "CREDIT"
)

// NatureForType returns the conventional nature for an account type.
func NatureForType(t AccountType) AccountNature {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NatureDebit
	default:
		return NatureCredit
	}
}

// Account models a chart of accounts node. CurrentBalance is a
// denormalised projection of posted journal lines; it is mutated only by
// the journal engine's apply/reverse/recompute paths.
type Account struct {
	ID               int64
	Code             string
	Name             string
	Type             AccountType
	Nature           AccountNature
	ParentCode       *string
	Currency         string
	Country          string
	IsControlAccount bool
	IsActive         bool
	CurrentBalance   decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CreatedBy        int64
}

// Label renders the account the way balances are reported back to
// callers after propagation.
func (a Account) Label() string {
	return a.Code + " - " + a.Name
}
