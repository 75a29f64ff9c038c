package journals

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/keystone-erp/keystone-ledger/internal/accounting/shared"
)

func validInput() EntryInput {
	return EntryInput{
		Description:   "Manual entry",
		OperationType: OperationManual,
		Module:        ModuleAccounting,
		Reference:     "MAN-1",
		Currency:      "USD",
		Lines: []LineInput{
			{AccountCode: "1.1.05", Debit: decimal.RequireFromString("50.00")},
			{AccountCode: "2.1.01", Credit: decimal.RequireFromString("50.00")},
		},
	}
}

func TestEntryInputValidateOK(t *testing.T) {
	require.NoError(t, validInput().Validate())
}

func TestEntryInputValidateTooFewLines(t *testing.T) {
	in := validInput()
	in.Lines = in.Lines[:1]
	require.ErrorIs(t, in.Validate(), shared.ErrTooFewLines)
}

func TestEntryInputValidateUnbalanced(t *testing.T) {
	in := validInput()
	in.Lines[1].Credit = decimal.RequireFromString("49.99")
	require.ErrorIs(t, in.Validate(), shared.ErrUnbalanced)
}

func TestEntryInputValidateLineBothSides(t *testing.T) {
	in := validInput()
	in.Lines[0].Credit = decimal.RequireFromString("1.00")
	require.ErrorIs(t, in.Validate(), shared.ErrLineBothSides)
}

func TestEntryInputValidateLineEmpty(t *testing.T) {
	in := validInput()
	in.Lines = append(in.Lines, LineInput{AccountCode: "3.1.01"})
	require.ErrorIs(t, in.Validate(), shared.ErrLineEmpty)
}

func TestEntryInputValidateNegativeAmount(t *testing.T) {
	in := validInput()
	in.Lines[0].Debit = decimal.RequireFromString("-50.00")
	require.ErrorIs(t, in.Validate(), shared.ErrNegativeAmount)
}

func TestEntryInputValidateMissingAccount(t *testing.T) {
	in := validInput()
	in.Lines[0].AccountCode = ""
	require.Error(t, in.Validate())
}

func TestEntryInputValidateRoundsAtTwoDecimals(t *testing.T) {
	in := validInput()
	// 0.004 rounds away at 2dp, so the totals still match.
	in.Lines[0].Debit = decimal.RequireFromString("50.004")
	in.Lines[1].Credit = decimal.RequireFromString("50.00")
	require.NoError(t, in.Validate())
}

func TestFormatEntryID(t *testing.T) {
	require.Equal(t, "JE-000001", FormatEntryID(1))
	require.Equal(t, "JE-000123", FormatEntryID(123))
	require.Equal(t, "JE-1000000", FormatEntryID(1000000))
}

func TestParseEntryID(t *testing.T) {
	n, err := ParseEntryID("JE-000042")
	require.NoError(t, err)
	require.EqualValues(t, 42, n)

	_, err = ParseEntryID("INV-000042")
	require.Error(t, err)
}
