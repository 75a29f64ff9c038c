package shared

import "errors"

var (
	// ErrUnbalanced indicates debit != credit.
	ErrUnbalanced = errors.New("accounting: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("accounting: journal requires at least two lines")
	// ErrLineBothSides indicates a line carrying both debit and credit.
	ErrLineBothSides = errors.New("accounting: line cannot carry both debit and credit")
	// ErrLineEmpty indicates a line with neither debit nor credit.
	ErrLineEmpty = errors.New("accounting: line must carry a debit or a credit")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("accounting: amounts cannot be negative")
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = errors.New("accounting: journal entry not found")
	// ErrInvalidStatus indicates action can't proceed from the current status.
	ErrInvalidStatus = errors.New("accounting: invalid status transition")
	// ErrAccountNotFound indicates a missing chart-of-accounts row.
	ErrAccountNotFound = errors.New("accounting: account not found")
	// ErrMissingMasterData indicates required configuration (currency,
	// account of a required type) is absent from the system entirely.
	ErrMissingMasterData = errors.New("accounting: missing master data")
	// ErrMappingNotFound indicates an account mapping is missing.
	ErrMappingNotFound = errors.New("accounting: account mapping not found")
)
