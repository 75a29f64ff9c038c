package mappings

import "time"

// AccountMapping links a generator key to a chart-of-accounts code,
// letting deployments redirect the well-known codes without code
// changes.
type AccountMapping struct {
	Module      string
	Key         string
	AccountCode string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
