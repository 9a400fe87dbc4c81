package sheets

import "context"

// Ports for outbound adapters.
type (
	// TableWriter replaces the named sheet's contents with the given
	// header and rows. Implementations must tolerate repeated writes of
	// the same table.
	TableWriter interface {
		WriteTable(ctx context.Context, name string, header []string, rows [][]string) error
	}
)
