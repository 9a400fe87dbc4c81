package ingest

import (
	"strings"
)

// awardIDColumns are tried in priority order, per row: each row takes the
// first candidate with a non-empty value, so different rows may resolve via
// different columns.
var awardIDColumns = []string{
	"assistance_award_unique_key",
	"award_id_fain",
	"award_id_uri",
	"award_id",
}

// txIDColumn is the transaction-level fallback used only when none of the
// award-level candidates exist in the schema. Resolving through it changes
// award granularity to transaction granularity.
const txIDColumn = "assistance_transaction_unique_key"

type identityResolver struct {
	indexes  []int
	degraded bool
}

func newIdentityResolver(cols map[string]int) (*identityResolver, error) {
	var indexes []int
	for _, name := range awardIDColumns {
		if i, ok := cols[name]; ok {
			indexes = append(indexes, i)
		}
	}
	if len(indexes) > 0 {
		return &identityResolver{indexes: indexes}, nil
	}

	if i, ok := cols[txIDColumn]; ok {
		return &identityResolver{indexes: []int{i}, degraded: true}, nil
	}

	return nil, ErrNoIdentifierColumns
}

// Resolve returns the row's award identifier: the first non-empty candidate
// value, trimmed. Empty means no candidate resolved and the row must be
// dropped. Deterministic and idempotent for a given record.
func (r *identityResolver) Resolve(record []string) string {
	for _, i := range r.indexes {
		if v := strings.TrimSpace(at(record, i)); v != "" {
			return v
		}
	}
	return ""
}
