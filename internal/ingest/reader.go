// Package ingest loads the raw transaction extract and the county
// demographic reference table.
//
// Two failure classes are kept strictly apart: a required column missing
// from the header is a schema violation and aborts the load, while a bad
// value inside a row is coerced to a safe default and counted in the run
// diagnostics.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"grantcuts/internal/core"
)

var (
	ErrMissingDateColumn       = errors.New(`missing required "action_date" column`)
	ErrMissingObligationColumn = errors.New(`missing required "federal_action_obligation" column`)
	ErrNoIdentifierColumns     = errors.New("no award or transaction identifier columns to build awardid")
)

const (
	colActionDate = "action_date"
	colObligation = "federal_action_obligation"
	colOutlay     = "total_outlayed_amount_for_overall_award"
)

// Result is the normalized transaction table plus everything the rest of
// the pipeline needs to know about how the load went.
type Result struct {
	Transactions []core.Transaction
	Diagnostics  Diagnostics

	// Degraded is true when no award-level identifier column existed and
	// identity fell back to the transaction-level unique key. Every "award"
	// downstream is then really a single transaction.
	Degraded bool

	// HasRecipientLocation reports whether the extract carried recipient
	// city and state columns. The city-month rollup only makes sense when
	// it did.
	HasRecipientLocation bool
}

// LoadTransactions reads the extract at path.
func LoadTransactions(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open transactions extract: %w", err)
	}
	defer f.Close()

	res, err := ReadTransactions(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return res, nil
}

// ReadTransactions streams the extract from r, resolving award identity and
// normalizing dates and amounts row by row.
func ReadTransactions(r io.Reader) (*Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	// Schema contract: without a date and an obligation column the pipeline
	// cannot proceed at all.
	dateIdx, ok := cols[colActionDate]
	if !ok {
		return nil, ErrMissingDateColumn
	}
	obligationIdx, ok := cols[colObligation]
	if !ok {
		return nil, ErrMissingObligationColumn
	}

	resolver, err := newIdentityResolver(cols)
	if err != nil {
		return nil, err
	}

	outlayIdx, hasOutlay := cols[colOutlay]
	_, hasCity := cols["recipient_city_name"]
	_, hasState := cols["recipient_state_code"]

	res := &Result{Degraded: resolver.degraded, HasRecipientLocation: hasCity && hasState}
	rowIndex := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.Diagnostics.MalformedRows++
			continue
		}

		res.Diagnostics.RowsRead++

		awardID := resolver.Resolve(record)
		if awardID == "" {
			res.Diagnostics.RowsDropped++
			continue
		}

		tx := core.Transaction{
			RowIndex: rowIndex,
			AwardID:  awardID,

			RecipientName:           field(record, cols, "recipient_name"),
			CFDANumber:              field(record, cols, "cfda_number"),
			CFDATitle:               field(record, cols, "cfda_title"),
			AwardingAgency:          field(record, cols, "awarding_agency_name"),
			FundingAgency:           field(record, cols, "funding_agency_name"),
			ActionTypeCode:          field(record, cols, "action_type_code"),
			ActionTypeDescription:   field(record, cols, "action_type_description"),
			CorrectionIndicatorCode: field(record, cols, "correction_delete_indicator_code"),
			CorrectionIndicatorDesc: field(record, cols, "correction_delete_indicator_description"),
			RecipientCity:           field(record, cols, "recipient_city_name"),
			RecipientState:          field(record, cols, "recipient_state_code"),
			RecipientCounty:         field(record, cols, "recipient_county_name"),
			PlaceOfPerformanceCity:  field(record, cols, "primary_place_of_performance_city_name"),
			PlaceOfPerformanceState: field(record, cols, "primary_place_of_performance_state_code"),
		}
		rowIndex++

		if t, parsed := parseDate(at(record, dateIdx)); parsed {
			tx.ActionDate = t
		} else {
			res.Diagnostics.CoercedDates++
		}

		if v, parsed := parseAmount(at(record, obligationIdx)); parsed {
			tx.Obligation = v
		} else {
			res.Diagnostics.CoercedAmounts++
		}

		if hasOutlay {
			if v, parsed := parseAmount(at(record, outlayIdx)); parsed {
				tx.Outlay = v
			} else {
				res.Diagnostics.CoercedOutlays++
			}
		}

		res.Transactions = append(res.Transactions, tx)
	}

	return res, nil
}

// at returns record[i], tolerating short rows.
func at(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return record[i]
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok {
		return ""
	}
	return strings.TrimSpace(at(record, i))
}
