// Package snapshot turns the normalized transaction table into per-award
// obligation trajectories and final-state snapshots.
//
// Awards are independent of each other, so the build fans out across a
// bounded worker group keyed by award id. A sequential run produces
// byte-identical output; parallelism is an optimization only.
package snapshot

import (
	"context"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"grantcuts/internal/core"
)

// Result pairs the ordered transaction table, now carrying cumulative
// obligations and de-obligation flags, with one snapshot per award.
type Result struct {
	Transactions []core.Transaction   // sorted by (award id, action date, source row)
	Snapshots    []core.AwardSnapshot // sorted by award id
}

// Build computes the trajectory of every award in txs. workers bounds how
// many awards are processed concurrently; values <= 0 mean GOMAXPROCS.
func Build(ctx context.Context, txs []core.Transaction, workers int) (*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	groups := make(map[string][]core.Transaction)
	for _, tx := range txs {
		groups[tx.AwardID] = append(groups[tx.AwardID], tx)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	ordered := make([][]core.Transaction, len(ids))
	snaps := make([]core.AwardSnapshot, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ordered[i], snaps[i] = buildAward(id, groups[id])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{
		Transactions: make([]core.Transaction, 0, len(txs)),
		Snapshots:    snaps,
	}
	for _, part := range ordered {
		res.Transactions = append(res.Transactions, part...)
	}
	return res, nil
}

// buildAward orders one award's transactions by action date with the source
// row as the stable tie-break (missing dates sort last) and computes the
// running obligation plus the award's final-state signals.
func buildAward(id string, txs []core.Transaction) ([]core.Transaction, core.AwardSnapshot) {
	ordered := append([]core.Transaction(nil), txs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i].ActionDate, ordered[j].ActionDate
		switch {
		case a.Equal(b):
			return ordered[i].RowIndex < ordered[j].RowIndex
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.Before(b)
		}
	})

	snap := core.AwardSnapshot{AwardID: id}
	cum := 0.0
	for i := range ordered {
		tx := &ordered[i]

		cum += tx.Obligation
		tx.CumulativeObligation = cum
		tx.IsDeobligation = tx.Obligation < 0

		// Exactly-zero amounts enter the cumulative sum but belong to
		// neither the positive nor the negative bucket.
		switch {
		case tx.Obligation > 0:
			snap.GrossPositiveObligation += tx.Obligation
		case tx.Obligation < 0:
			snap.AnyNegative = true
			snap.TotalNegativeAmount += tx.Obligation
		}
		snap.TotalObligationAmount += tx.Obligation

		if !tx.ActionDate.IsZero() {
			if snap.FirstActionDate.IsZero() {
				snap.FirstActionDate = tx.ActionDate
			}
			snap.LastActionDate = tx.ActionDate
			if tx.IsDeobligation && snap.FirstNegativeDate.IsZero() {
				snap.FirstNegativeDate = tx.ActionDate
			}
		}
	}

	if n := len(ordered); n > 0 {
		snap.FinalCumObligation = ordered[n-1].CumulativeObligation
		snap.TotalOutlayed = ordered[n-1].Outlay
	}

	return ordered, snap
}
