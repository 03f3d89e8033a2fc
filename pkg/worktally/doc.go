// Package worktally classifies calendar activity records into work
// categories and tallies their hours by month or by date.
//
// Quick start:
//
//	w, err := worktally.New(worktally.WithModelDir("models/"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Close()
//
//	entries, err := w.Enrich(ctx, records)
//	if err != nil {
//	    log.Fatal(err) // errors.Is(err, worktally.ErrMalformedTemporalInput) for bad dates
//	}
//	table := w.AggregateByMonth(entries, time.January, time.December)
//
// Without a model directory, subjects are classified by keyword rules only.
// A Worktally is safe for concurrent use.
package worktally
