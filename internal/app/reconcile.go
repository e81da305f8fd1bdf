package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"staking-sync/internal/reconciler"
)

// ReconcileOptions configure a one-shot cycle.
type ReconcileOptions struct {
	// Strict makes any failed entry an error.
	Strict bool
	// Tokens limits the cycle to these registry keys; empty means all.
	Tokens []string
}

// Reconcile runs one cycle and prints the per-entry report.
func (a *App) Reconcile(ctx context.Context, opts ReconcileOptions) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, closeReader, err := a.newReconciler(store)
	if err != nil {
		return err
	}
	defer closeReader()

	var report reconciler.Report
	if len(opts.Tokens) > 0 {
		if report, err = rec.ReconcileKeys(ctx, opts.Tokens); err != nil {
			return err
		}
	} else {
		report = rec.ReconcileAll(ctx)
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Token\tAddress\tStatus\tAction\tAPY\tTVL\tError")
	for _, res := range report.Results {
		action, apy, tvl, errMsg := "-", "-", "-", ""
		if res.Status == reconciler.StatusOK {
			action = "updated"
			if res.Created {
				action = "created"
			}
			apy, tvl = res.APY.String(), res.TVL.String()
		} else if res.Err != nil {
			errMsg = fmt.Sprintf("%s: %s", res.Stage, sanitizeInline(res.Err.Error()))
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			res.TokenKey, res.TokenAddress, res.Status, action, apy, tvl, errMsg)
	}
	writer.Flush()
	fmt.Fprintf(a.Out, "\n%d succeeded, %d failed in %s\n",
		report.Succeeded(), report.Failed(), report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	if opts.Strict && report.Failed() > 0 {
		return fmt.Errorf("%d of %d entries failed", report.Failed(), len(report.Results))
	}
	return nil
}
