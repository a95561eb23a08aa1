package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"flipcheck/internal/tier"
)

// Usage prints the user's current quota consumption per action.
func (a *App) Usage(ctx context.Context, opts UsageOptions) error {
	if opts.UserID == "" {
		return errors.New("--user is required")
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Action\tUsed\tLimit\tRemaining\tResets (UTC)")

	for _, action := range []tier.Action{tier.ActionPriceLookup, tier.ActionExtraction} {
		status, err := svc.CheckQuota(ctx, opts.UserID, action)
		if err != nil {
			return err
		}

		limit := fmt.Sprintf("%d", status.Limit)
		remaining := fmt.Sprintf("%d", status.Remaining)
		if status.Limit < 0 {
			limit = "unlimited"
			remaining = "unlimited"
		}

		fmt.Fprintf(writer, "%s\t%d\t%s\t%s\t%s\n",
			action,
			status.Used,
			limit,
			remaining,
			status.ResetsAt.UTC().Format(time.RFC3339),
		)
	}

	writer.Flush()
	return nil
}
