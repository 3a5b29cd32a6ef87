package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/clinicsync/internal/common"
	"github.com/dmitrijs2005/clinicsync/internal/rpc"
	"github.com/spf13/cobra"
)

const timeLayout = "2006-01-02 15:04"

func newSyncCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Push local changes and pull remote ones now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !e.app.Session.CanSyncData(ctx) {
				return common.ErrSyncNotAllowed
			}
			if err := e.app.SyncNow(ctx); err != nil {
				return err
			}
			success(e.out, "Sync finished.")

			counts, err := e.app.PendingSyncRecords(ctx)
			if err != nil {
				return err
			}
			if total := printCounts(e.out, counts); total > 0 {
				warn(e.out, "%d records are still pending.", total)
			}
			return nil
		},
	}
}

func newDaemonCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Sync in the background until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := e.app.Session.RefreshLoggedInUser(ctx); err != nil {
				e.logger.Warn(ctx, "refresh user failed", "error", err)
			}

			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				for unauthorized := range e.app.Session.IsUserUnauthorized(ctx) {
					if unauthorized {
						warn(e.out, "The server rejected this device. Log in again to resume syncing.")
					}
				}
			}()

			success(e.out, "Syncing every %s. Press Ctrl+C to stop.", e.cfg.SyncFrequency)
			e.app.RunBackgroundSync(ctx)
			wg.Wait()
			return nil
		},
	}
}

func newStatusCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the session and the records waiting to sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			u, err := e.app.Session.LoggedInUser(ctx)
			switch {
			case errors.Is(err, common.ErrNotFound):
				warn(e.out, "Not logged in.")
			case err != nil:
				return err
			default:
				expires := "-"
				exp, ok, err := e.app.AccessTokenExpiry(ctx)
				if err != nil {
					return err
				}
				if ok {
					expires = exp.Local().Format(timeLayout)
				}
				tw := newTable(e.out, "USER", "PHONE", "SESSION", "APPROVAL", "CAN SYNC", "TOKEN EXPIRES")
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\t%s\n",
					u.FullName, u.PhoneNumber, u.LoggedInStatus, u.Status, e.app.Session.CanSyncData(ctx), expires)
				_ = tw.Flush()
			}

			counts, err := e.app.PendingSyncRecords(ctx)
			if err != nil {
				return err
			}
			printCounts(e.out, counts)

			pulled, err := e.app.LastPulled(ctx)
			if err != nil {
				return err
			}
			if len(pulled) > 0 {
				tw := newTable(e.out, "RESOURCE", "LAST PULL")
				for _, r := range rpc.Resources {
					if t, ok := pulled[r]; ok {
						fmt.Fprintf(tw, "%s\t%s\n", r, t.Local().Format(timeLayout))
					}
				}
				_ = tw.Flush()
			}
			return nil
		},
	}
}
