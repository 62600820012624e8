package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fintrack/internal/client/models"
)

func (a *App) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "status",
		GroupID: "sync",
		Short:   "Show sync health",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.sync.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, renderStatus(st))
			return nil
		},
	}
}

func (a *App) queueCmd() *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:     "queue",
		GroupID: "sync",
		Short:   "List sync queue entries",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter []models.Status
			for _, s := range statuses {
				st := models.Status(s)
				if !st.Valid() {
					return fmt.Errorf("unknown status %q", s)
				}
				filter = append(filter, st)
			}

			entries, err := a.sync.Entries(cmd.Context(), filter...)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(a.out, "Queue is empty.")
				return nil
			}
			fmt.Fprintln(a.out, queueTable(entries))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "pending, syncing, failed or done (repeatable)")
	return cmd
}

func (a *App) unsyncedCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "unsynced",
		GroupID: "sync",
		Short:   "List records the server has not confirmed yet",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			recs, err := a.sync.Unsynced(cmd.Context())
			if err != nil {
				return err
			}
			if len(recs) == 0 {
				fmt.Fprintln(a.out, "Everything is synced.")
				return nil
			}
			fmt.Fprintln(a.out, recordTable(recs))
			return nil
		},
	}
}

func (a *App) retryCmd() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:     "retry <entry>",
		GroupID: "sync",
		Short:   "Release a failed entry for the next sync",
		Long: "Release a failed entry for the next sync. With --refresh the entry is\n" +
			"rebuilt from the record's current local state, which is how a fixed\n" +
			"record gets resent after the server rejected it.",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entryID(args[0])
			if err != nil {
				return err
			}
			if err := a.sync.Retry(cmd.Context(), id, refresh); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Entry %d will be retried.\n", id)
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "rebuild the payload from the current record")
	return cmd
}

func (a *App) discardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "discard <entry>",
		GroupID: "sync",
		Short:   "Drop a failed entry",
		Long: "Drop a failed entry. Discarding a failed create abandons the record,\n" +
			"which is then removed locally since the server never accepted it.",
		Args:    cobra.ExactArgs(1),
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := entryID(args[0])
			if err != nil {
				return err
			}
			if err := a.sync.Discard(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Entry %d discarded.\n", id)
			return nil
		},
	}
}

func (a *App) syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "sync",
		GroupID: "sync",
		Short:   "Sync now",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.sync.SyncNow(cmd.Context())
			if res.Busy {
				fmt.Fprintln(a.out, "A sync is already running.")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, renderRun(res))
			return nil
		},
	}
}

func (a *App) compactCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "compact",
		GroupID: "sync",
		Short:   "Remove old synced entries from the queue",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.sync.Compact(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Removed %d entries, archived %d.\n", res.Deleted, res.Archived)
			for _, k := range res.Keys {
				fmt.Fprintln(a.out, "  "+k)
			}
			return nil
		},
	}
}

func entryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}
