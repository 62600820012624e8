package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fintrack/internal/client/services"
)

// Execute runs one REPL line. A fresh command tree is built per line so
// flag values never leak from one command into the next.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.newRootCmd()
	root.SetArgs(args)
	root.SetOut(a.out)
	root.SetErr(a.out)
	return root.ExecuteContext(ctx)
}

func (a *App) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ft",
		Short:         "Offline-first personal finance tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddGroup(
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "records", Title: "Records:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
	)

	root.AddCommand(
		a.registerCmd(), a.loginCmd(), a.logoutCmd(),
		a.addCmd(), a.editCmd(), a.archiveCmd(), a.restoreCmd(), a.showCmd(), a.listCmd(),
		a.statusCmd(), a.queueCmd(), a.unsyncedCmd(), a.retryCmd(), a.discardCmd(), a.syncCmd(), a.compactCmd(),
		&cobra.Command{
			Use:     "exit",
			Aliases: []string{"quit"},
			Short:   "Leave the program",
			RunE:    func(*cobra.Command, []string) error { return errExit },
		},
	)
	return root
}

// requireLogin is a PreRunE for commands that need a session.
func (a *App) requireLogin(*cobra.Command, []string) error {
	if !a.isLoggedIn() {
		return services.ErrNotLoggedIn
	}
	return nil
}
