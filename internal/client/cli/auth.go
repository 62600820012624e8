package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrijs2005/fintrack/internal/client/client"
	"github.com/dmitrijs2005/fintrack/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) registerCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "register",
		GroupID: "account",
		Short:   "Create an account on the server",
		Args:    cobra.NoArgs,
		RunE:    func(cmd *cobra.Command, _ []string) error { return a.Register(cmd.Context()) },
	}
}

func (a *App) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "login",
		GroupID: "account",
		Short:   "Log in, offline if the server is unreachable",
		Args:    cobra.NoArgs,
		RunE:    func(cmd *cobra.Command, _ []string) error { return a.Login(cmd.Context()) },
	}
}

func (a *App) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		GroupID: "account",
		Short:   "Log out; local data and queued changes are kept",
		Args:    cobra.NoArgs,
		PreRunE: a.requireLogin,
		RunE:    func(cmd *cobra.Command, _ []string) error { return a.Logout(cmd.Context()) },
	}
}

// Register prompts for a username and password and creates the account.
// The password is wiped before returning.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.Wipe(password)

	if err := a.authService.Register(ctx, userName, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered. Use 'login' to start.")
	return nil
}

// Login tries the server first and falls back to the locally cached
// verifier when the server is unavailable.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.Wipe(password)

	err = a.authService.OnlineLogin(ctx, userName, password)
	if err == nil {
		fmt.Fprintln(a.out, "Logged in (online).")
		return a.reconcile(ctx)
	}
	if !errors.Is(err, client.ErrUnavailable) {
		return err
	}

	fmt.Fprintln(a.out, "Server unavailable, trying offline login...")
	if err := a.authService.OfflineLogin(ctx, userName, password); err != nil {
		return fmt.Errorf("offline login: %w", err)
	}
	fmt.Fprintln(a.out, "Logged in (offline). Changes will sync when the server is back.")
	return a.reconcile(ctx)
}

// reconcile re-queues records a crash left unsynced without a queue entry.
func (a *App) reconcile(ctx context.Context) error {
	n, err := a.sync.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile local records: %w", err)
	}
	if n > 0 {
		fmt.Fprintf(a.out, "Re-queued %d unsynced records.\n", n)
	}
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
