package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"gastos/internal/core"
	"gastos/internal/services"
)

var (
	ErrExpenseNotFound  = errors.New("expense not found")
	ErrAmbiguousExpense = errors.New("expense id prefix matches more than one expense")
)

// NewAddCommand records an expense.
func NewAddCommand(opts *RootOptions) *cobra.Command {
	var photo string

	cmd := &cobra.Command{
		Use:   "add <amount> [description]",
		Short: "Record an expense",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := core.ParseAmount(args[0])
			if err != nil {
				return err
			}
			description := ""
			if len(args) == 2 {
				description = args[1]
			}
			if photo != "" {
				if photo, err = filepath.Abs(photo); err != nil {
					return fmt.Errorf("resolve photo path: %w", err)
				}
			}
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				exp, res, err := app.Engine.AddExpense(ctx, amount, description, photo)
				if err != nil {
					return err
				}
				return opts.output(cmd.OutOrStdout()).Expense(exp, res, "")
			})
		},
	}

	cmd.Flags().StringVarP(&photo, "photo", "p", "", "photo of the receipt")
	return cmd
}

// NewListCommand prints the local expenses.
func NewListCommand(opts *RootOptions) *cobra.Command {
	var pull bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List expenses",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				if pull {
					if _, _, err := app.Engine.PullRemote(ctx); err != nil {
						return err
					}
				}
				return opts.output(cmd.OutOrStdout()).State(app.Engine.Snapshot())
			})
		},
	}

	cmd.Flags().BoolVar(&pull, "pull", false, "pull remote changes first")
	return cmd
}

// NewShareCommand shares an expense with another user.
func NewShareCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "share <id> <email>",
		Short: "Share an expense with a friend",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				exp, err := findExpense(app.Engine.Snapshot(), args[0])
				if err != nil {
					return err
				}
				email := strings.TrimSpace(args[1])
				shared, res, err := app.Engine.ShareExpense(ctx, exp, email)
				if err != nil {
					return err
				}
				message := ""
				if res.OK() {
					message = core.SharedMessage(email)
				}
				return opts.output(cmd.OutOrStdout()).Expense(shared, res, message)
			})
		},
	}
}

// NewDeleteCommand deletes an expense locally and remotely.
func NewDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete an expense",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				exp, err := findExpense(app.Engine.Snapshot(), args[0])
				if err != nil {
					return err
				}
				res, err := app.Engine.DeleteExpense(ctx, exp)
				if err != nil {
					return err
				}
				return opts.output(cmd.OutOrStdout()).Result(res, "", map[string]any{"id": exp.ID})
			})
		},
	}
}

// NewSyncCommand pulls the rows visible to the signed-in user.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Pull remote expenses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				if app.Engine.Snapshot().CurrentEmail == "" {
					return errors.New("not signed in")
				}
				n, res, err := app.Engine.PullRemote(ctx)
				if err != nil {
					return err
				}
				message := ""
				if res.Ran(services.StepSelectRows) && res.OK() {
					message = core.RefreshedMessage
				}
				return opts.output(cmd.OutOrStdout()).Result(res, message, map[string]any{"pulled": n})
			})
		},
	}
}

// NewLoginCommand signs in through the configured provider.
func NewLoginCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in with Google",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				res := app.Engine.SignIn(ctx)
				if err := res.Err(); err != nil {
					return fmt.Errorf("sign in: %w", err)
				}
				s := app.Backend.Session.Current()
				return opts.output(cmd.OutOrStdout()).Result(res,
					"Signed in as "+core.ResolveDisplayName(s),
					map[string]any{"email": s.Email})
			})
		},
	}
}

// NewLogoutCommand signs out and clears the local store.
func NewLogoutCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear local data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, app *App) error {
				res, err := app.Engine.SignOut(ctx)
				if err != nil {
					return err
				}
				return opts.output(cmd.OutOrStdout()).Result(res, "Signed out", nil)
			})
		},
	}
}

// findExpense resolves a full id or a unique id prefix against the current records.
func findExpense(s services.State, id string) (core.Expense, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return core.Expense{}, ErrExpenseNotFound
	}
	var (
		found core.Expense
		n     int
	)
	for _, e := range s.Records {
		if e.ID == id {
			return e, nil
		}
		if strings.HasPrefix(e.ID, id) {
			found = e
			n++
		}
	}
	switch n {
	case 0:
		return core.Expense{}, fmt.Errorf("%w: %s", ErrExpenseNotFound, id)
	case 1:
		return found, nil
	default:
		return core.Expense{}, fmt.Errorf("%w: %s", ErrAmbiguousExpense, id)
	}
}
