package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/useradmin/internal/server/config"
	"github.com/spf13/cobra"
)

// appFactory is a seam for tests.
var appFactory = NewApp

// NewRootCommand builds the console's command tree. Without a subcommand it
// starts the interactive REPL. Flag parsing is left to the config package,
// which reads -c/-config, -d and friends from the command line itself.
func NewRootCommand(ctx context.Context) *cobra.Command {
	open := func(cmd *cobra.Command) (*App, error) {
		app, err := appFactory(ctx, config.LoadConfig())
		if err != nil {
			return nil, err
		}
		app.out = cmd.OutOrStdout()
		return app, nil
	}

	root := &cobra.Command{
		Use:                "useradmin",
		Short:              "useradmin manages the user accounts table",
		Long:               "useradmin manages the user accounts table. Run without a command for an interactive console.",
		DisableFlagParsing: true,
		SilenceUsage:       true,
		Args:               cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := open(cmd)
			if err != nil {
				return err
			}
			app.Run(ctx)
			return nil
		},
	}

	once := func(use, short string, run func(a *App) error) *cobra.Command {
		return &cobra.Command{
			Use:                use,
			Short:              short,
			DisableFlagParsing: true,
			SilenceUsage:       true,
			RunE: func(cmd *cobra.Command, args []string) error {
				app, err := open(cmd)
				if err != nil {
					return err
				}
				defer app.Close()
				if err := run(app); err != nil {
					return fmt.Errorf("%s", describe(err))
				}
				return nil
			},
		}
	}

	root.AddCommand(
		once("list", "Print all accounts", func(a *App) error { return a.List(ctx, nil) }),
		once("status", "Check the database and print the last update time", func(a *App) error { return a.Status(ctx, nil) }),
		once("migrate", "Apply pending schema migrations and exit", func(a *App) error {
			fmt.Fprintln(a.out, "Schema is up to date")
			return nil
		}),
	)

	return root
}
