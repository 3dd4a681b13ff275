// Package main provides the entry point for the storefront gateway.
//
// @title        Storefront Gateway API
// @version      1.0
// @description  Browser-facing API of the storefront: session, cart, wishlist, checkout and catalog.
// @BasePath     /
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/spf13/cobra"

	_ "github.com/txn2/storefront/internal/apidocs" // register swagger docs
	"github.com/txn2/storefront/internal/server"
	"github.com/txn2/storefront/pkg/database/migrate"
	"github.com/txn2/storefront/pkg/platform"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "storefront",
		Short:         "Storefront gateway for the commerce backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "storefront.yaml", "Path to configuration file")

	root.AddCommand(newServeCmd(opts), newMigrateCmd(opts), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storefront version %s (commit %s, built %s)\n",
				server.Version, server.Commit, server.Date)
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	var address string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, opts.configPath, address, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "Listen address (overrides server.address)")
	return cmd
}

func serve(ctx context.Context, configPath, address string, logOut io.Writer) error {
	p, logger, err := server.NewWithConfig(configPath, logOut)
	if err != nil {
		return err
	}
	cfg := p.Config()
	if address != "" {
		cfg.Server.Address = address
	}

	if err := p.Start(ctx); err != nil {
		return fmt.Errorf("starting platform: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := p.Stop(stopCtx); err != nil {
			logger.Error("platform shutdown incomplete", "error", err)
		}
	}()

	ln, err := net.Listen("tcp", cfg.Server.Address)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Address, err)
	}
	srv := server.NewHTTPServer(cfg.Server, p.Handler())
	return server.Serve(ctx, srv, ln, cfg.Server.ShutdownTimeout, logger)
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the visitor database schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(opts.configPath, func(db *sql.DB) error {
					if err := migrate.Run(db); err != nil {
						return err
					}
					return printVersion(cmd.OutOrStdout(), db)
				})
			},
		},
		newMigrateDownCmd(opts),
		&cobra.Command{
			Use:   "version",
			Short: "Print the current schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withDatabase(opts.configPath, func(db *sql.DB) error {
					return printVersion(cmd.OutOrStdout(), db)
				})
			},
		},
	)
	return cmd
}

func newMigrateDownCmd(opts *rootOptions) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 0 {
				return fmt.Errorf("--steps must not be negative")
			}
			return withDatabase(opts.configPath, func(db *sql.DB) error {
				if steps > 0 {
					if err := migrate.Steps(db, -steps); err != nil {
						return err
					}
					return printVersion(cmd.OutOrStdout(), db)
				}
				if err := migrate.Down(db); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "all migrations rolled back")
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "Number of migrations to roll back (default all)")
	return cmd
}

// openDB is replaced in tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

func withDatabase(configPath string, fn func(*sql.DB) error) error {
	cfg, err := platform.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Database.DSN == "" {
		return fmt.Errorf("database.dsn is not configured")
	}

	db, err := openDB(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() { _ = db.Close() }()
	return fn(db)
}

func printVersion(w io.Writer, db *sql.DB) error {
	version, dirty, err := migrate.Version(db)
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(w, "schema version %d (%s)\n", version, state)
	return nil
}
