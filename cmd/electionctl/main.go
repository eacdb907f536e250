// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Command electionctl runs administrator operations directly against the
// election database: issuing codes, managing clubs, changing settings and
// exporting results.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/danielhkuo/campus-ballot/db"
	"github.com/danielhkuo/campus-ballot/election"
	"github.com/danielhkuo/campus-ballot/logging"
	"github.com/danielhkuo/campus-ballot/models"
)

// app carries the connection settings shared by every subcommand. The
// database is opened on first use so admin-key works without one.
type app struct {
	dbURL    string
	dbType   string
	salt     string
	logLevel string

	log  *zap.Logger
	conn *sql.DB
	svc  *election.Service
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "electionctl",
		Short: "Administer campus elections from the command line",
		Long: `electionctl performs administrator operations against the election
database without going through the HTTP API.

Settings come from flags, then the environment (DATABASE_URL,
DATABASE_TYPE, ADMIN_KEY_SALT), then a .env file in the working directory.

Scopes are written "primary" or "club:<id>".`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Missing .env is normal outside development
			_ = godotenv.Load()
			a.fillFromEnv()

			log, err := logging.New(a.logLevel, "console", "electionctl")
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			a.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	root.PersistentFlags().StringVarP(&a.dbURL, "database", "d", "", "Database URL (or DATABASE_URL env)")
	root.PersistentFlags().StringVarP(&a.dbType, "type", "t", "", "Database type, sqlite or postgres (or DATABASE_TYPE env)")
	root.PersistentFlags().StringVar(&a.salt, "admin-salt", "", "Admin key salt (or ADMIN_KEY_SALT env)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	root.AddCommand(
		newIssueCodesCmd(a),
		newCreateClubCmd(a),
		newDeleteClubCmd(a),
		newConfigCmd(a),
		newTallyCmd(a),
		newAuditCmd(a),
		newAdminKeyCmd(a),
	)
	return root
}

func (a *app) fillFromEnv() {
	if a.dbURL == "" {
		a.dbURL = os.Getenv("DATABASE_URL")
	}
	if a.dbType == "" {
		a.dbType = os.Getenv("DATABASE_TYPE")
	}
	if a.dbType == "" {
		a.dbType = db.DriverSQLite
	}
	if a.salt == "" {
		a.salt = os.Getenv("ADMIN_KEY_SALT")
	}
}

// service opens the database and schema on first use.
func (a *app) service(ctx context.Context) (*election.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}
	if a.dbURL == "" {
		return nil, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	conn, err := db.Open(ctx, a.dbType, a.dbURL)
	if err != nil {
		return nil, err
	}
	if err := db.CreateSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}

	a.conn = conn
	a.svc = election.NewService(conn, a.log, election.Options{})
	a.log.Debug("database ready", zap.String("driver", a.dbType))
	return a.svc, nil
}

func (a *app) close() {
	if a.conn != nil {
		a.conn.Close()
		a.conn, a.svc = nil, nil
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
}

// scopeFlag registers --scope and returns a parser for it.
func scopeFlag(cmd *cobra.Command) func() (models.Scope, error) {
	var raw string
	cmd.Flags().StringVarP(&raw, "scope", "s", "primary", `Election scope ("primary" or "club:<id>")`)
	return func() (models.Scope, error) {
		scope, err := models.ParseScope(raw)
		if err != nil {
			return models.Scope{}, fmt.Errorf("%w: %q", err, raw)
		}
		return scope, nil
	}
}
