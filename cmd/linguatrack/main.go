// Command linguatrack is the admin CLI: migrations, due lists, reviews,
// CSV import/export and one-off reminder runs against the server's database.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/vytor/linguatrack/internal/clock"
	"github.com/vytor/linguatrack/internal/config"
	"github.com/vytor/linguatrack/internal/db"
	"github.com/vytor/linguatrack/internal/logger"
	"github.com/vytor/linguatrack/internal/repository"
	"github.com/vytor/linguatrack/internal/repository/sqlite"
	"github.com/vytor/linguatrack/internal/services"
)

func main() {
	opts := &rootOptions{}
	err := newRootCmd(opts).Execute()
	// PersistentPostRunE is skipped when a command fails.
	_ = opts.close()
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	dbPath   string
	logLevel string
	// clock is injected by tests; nil means the system clock.
	clock clock.Clock

	app *cliApp
}

// cliApp holds what the subcommands work with. It is built once per
// invocation in the root PersistentPreRunE.
type cliApp struct {
	cfg       config.Config
	db        *db.DB
	clock     clock.Clock
	profiles  services.ProfileService
	cards     services.CardService
	reviews   services.ReviewService
	imports   services.ImportService
	statsRepo repository.StatsRepository
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "linguatrack",
		Short:         "LinguaTrack admin CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.close()
		},
	}

	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "database path (defaults to DB_PATH)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "DEBUG, INFO, WARN or ERROR (defaults to LOG_LEVEL)")

	root.AddCommand(
		newMigrateCmd(opts),
		newDueCmd(opts),
		newReviewCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newRemindCmd(opts),
	)
	return root
}

func (o *rootOptions) open(cmd *cobra.Command) error {
	cfg := config.Load()
	if o.dbPath != "" {
		cfg.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// Logs go to stderr so stdout stays clean for exports.
	logger.SetDefault(logger.New(
		logger.WithOutput(cmd.ErrOrStderr()),
		logger.WithLevel(logger.ParseLevel(cfg.LogLevel)),
		logger.WithColors(false),
		logger.WithPrefix("cli"),
	))

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}

	clk := o.clock
	if clk == nil {
		clk = clock.System()
	}

	cardRepo := sqlite.NewCardRepository(database.DB)
	scheduleRepo := sqlite.NewScheduleRepository(database.DB)
	cards := services.NewCardService(cardRepo, scheduleRepo, clk)

	o.app = &cliApp{
		cfg:       cfg,
		db:        database,
		clock:     clk,
		profiles:  services.NewProfileService(sqlite.NewProfileRepository(database.DB)),
		cards:     cards,
		reviews:   services.NewReviewService(cardRepo, scheduleRepo, clk),
		imports:   services.NewImportService(cardRepo, cards),
		statsRepo: sqlite.NewStatsRepository(database.DB),
	}
	return nil
}

func (o *rootOptions) close() error {
	if o.app == nil {
		return nil
	}
	err := o.app.db.Close()
	o.app = nil
	return err
}
