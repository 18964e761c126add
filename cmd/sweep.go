package cmd

import (
	"database/sql"

	"github.com/fitstack/ms-go-account/app/repository"
	"github.com/fitstack/ms-go-account/app/service"
	"github.com/fitstack/ms-go-account/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired rows once and exit",
	Long:  `Delete expired pending registrations, verification codes, and refresh tokens, then exit. Useful as a cron job when the server's built-in sweeper is not wanted.`,
	Run:   runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	sweeper := service.NewSweeper(
		repository.NewPendingRegistrationRepository(db),
		repository.NewOTPCodeRepository(db),
		repository.NewRefreshTokenRepository(db),
	)

	if err := sweeper.Sweep(cmd.Context()); err != nil {
		logrus.WithError(err).Fatal("Sweep failed")
	}
}
