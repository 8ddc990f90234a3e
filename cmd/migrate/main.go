package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/noah-isme/storefront-checkout/internal/config"
	"github.com/noah-isme/storefront-checkout/internal/db"
	"github.com/noah-isme/storefront-checkout/internal/obs"
)

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: migrate [-steps n] up|down|version")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("component", "migrate").Logger()

	switch flag.Arg(0) {
	case "up":
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migrate up")
		}
		logger.Info().Msg("migrations applied")
	case "down":
		if err := db.Rollback(cfg.DatabaseURL, *steps); err != nil {
			logger.Fatal().Err(err).Int("steps", *steps).Msg("migrate down")
		}
		logger.Info().Int("steps", *steps).Msg("migrations rolled back")
	case "version":
		version, dirty, err := db.Version(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("migration version")
		}
		logger.Info().Uint("version", version).Bool("dirty", dirty).Msg("migration version")
	default:
		flag.Usage()
		os.Exit(2)
	}
}
