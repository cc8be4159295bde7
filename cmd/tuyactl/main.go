package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/tuyactl/internal/app"
	"github.com/dokzlo13/tuyactl/internal/cli"
	"github.com/dokzlo13/tuyactl/internal/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Support both -c and --config for config path
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "Path to configuration file")
	flag.StringVar(&configPath, "c", "config.yaml", "Path to configuration file (shorthand)")
	var verbose bool
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.BoolVar(&verbose, "v", false, "Enable debug logging (shorthand)")
	resetState := flag.Bool("reset-state", false, "Clear cached device states before running")
	flag.Usage = func() {
		cli.Usage(os.Stderr)
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return cli.ExitFailure
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		setupLogging("info", false, true)
		log.Error().Err(err).Str("config", configPath).Msg("Failed to load configuration")
		return cli.ExitFailure
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	setupLogging(level, cfg.Log.JSON, cfg.Log.Colors)

	log.Debug().Str("config", configPath).Strs("args", args).Msg("Starting tuyactl")

	application, err := app.New(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create application")
		return cli.ExitFailure
	}
	defer application.Close()

	if *resetState {
		log.Info().Msg("Clearing cached device states (--reset-state)")
		if err := application.ClearDeviceStates(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear device states")
		}
	}

	// Create context that cancels on shutdown signal
	ctx := app.SignalContext()

	return application.Run(ctx, args)
}

func setupLogging(level string, useJSON bool, colors bool) {
	// ISO 8601 format with timezone
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "15:04:05.000",
			NoColor:    !colors,
		})
	}

	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}
