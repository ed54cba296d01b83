// Command migrate applies or rolls back the embedded schema, or prints the applied version.
package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"capturehub/backend/internal/config"
	"capturehub/backend/internal/db/migrate"
	"capturehub/backend/internal/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	showVersion := flag.Bool("version", false, "Print the applied schema version and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if *showVersion {
		v, dirty, ok, err := migrate.Version(cfg.DatabaseURL, logger)
		if err != nil {
			logger.Fatal("read schema version", zap.Error(err))
		}
		if !ok {
			fmt.Println("no migrations applied")
			return
		}
		fmt.Printf("version %d (dirty=%v)\n", v, dirty)
		return
	}

	dir, err := migrate.ParseDirection(*direction)
	if err != nil {
		logger.Fatal("invalid flag", zap.Error(err))
	}
	if err := migrate.Run(cfg.DatabaseURL, dir, logger); err != nil {
		logger.Fatal("migrate", zap.String("direction", string(dir)), zap.Error(err))
	}
	logger.Info("migrations complete", zap.String("direction", string(dir)))
}
