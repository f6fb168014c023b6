package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/apruvost/memodeck/internal/blockstore"
	"github.com/apruvost/memodeck/internal/config"
	"github.com/apruvost/memodeck/internal/engine"
	"github.com/apruvost/memodeck/internal/session"
	"github.com/apruvost/memodeck/internal/storage"
	"github.com/apruvost/memodeck/internal/web"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("memodeck: %v", err)
	}
}

func run() error {
	flags := flag.NewFlagSet("memodeck", flag.ExitOnError)
	configPath := flags.StringP("config", "c", "memodeck.yaml", "path to a YAML config file")
	flags.String("data_dir", "", "block store root directory")
	flags.String("listen", "", "HTTP listen address")
	flags.String("log_level", "", "log level: debug, info, warn or error")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath, flags)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	eng := engine.New(filepath.Join(cfg.DataDir, "scratch"))
	if err := eng.Initialize(); err != nil {
		return err
	}
	blocks := blockstore.New(cfg.DataDir)
	store := storage.New(eng, blocks)
	defer store.Close()
	sessions := session.New(blocks, store, logger)

	// Resume the previous session, if the marker still resolves.
	ctx := context.Background()
	if key := sessions.CurrentKey(); key != "" {
		ok, err := sessions.LoadSessionByKey(ctx, key)
		if err != nil {
			return err
		}
		if ok {
			logger.Info("session resumed", "user_id", store.CurrentUserID())
		}
	}

	srv := web.NewServer(store, sessions, logger)
	logger.Info("listening", "addr", cfg.Listen, "data_dir", cfg.DataDir)
	return http.ListenAndServe(cfg.Listen, srv)
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
