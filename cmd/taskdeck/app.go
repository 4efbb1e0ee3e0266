package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/Joseda-hg/taskdeck/internal/auth"
	"github.com/Joseda-hg/taskdeck/internal/config"
	"github.com/Joseda-hg/taskdeck/internal/db"
)

type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *db.Store
	auth    *auth.Service
	logFile *os.File
}

// openApp loads the config, opens the store and builds the auth service. Logs go to logOut,
// or to the log file in the user cache dir when logOut is nil.
func openApp(opts *rootOptions, logOut io.Writer) (*app, error) {
	cfgPath := opts.configPath
	if cfgPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = path
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	changed, err := config.EnsureSecret(&cfg)
	if err != nil {
		return nil, err
	}
	if changed {
		if err := config.Save(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("save config: %w", err)
		}
	}

	if opts.dbPath != "" {
		cfg.DBPath = opts.dbPath
	}
	if cfg.DBPath == "" {
		cfg.DBPath = config.DefaultDBPath(cfgPath)
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	a := &app{cfg: cfg}
	if logOut == nil {
		file, err := openLogFile()
		if err != nil {
			return nil, err
		}
		a.logFile = file
		logOut = file
	}
	a.logger = newLogger(logOut, cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(a.logger)

	if cfg.DBPath != ":memory:" {
		if err := config.EnsureDir(cfg.DBPath); err != nil {
			a.Close()
			return nil, err
		}
	}
	store, err := db.Open(cfg.DBPath, db.WithLogger(a.logger))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = store
	a.auth = auth.NewService(store, []byte(cfg.Auth.TokenSecret),
		auth.WithTokenTTL(cfg.TokenTTL()),
		auth.WithLogger(a.logger),
	)
	a.logger.Debug("app opened", "config", cfgPath, "db", cfg.DBPath)
	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warn("close store", "error", err)
		}
	}
	if a.logFile != nil {
		_ = a.logFile.Close()
	}
}
