package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/sambeau/thyme/config"
	"github.com/sambeau/thyme/internal/logging"
	"github.com/sambeau/thyme/pkg/build"
	"github.com/sambeau/thyme/pkg/publish"
	"github.com/sambeau/thyme/pkg/repl"
	"github.com/sambeau/thyme/server"
)

// SiteFlags locate a project.
type SiteFlags struct {
	Root   string `help:"Project root" short:"r" default:"." type:"path"`
	Config string `help:"Path to config file (default: <root>/thyme.yaml or $THYME_CONFIG)" short:"c" type:"path"`
}

// load reads the project configuration. A project without a config file
// uses the defaults.
func (f *SiteFlags) load(e *env) (*config.Config, build.Reloader, error) {
	cfg, path, err := config.LoadWithPath(f.Config, f.Root, e.getenv)
	if errors.Is(err, config.ErrNoConfig) {
		cfg, err = config.ForDir(f.Root)
		if err == nil {
			err = config.Validate(cfg)
		}
		return cfg, nil, err
	}
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	reload := func() (*config.Config, error) {
		return config.Load(path, f.Root, e.getenv)
	}
	return cfg, reload, nil
}

func newLogger(cfg *config.Config, e *env) (*slog.Logger, error) {
	logger, err := logging.New(e.stderr, cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	for _, w := range config.Warnings(cfg) {
		logger.Warn(w)
	}
	return logger, nil
}

type buildCmd struct {
	SiteFlags `embed:""`
	Drafts    bool `help:"Render pages marked draft"`
}

// Run renders and publishes the site once.
func (b *buildCmd) Run(ctx context.Context, e *env) error {
	cfg, reload, err := b.load(e)
	if err != nil {
		return err
	}
	if b.Drafts {
		cfg.Build.Drafts = true
	}
	logger, err := newLogger(cfg, e)
	if err != nil {
		return err
	}

	pub, err := publish.New(cfg, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	res, err := pub.Build(ctx, build.New(cfg, reload, logger))
	if res == nil {
		return err
	}
	if err != nil {
		return fmt.Errorf("publishing: %w", err)
	}
	if res.Errors != nil {
		fmt.Fprintln(e.stderr, res.Errors)
		var be *build.BatchError
		if errors.As(res.Errors, &be) {
			return fmt.Errorf("build failed: %d error(s)", len(be.Errors))
		}
		return errors.New("build failed")
	}
	fmt.Fprintf(e.stdout, "Built %d page(s) into %s\n", len(res.Rendered), cfg.OutputDir)
	return nil
}

type serverCmd struct {
	SiteFlags `embed:""`
	Host      string `help:"Override listen host"`
	Port      int    `help:"Override listen port" short:"p"`
}

// Run serves the site until interrupted.
func (s *serverCmd) Run(ctx context.Context, e *env) error {
	cfg, reload, err := s.load(e)
	if err != nil {
		return err
	}
	if s.Host != "" {
		cfg.Server.Host = s.Host
	}
	if s.Port != 0 {
		cfg.Server.Port = s.Port
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	logger, err := newLogger(cfg, e)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pub, err := publish.New(cfg, logger)
	if err != nil {
		return err
	}
	defer pub.Close()

	return server.New(cfg, build.New(cfg, reload, logger), pub, logger).Run(ctx)
}

type evalCmd struct {
	SiteFlags `embed:""`
}

// Run starts the interactive evaluator.
func (v *evalCmd) Run(ctx context.Context, e *env) error {
	cfg, _, err := v.load(e)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, e)
	if err != nil {
		return err
	}
	engine, err := build.New(cfg, nil, logger).Engine(ctx)
	if err != nil {
		return err
	}
	repl.Start(ctx, repl.NewSession(engine, nil), e.stdout, Version)
	return nil
}
