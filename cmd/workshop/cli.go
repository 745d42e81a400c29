package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/user"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/tendant/simple-workshop/pkg/workshop"
	"github.com/tendant/simple-workshop/pkg/workshop/config"
	"github.com/tendant/simple-workshop/pkg/workshop/emulator"
)

// cli carries global flags and the state shared by every command.
type cli struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	user       string

	cfg    *config.Config
	logger *slog.Logger

	// newEmulator replaces the configured platform, used by tests.
	newEmulator func(ctx context.Context) (*emulator.Emulator, func() error, error)
}

func (c *cli) setup(cmd *cobra.Command) error {
	if c.envFile != "" {
		if err := godotenv.Load(c.envFile); err != nil {
			return fmt.Errorf("failed to load env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg, err := config.Load(c.configFile,
		config.WithLogLevel(c.logLevel),
		func(cfg *config.Config) error {
			if c.logFormat != "" {
				cfg.LogFormat = c.logFormat
			}
			if c.user != "" {
				cfg.User = c.user
			}
			if cfg.User == "" {
				cfg.User = defaultUser()
			}
			return nil
		},
	)
	if err != nil {
		return err
	}

	c.cfg = cfg
	c.logger = newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(c.logger)
	return nil
}

func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level()}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func defaultUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return "local"
}

func (c *cli) openEmulator(ctx context.Context) (*emulator.Emulator, func() error, error) {
	if c.newEmulator != nil {
		return c.newEmulator(ctx)
	}
	return c.cfg.BuildEmulator(ctx, c.logger)
}

// withSession runs fn against a session that pumps events inline and leaves
// temporary storage alone.
func (c *cli) withSession(ctx context.Context, app workshop.AppID, fn func(s *workshop.Session) error) error {
	em, closeFn, err := c.openEmulator(ctx)
	if err != nil {
		return err
	}
	defer closeFn()

	if err := writeAppIDMarker(".", app, c.logger); err != nil {
		return err
	}

	opts := append(c.cfg.SessionOptions(c.logger, workshop.NoopMetrics{}),
		workshop.WithInlinePump(),
		workshop.WithoutStalePurge(),
	)
	s, err := workshop.Open(ctx, em, app, opts...)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// resolveApp returns the app named by the flag, or the configured one.
// Zero means neither was set.
func (c *cli) resolveApp(flag string) (workshop.AppID, error) {
	if flag != "" {
		return parseApp(flag)
	}
	return c.cfg.AppID, nil
}

func (c *cli) requireApp(flag string) (workshop.AppID, error) {
	app, err := c.resolveApp(flag)
	if err != nil {
		return 0, err
	}
	if app == 0 {
		return 0, errors.New("app id is required (--app or WORKSHOP_APP_ID)")
	}
	return app, nil
}

// parseApp accepts a decimal id or the name of a known application.
func parseApp(s string) (workshop.AppID, error) {
	s = strings.TrimSpace(s)
	for name, id := range workshop.KnownApps {
		if strings.EqualFold(name, s) {
			return id, nil
		}
	}
	app, err := workshop.ParseAppID(s)
	if err != nil {
		return 0, err
	}
	if app == 0 {
		return 0, errors.New("app id must not be 0")
	}
	return app, nil
}

func knownAppNames() []string {
	names := make([]string, 0, len(workshop.KnownApps))
	for name := range workshop.KnownApps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
