package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sadopc/caltrack/internal/api"
	"github.com/sadopc/caltrack/internal/config"
	"github.com/sadopc/caltrack/internal/session"
	"github.com/sadopc/caltrack/internal/store"
	"github.com/spf13/cobra"
)

var errNoAthlete = errors.New("no athlete selected: pass --athlete once, it is remembered afterwards")

// env is what every command needs: resolved config, a logger and the
// preference store.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	store  *store.Store
}

func withEnv(cmd *cobra.Command, run func(*env) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.New(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	return run(&env{cfg: cfg, logger: logger, store: st})
}

// loadConfig layers the command line flags over config.Load.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if cmd.Flags().Changed("db") {
		cfg.DB.Path = dbPath
	}
	if cmd.Flags().Changed("server") {
		cfg.Server.URL = serverURL
	}
	if cfg.DB.Path == "" {
		if cfg.DB.Path, err = store.DefaultDBPath(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}

// resolveAthlete picks the athlete from --athlete or the store and records
// it as the most recent one.
func resolveAthlete(cmd *cobra.Command, st *store.Store) (int64, error) {
	id := athleteID
	if !cmd.Flags().Changed("athlete") {
		stored, ok, err := st.AthleteID()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, errNoAthlete
		}
		id = stored
	}
	if id <= 0 {
		return 0, fmt.Errorf("athlete must be > 0, got %d", id)
	}
	if err := st.UseAthlete(id); err != nil {
		return 0, err
	}
	return id, nil
}

// connect builds a client and loads the anti-forgery token it needs for
// writes.
// deletePolicy reads the stored delete policy. A missing setting means
// fire-and-forget.
func deletePolicy(st *store.Store) (session.DeletePolicy, error) {
	v, err := st.SettingOr(store.KeyDeletePolicy, session.DeleteFireAndForget.String())
	if err != nil {
		return session.DeleteFireAndForget, fmt.Errorf("read delete policy: %w", err)
	}
	return session.ParseDeletePolicy(v), nil
}

func connect(ctx context.Context, cfg config.Config, logger *slog.Logger) (*api.Client, error) {
	if strings.TrimSpace(cfg.Server.URL) == "" {
		return nil, errors.New("server URL is empty: set --server or CALTRACK_SERVER_URL")
	}
	client := api.New(cfg.Server.URL, cfg.Server.Timeout, logger)
	if _, err := client.Bootstrap(ctx, cfg.Server.TokenPage); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cfg.Server.URL, err)
	}
	return client, nil
}
