package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/roysantu2002/service-now-agent/internal/config"
	"github.com/roysantu2002/service-now-agent/internal/logging"
	"github.com/roysantu2002/service-now-agent/internal/metrics"
	"github.com/roysantu2002/service-now-agent/internal/mutate"
	"github.com/roysantu2002/service-now-agent/internal/querycache"
	"github.com/roysantu2002/service-now-agent/internal/rbac"
	"github.com/roysantu2002/service-now-agent/internal/snowapi"
	"github.com/roysantu2002/service-now-agent/internal/workspace"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closer, err := logging.NewLogger(cfg.Log.Path, cfg.Log.Level)
	if err != nil {
		log.Fatalf("logging: %v", err)
	}
	defer closer.Close()

	sess := rbac.Session{UserID: cfg.Session.UserID, Role: rbac.Role(cfg.Session.Role)}
	if !sess.Role.Valid() {
		log.Fatalf("unknown role %q (want USER or ADMIN)", cfg.Session.Role)
	}
	if sess.UserID == "" {
		log.Fatal("session.user_id must be set")
	}

	client := snowapi.NewClient(cfg.Server.BaseURL, time.Duration(cfg.Server.TimeoutSeconds)*time.Second, logger)
	cache := querycache.NewStore(logger)
	coord := mutate.NewCoordinator(client, cache, logger)

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		mlog := logging.WithComponent(logger, "metrics")
		go func() {
			mlog.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics server listening")
			if err := srv.ListenAndServe(); err != nil {
				mlog.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	logger.Info().
		Str("base_url", cfg.Server.BaseURL).
		Str("user", sess.UserID).
		Str("role", string(sess.Role)).
		Msg("starting workspace")

	p := tea.NewProgram(
		workspace.New(ctx, cfg, sess, client, cache, coord, logger),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
}
