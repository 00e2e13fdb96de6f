package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"hush/internal/modkit/repokit"
	"hush/internal/platform/config"
	"hush/internal/platform/kv"
	"hush/internal/platform/logger"
	phttp "hush/internal/platform/net/http"
	"hush/internal/platform/store"
	"hush/internal/services/api"
	boardrepo "hush/internal/services/board/repo"
)

func main() {
	root := config.New()
	apiCfg := root.Prefix("HUSH_API_")
	pgCfg := root.Prefix("HUSH_PGSQL_")
	chCfg := root.Prefix("HUSH_CLICKHOUSE_")
	kvCfg := root.Prefix("HUSH_KV_")

	l := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(
		ctx,
		store.Config{
			PG: store.PGConfig{
				Enabled:     true,
				URL:         pgCfg.MustString("DBURL"),
				MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
				SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
				LogSQL:      pgCfg.MayBool("LOG_SQL", false),
			},
			CH: store.CHConfig{
				Enabled:    chCfg.MayBool("ENABLED", false),
				URL:        chCfg.MayString("DBURL", ""),
				ClientName: "hush",
				ClientTag:  "api",
			},
		},
		store.WithLogger(*logger.Get()),
	)
	if err != nil {
		l.Panic().Err(err).Msg("store.Open failed")
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	repokit.MustGuard(ctx, st)

	if err := boardrepo.EnsureSchema(ctx, st.PG); err != nil {
		l.Panic().Err(err).Msg("schema migration failed")
	}

	// local ledger; a broken data dir degrades to session-only memory
	var local kv.Store
	if p, err := kv.Open(kvCfg.MayString("PATH", "data/hush-kv")); err != nil {
		l.Warn().Err(err).Msg("kv open failed, ledger is session-only")
		local = kv.NewMem()
	} else {
		local = p
	}
	defer func() { _ = local.Close() }()

	srv := phttp.NewServer(apiCfg)

	start, drain := api.Mount(srv.Router(), api.Options{
		Config: apiCfg,
		Store:  st,
		KV:     local,
		Logger: l,
	})
	if err := start(ctx); err != nil {
		l.Panic().Err(err).Msg("module start failed")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			l.Error().Err(err).Msg("shutdown failed")
		}
		// let in-flight engagement writes settle, but never hold shutdown hostage
		drained := make(chan struct{})
		go func() { drain(); close(drained) }()
		select {
		case <-drained:
		case <-time.After(3 * time.Second):
			l.Warn().Msg("engagement drain timed out")
		}
	case err := <-errCh:
		if err != nil {
			l.Panic().Err(err).Msg("http server stopped")
		}
	}
}
