package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"hush/internal/platform/config"
	perr "hush/internal/platform/errors"
	"hush/internal/platform/kv"
	"hush/internal/platform/logger"
	phttp "hush/internal/platform/net/http"
	"hush/internal/platform/store"
)

// downPG fails every statement, standing in for an unreachable database
type downPG struct{}

func (downPG) Exec(context.Context, string, ...any) (store.CommandTag, error) {
	return nil, perr.Storagef("down")
}

func (downPG) Query(context.Context, string, ...any) (store.Rows, error) {
	return nil, perr.Storagef("down")
}

func (downPG) QueryRow(context.Context, string, ...any) store.Row { return nil }

func (downPG) Tx(_ context.Context, fn func(q store.RowQuerier) error) error { return fn(downPG{}) }

func TestMount_RoutesServeAndDrainReturns(t *testing.T) {
	t.Parallel()

	mux := chi.NewRouter()
	start, drain := Mount(phttp.AdaptChi(mux), Options{
		Config: config.New().Prefix("HUSH_API_TEST_"),
		Store:  &store.Store{PG: downPG{}},
		KV:     kv.NewMem(),
		Logger: logger.Get(),
	})
	if start == nil {
		t.Fatal("start must be non-nil")
	}

	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/board/feed")
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("feed status = %d", resp.StatusCode)
	}
	var env struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Status != http.StatusText(http.StatusOK) {
		t.Fatalf("status = %q", env.Status)
	}

	// with nothing in flight the drain must come back right away
	done := make(chan struct{})
	go func() { drain(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drain did not return with no in-flight writes")
	}
}
