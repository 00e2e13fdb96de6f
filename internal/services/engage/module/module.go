// Package module wires the engage sink into the API using modkit
package module

import (
	"context"
	stdhttp "net/http"
	"time"

	modkit "hush/internal/modkit"
	"hush/internal/modkit/httpkit"
	str "hush/internal/platform/strings"
	"hush/internal/services/engage/domain"
	"hush/internal/services/engage/repo"
	"hush/internal/services/engage/service"
)

// Ports exposed by the engage module
type Ports struct {
	Sink  *service.Service
	Query domain.QueryPort
}

// Module implements the engage service module
type Module struct {
	deps   modkit.Deps
	prefix string
	svc    *service.Service
	ch     *repo.CH
}

// New constructs the engage module. Without a clickhouse seam the sink still
// mounts and swallows every event
func New(deps modkit.Deps, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("engage"), modkit.WithPrefix("/engage")}, opts...)...)

	m := &Module{deps: deps, prefix: b.Prefix}
	if deps.CH != nil {
		m.ch = repo.NewCH(deps.CH)
		m.svc = service.New(m.ch, m.ch)
	} else {
		m.svc = service.New(nil, nil)
	}
	return m
}

// Start creates the events table when a clickhouse seam is present
func (m *Module) Start(ctx context.Context) error {
	if m.ch == nil {
		return nil
	}
	return m.ch.EnsureTable(ctx)
}

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	if m.ch == nil {
		return
	}
	r.Route(m.prefix, func(rr httpkit.Router) {
		httpkit.Get(rr, "/stats", m.stats)
	})
}

func (m *Module) stats(r *stdhttp.Request) (any, error) {
	since := time.Now().Add(-24 * time.Hour)
	return m.svc.CountsSince(r.Context(), since)
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "engage" }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Ports satisfies modkit.Module
func (m *Module) Ports() any {
	p := Ports{Sink: m.svc}
	if m.ch != nil {
		p.Query = m.ch
	}
	return p
}
