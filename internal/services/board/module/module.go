// Package module wires the board into the API using modkit
package module

import (
	"context"
	stdhttp "net/http"

	"hush/internal/adapters/geo"
	modkit "hush/internal/modkit"
	"hush/internal/modkit/httpkit"
	"hush/internal/modkit/repokit"
	str "hush/internal/platform/strings"
	"hush/internal/services/board/domain"
	boardhttp "hush/internal/services/board/http"
	"hush/internal/services/board/repo"
	"hush/internal/services/board/service"
	lsdom "hush/internal/services/localstate/domain"
)

// Ports exposed by the board module
type Ports struct {
	Engine domain.EnginePort
}

// Module implements the board service module
type Module struct {
	deps   modkit.Deps
	name   string
	prefix string

	mws       []func(stdhttp.Handler) stdhttp.Handler
	ports     Ports
	subrouter func(httpkit.Router) httpkit.Router
	register  func(httpkit.Router)

	svc *service.Service
}

// New constructs the board module. The localstate ports carry the caller's
// identity and interaction ledger; sink may be nil
func New(deps modkit.Deps, ident lsdom.IdentityPort, ledger lsdom.LedgerPort, sink service.EventSink, opts ...modkit.Option) *Module {
	b := modkit.Build(append([]modkit.Option{modkit.WithName("board"), modkit.WithPrefix("/board")}, opts...)...)

	o := FromConfig(deps.Cfg)

	var geocoder service.Geocoder
	if o.GeoEnabled {
		geocoder = geo.NewClient(geo.Options{BaseURL: o.GeoBaseURL})
	}

	svc := service.New(repokit.TxRunner(deps.PG), repo.NewPG(), ledger, service.Options{
		Notifier: deps.Notify,
		Geo:      geocoder,
		Sink:     sink,
		Words:    o.Words,
	})

	m := &Module{
		deps:      deps,
		name:      b.Name,
		prefix:    b.Prefix,
		mws:       b.Mw,
		subrouter: b.Subrouter,
		svc:       svc,
	}
	m.ports = Ports{Engine: svc}

	external := b.Register
	m.register = func(r httpkit.Router) {
		boardhttp.Register(r, m.svc, ident)
		if external != nil {
			external(r)
		}
	}
	return m
}

// Start loads the initial snapshot and begins following change notifications
func (m *Module) Start(ctx context.Context) error { return m.svc.Start(ctx) }

// MountRoutes mounts the module routes on the given router
func (m *Module) MountRoutes(r httpkit.Router) {
	r.Route(m.prefix, func(rr httpkit.Router) {
		for _, mw := range m.mws {
			rr.Use(mw)
		}
		if m.subrouter != nil {
			rr = m.subrouter(rr)
		}
		if m.register != nil {
			m.register(rr)
		}
	})
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.name }

// Prefix returns the module route prefix
func (m *Module) Prefix() string { return str.MustPrefix(m.prefix) }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
