// Package module wires the localstate service
package module

import (
	"hush/internal/modkit"
	"hush/internal/modkit/httpkit"
	"hush/internal/platform/kv"
	"hush/internal/services/localstate/domain"
	"hush/internal/services/localstate/repo"
	"hush/internal/services/localstate/service"
)

// Ports exposed by the localstate module
type Ports struct {
	Identity domain.IdentityPort
	Ledger   domain.LedgerPort
}

// Module implements the localstate service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the localstate module over the kv seam from deps.
// When the durable store is unavailable the caller passes a kv.Mem and the
// whole ledger degrades to session-only state
func New(deps modkit.Deps) *Module {
	store := deps.KV
	if store == nil {
		store = kv.NewMem()
	}
	svc := service.New(repo.New(store))

	m := &Module{deps: deps}
	m.ports = Ports{Identity: svc, Ledger: svc}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "localstate" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// MountRoutes satisfies modkit.Module; localstate has no HTTP surface
func (m *Module) MountRoutes(_ httpkit.Router) {}
