// Package api assembles the HTTP API from the service modules
package api

import (
	"context"

	"hush/internal/modkit"
	"hush/internal/modkit/httpkit"
	"hush/internal/modkit/module"
	"hush/internal/platform/config"
	"hush/internal/platform/kv"
	"hush/internal/platform/logger"
	phttp "hush/internal/platform/net/http"
	"hush/internal/platform/store"

	boardmod "hush/internal/services/board/module"
	engagemod "hush/internal/services/engage/module"
	localmod "hush/internal/services/localstate/module"
)

// Options are the API options
type Options struct {
	Config config.Conf
	Store  *store.Store
	KV     kv.Store
	Logger *logger.Logger
}

// Mount wires the modules onto the router. The returned start function brings
// the board feed and the event sink up; cancel its ctx to tear down. The
// returned drain blocks until every in-flight engagement write has settled,
// call it during shutdown
func Mount(r phttp.Router, opt Options) (start func(ctx context.Context) error, drain func()) {
	var notify store.Notifier
	if n, ok := any(opt.Store.PG).(store.Notifier); ok {
		notify = n
	}

	deps := modkit.Deps{
		Log:    *opt.Logger,
		Cfg:    opt.Config,
		PG:     opt.Store.PG,
		CH:     opt.Store.CH,
		KV:     opt.KV,
		Notify: notify,
	}

	local := localmod.New(deps)
	localPorts := module.MustPortsOf[localmod.Ports](local)

	engage := engagemod.New(deps)
	engagePorts := module.MustPortsOf[engagemod.Ports](engage)

	board := boardmod.New(deps, localPorts.Identity, localPorts.Ledger, engagePorts.Sink)

	mods := []module.Module{local, engage, board}

	httpkit.MountAPIV1(r, httpkit.CommonStack(), func(api httpkit.Router) {
		for _, m := range mods {
			m.MountRoutes(api)
		}
	})

	start = func(ctx context.Context) error {
		if err := engage.Start(ctx); err != nil {
			return err
		}
		return board.Start(ctx)
	}
	return start, engagePorts.Sink.Flush
}
