// Package http provides http transport for the board
package http

import (
	"context"
	stdhttp "net/http"
	"strconv"

	"hush/internal/modkit/httpkit"
	perr "hush/internal/platform/errors"
	pnet "hush/internal/platform/net"
	"hush/internal/services/board/domain"
	lsdom "hush/internal/services/localstate/domain"
)

// Register mounts board endpoints on the given router
func Register(r httpkit.Router, engine domain.EnginePort, ident lsdom.IdentityPort) {
	h := &handlers{engine: engine, ident: ident}

	httpkit.Get(r, "/feed", h.feed)
	httpkit.PostJSON[domain.Draft](r, "/whispers", h.publish)
	httpkit.Delete(r, "/whispers/mine", h.deleteOwn)
	httpkit.Post(r, "/whispers/{id}/love", h.love)
	httpkit.Post(r, "/whispers/{id}/report", h.report)
	httpkit.PostJSON[replyInput](r, "/whispers/{id}/replies", h.reply)
	httpkit.Post(r, "/whispers/{id}/replies/{replyID}/love", h.loveReply)
	httpkit.Post(r, "/read", h.markRead)
}

type handlers struct {
	engine domain.EnginePort
	ident  lsdom.IdentityPort
}

type replyInput struct {
	Text      string `json:"text" validate:"required,min=1,max=280"`
	ImageData string `json:"image_data" validate:"omitempty,max=1048576"`
}

type loveResult struct {
	Loved bool `json:"loved"`
}

// identity resolves the caller's identity token: the identity header when the
// client sent one, otherwise a server-issued token
func (h *handlers) identity(ctx context.Context) (string, error) {
	if id := pnet.IdentityID(ctx); id != "" {
		return id, nil
	}
	return h.ident.GetOrCreateIdentity(ctx)
}

func (h *handlers) feed(r *stdhttp.Request) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil {
			return nil, perr.InvalidArgf("page must be an integer")
		}
	}
	feed, err := h.engine.Feed(r.Context(), id, page)
	if err != nil {
		return nil, err
	}
	return httpkit.List(feed, feed.Total, feed.Page, domain.PageSize), nil
}

func (h *handlers) publish(r *stdhttp.Request, in domain.Draft) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	w, err := h.engine.Publish(r.Context(), id, in)
	if err != nil {
		return nil, err
	}
	return httpkit.Created(w), nil
}

func (h *handlers) deleteOwn(r *stdhttp.Request) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	if err := h.engine.DeleteOwn(r.Context(), id); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

func (h *handlers) love(r *stdhttp.Request) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	on, err := h.engine.Like(r.Context(), id, httpkit.Param(r, "id"))
	if err != nil {
		return nil, err
	}
	return loveResult{Loved: on}, nil
}

func (h *handlers) report(r *stdhttp.Request) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	if err := h.engine.Report(r.Context(), id, httpkit.Param(r, "id")); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

func (h *handlers) reply(r *stdhttp.Request, in replyInput) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	if err := h.engine.Reply(r.Context(), id, httpkit.Param(r, "id"), in.Text, in.ImageData); err != nil {
		return nil, err
	}
	return httpkit.Created(nil), nil
}

func (h *handlers) loveReply(r *stdhttp.Request) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	on, err := h.engine.LikeReply(r.Context(), id, httpkit.Param(r, "id"), httpkit.Param(r, "replyID"))
	if err != nil {
		return nil, err
	}
	return loveResult{Loved: on}, nil
}

func (h *handlers) markRead(r *stdhttp.Request) (any, error) {
	id, err := h.identity(r.Context())
	if err != nil {
		return nil, err
	}
	if err := h.engine.MarkRead(r.Context(), id); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}
