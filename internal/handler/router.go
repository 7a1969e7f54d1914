package handler

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/campus-chat/backend/internal/handler/chat"
	"github.com/zhouzirui/campus-chat/backend/internal/handler/knowledge"
	"github.com/zhouzirui/campus-chat/backend/internal/handler/widget"
	middlewarePkg "github.com/zhouzirui/campus-chat/backend/internal/middleware"
	"github.com/zhouzirui/campus-chat/backend/pkg/utils"
)

// Dependencies 汇总路由所需的服务。
type Dependencies struct {
	Chat           chat.Replier
	Knowledge      knowledge.Store
	AdminToken     string
	FrameAncestors string
	// RateLimiter may be nil, which disables throttling of /api/chat.
	RateLimiter *middlewarePkg.RateLimiter
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.EmbedHeaders(deps.FrameAncestors))
	r.Use(middlewarePkg.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondText(w, http.StatusOK, "ok")
	})
	r.Get("/routes", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondText(w, http.StatusOK, strings.Join(listRoutes(r), "\n"))
	})

	chatHandler := chat.New(deps.Chat)
	r.Route("/api", func(api chi.Router) {
		if deps.RateLimiter != nil {
			api.Use(deps.RateLimiter.Middleware)
		}
		chatHandler.RegisterRoutes(api)
	})

	knowledge.New(deps.Knowledge, deps.AdminToken).RegisterRoutes(r)
	widget.New().RegisterRoutes(r)

	return r
}

// listRoutes returns "METHOD /path" lines in a stable order.
func listRoutes(r chi.Routes) []string {
	var routes []string
	_ = chi.Walk(r, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, fmt.Sprintf("%s %s", method, route))
		return nil
	})
	sort.Strings(routes)
	return routes
}
