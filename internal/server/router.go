package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tradingstack/sentinel/internal/history"
	"github.com/tradingstack/sentinel/internal/watchdog"
)

// Router provides embeddable HTTP handlers for inspecting the watchdog.
// Endpoints:
//
//	GET {basePath}/status    last snapshot from the supervisor loop
//	GET {basePath}/events    query: limit=N (default 50)
//	GET {basePath}/healthz   liveness of the watchdog itself
//
// The API is read-only: the loop decides restarts on its own and nothing
// here may steer it. basePath may be empty or start with '/'; no trailing
// slash.
type Router struct {
	cache    *watchdog.StatusCache
	store    history.Store
	basePath string
}

// NewRouter constructs a new Router with configurable basePath. store may
// be nil when the event journal is disabled.
func NewRouter(cache *watchdog.StatusCache, store history.Store, basePath string) *Router {
	return &Router{cache: cache, store: store, basePath: sanitizeBase(basePath)}
}

// Handler returns an http.Handler powered by gin that can be mounted in any
// server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery())
	group := g.Group(r.basePath)
	group.GET("/status", r.handleStatus)
	group.GET("/events", r.handleEvents)
	group.GET("/healthz", r.handleHealthz)
	return g
}

// NewServer starts a standalone HTTP server on addr using this router.
func NewServer(addr, basePath string, cache *watchdog.StatusCache, store history.Store) (*http.Server, error) {
	r := NewRouter(cache, store, basePath)
	server := &http.Server{
		Addr:              addr,
		Handler:           r.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() { _ = server.ListenAndServe() }()
	return server, nil
}

type errorResp struct {
	Error string `json:"error"`
}

func (r *Router) handleStatus(c *gin.Context) {
	snap := r.cache.Get()
	if snap.UpdatedAt.IsZero() {
		writeJSON(c, http.StatusServiceUnavailable, errorResp{Error: "no check cycle has completed yet"})
		return
	}
	writeJSON(c, http.StatusOK, snap)
}

func (r *Router) handleEvents(c *gin.Context) {
	if r.store == nil {
		writeJSON(c, http.StatusNotFound, errorResp{Error: "event journal disabled"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeJSON(c, http.StatusBadRequest, errorResp{Error: "limit must be a positive integer"})
			return
		}
		limit = n
	}
	events, err := r.store.Recent(c.Request.Context(), limit)
	if err != nil {
		writeJSON(c, http.StatusInternalServerError, errorResp{Error: err.Error()})
		return
	}
	if events == nil {
		events = []history.Event{}
	}
	writeJSON(c, http.StatusOK, events)
}

func (r *Router) handleHealthz(c *gin.Context) {
	writeJSON(c, http.StatusOK, gin.H{"ok": true})
}
