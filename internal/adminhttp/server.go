package adminhttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bavix/avwatch/internal/auth"
	"github.com/bavix/avwatch/internal/config"
	"github.com/bavix/avwatch/internal/devices"
	"github.com/bavix/avwatch/internal/metrics"
	"github.com/bavix/avwatch/internal/permissions"
	"github.com/bavix/avwatch/internal/version"
)

const (
	defaultReadHeaderTimeout     = 5 * time.Second
	defaultIdleTimeout           = 10 * time.Second
	defaultWriteTimeout          = 15 * time.Second
	defaultShutdownTimeout       = 5 * time.Second
	defaultStatsInterval         = 5 * time.Second
	defaultWebSocketReadLimit    = 1024
	defaultWebSocketTimeout      = 60 * time.Second
	defaultWebSocketPingInterval = 30 * time.Second
	defaultWebSocketWriteTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }} //nolint:gochecknoglobals // websocket upgrader

// Server is the admin HTTP and WebSocket surface of the device manager.
type Server struct {
	cfg       *config.Config
	mux       *mux.Router
	manager   *devices.Manager
	requests  *permissions.Registry
	authSvc   *auth.Service
	wsMu      sync.Mutex
	conns     map[*websocket.Conn]struct{}
	startTime time.Time
}

// NewServer creates the admin server. authSvc may be nil, in which case
// mutating routes are only rate limited.
func NewServer(
	cfg *config.Config,
	manager *devices.Manager,
	requests *permissions.Registry,
	authSvc *auth.Service,
) *Server {
	s := &Server{
		cfg:       cfg,
		mux:       mux.NewRouter(),
		manager:   manager,
		requests:  requests,
		authSvc:   authSvc,
		conns:     make(map[*websocket.Conn]struct{}),
		startTime: time.Now(),
	}

	s.routes()

	return s
}

// Start listens on the configured address and serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	addr := s.cfg.HTTP.Listen

	// Fast-fail if port is occupied
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	_ = ln.Close()

	srv := s.createServer(ctx, s.Handler(ctx))

	zerolog.Ctx(ctx).Info().Str("addr", addr).Msg("http listen")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("http server stopped")
		}
	}()

	return nil
}

// Handler returns the complete handler: middleware chain, routes and the
// WebSocket endpoint. Manager events are pushed to WebSocket clients until
// ctx is done.
func (s *Server) Handler(ctx context.Context) http.Handler {
	handler := s.buildMiddlewareChain(ctx)

	if s.manager != nil {
		unsubscribe := s.manager.Subscribe(func(ev devices.Event) {
			s.broadcast(map[string]any{"type": string(ev.Type), "data": ev})
		})

		go func() {
			ticker := time.NewTicker(defaultStatsInterval)
			defer ticker.Stop()
			defer unsubscribe()

			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					s.broadcast(map[string]any{"type": "stats", "data": s.collectStats()})
				}
			}
		}()
	}

	// Bypass middleware and otel wrappers for WebSocket upgrades to preserve http.Hijacker
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			s.handleWS(w, r.WithContext(zerolog.Ctx(ctx).WithContext(r.Context())))

			return
		}

		handler.ServeHTTP(w, r)
	})
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	limit := RateLimitMiddleware(s.cfg.HTTP.RefreshRate, s.cfg.HTTP.RefreshBurst)

	guards := []devices.Guard{devices.MiddlewareGuard(limit)}
	if s.authSvc != nil {
		guards = append(guards, auth.Guard(s.authSvc))

		api.Handle("/auth/me", auth.Middleware(s.authSvc)(http.HandlerFunc(handleWhoAmI))).Methods(http.MethodGet)
	}

	if s.authSvc != nil && len(s.cfg.HTTP.Users) > 0 {
		login := auth.LoginHandler(s.authSvc, authUsers(s.cfg.HTTP.Users), s.cfg.HTTP.LoginTokenTTL)
		api.Handle("/auth/login", limit(login)).Methods(http.MethodPost)
	}

	devices.NewAPIHandler(s.manager, s.requests).WithGuards(guards...).RegisterRoutes(api)

	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)

	s.mux.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

func authUsers(list []config.UserConfig) []auth.User {
	out := make([]auth.User, 0, len(list))
	for _, u := range list {
		out = append(out, auth.User{Name: u.Name, PasswordHash: u.PasswordHash, Role: u.Role})
	}

	return out
}

func handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.GetClaimsFromContext(r.Context())
	role := auth.GetRole(claims.Role)

	var expires time.Time
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}

	render.JSON(w, r, map[string]any{
		"subject":     claims.Subject,
		"role":        role.Name,
		"permissions": role.Permissions,
		"expires_at":  expires,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := metrics.GatherStats(metrics.Service())
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": err.Error()})

		return
	}

	render.JSON(w, r, st)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]any{
		"build":  version.Get(),
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
		"config": s.cfg.ToSafeConfig(),
	})
}

// handleHealth reports 503 until the first refresh has been scheduled and
// the service marked ready.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "healthy", http.StatusOK
	if !metrics.IsReady() {
		status, code = "starting", http.StatusServiceUnavailable
	}

	render.Status(r, code)
	render.JSON(w, r, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   version.GetVersion(),
		"uptime":    time.Since(s.startTime).String(),
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Log the error but don't use http.Error as it conflicts with WebSocket upgrade
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade failed")

		return
	}

	// The snapshot goes out before the connection joins the broadcast set,
	// under the same lock, so no event can overtake it.
	s.wsMu.Lock()
	if s.manager != nil {
		s.sendJSON(conn, map[string]any{"type": "snapshot", "data": s.manager.Snapshot()})
	}

	s.sendJSON(conn, map[string]any{"type": "stats", "data": s.collectStats()})
	s.conns[conn] = struct{}{}
	s.wsMu.Unlock()

	conn.SetReadLimit(defaultWebSocketReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(defaultWebSocketTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(defaultWebSocketTimeout))

		return nil
	})

	done := make(chan struct{})
	defer close(done)

	go func(c *websocket.Conn) {
		ticker := time.NewTicker(defaultWebSocketPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := c.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(defaultWebSocketWriteTimeout)); err != nil {
					return
				}
			}
		}
	}(conn)

	// Clients only listen; reads keep the deadline and detect closure.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.wsMu.Lock()
	delete(s.conns, conn)
	s.wsMu.Unlock()

	_ = conn.Close()
}

func (s *Server) collectStats() metrics.Stats {
	st, _ := metrics.GatherStats(metrics.Service())

	return st
}

func (s *Server) sendJSON(c *websocket.Conn, v any) {
	_ = c.SetWriteDeadline(time.Now().Add(defaultWebSocketWriteTimeout))
	_ = c.WriteJSON(v)
}

func (s *Server) broadcast(v any) {
	s.wsMu.Lock()
	defer s.wsMu.Unlock()

	for c := range s.conns {
		s.sendJSON(c, v)
	}
}

func (s *Server) buildMiddlewareChain(ctx context.Context) http.Handler {
	logger := zerolog.Ctx(ctx)

	var h http.Handler = s.mux

	// CORS
	corsOpts := cors.Options{
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}
	if len(s.cfg.HTTP.CORSOrigins) > 0 {
		corsOpts.AllowedOrigins = s.cfg.HTTP.CORSOrigins
	} else {
		corsOpts.AllowOriginFunc = func(_ string) bool { return true }
	}

	h = cors.New(corsOpts).Handler(h)

	// Security headers
	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'; connect-src 'self' ws: wss:",
	})
	h = sec.Handler(h)

	// Logging + request metadata
	h = hlog.NewHandler(*logger)(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		metrics.ObserveAdminRequest(r.Method, routeLabel(r.URL.Path), status)

		logger.Debug().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http")
	})(h)
	h = chimw.RequestID(h)
	h = chimw.RealIP(h)
	// Recoverer last to catch panics
	h = chimw.Recoverer(h)

	return otelhttp.NewHandler(h, "adminhttp")
}

// routeLabel keeps the route metric label bounded: ids and capabilities
// collapse into their resource.
func routeLabel(path string) string {
	switch path {
	case "/health", "/metrics", "/ws":
		return path
	}

	rest, ok := strings.CutPrefix(path, "/api/v1/")
	if !ok || rest == "" {
		return "other"
	}

	resource, _, _ := strings.Cut(rest, "/")

	return "/api/v1/" + resource
}

func (s *Server) createServer(ctx context.Context, handler http.Handler) *http.Server {
	srv := &http.Server{
		Addr:              s.cfg.HTTP.Listen,
		Handler:           handler,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		IdleTimeout:       orDefault(s.cfg.HTTP.IdleTimeout, defaultIdleTimeout),
		WriteTimeout:      orDefault(s.cfg.HTTP.WriteTimeout, defaultWriteTimeout),
		MaxHeaderBytes:    s.cfg.HTTP.MaxHeaderBytes,
	}
	srv.BaseContext = func(_ net.Listener) context.Context { return ctx }

	go func() {
		<-ctx.Done()
		// graceful shutdown with timeout, then force close
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		_ = srv.Shutdown(shutdownCtx)
		_ = srv.Close()
	}()

	return srv
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}

	return def
}
