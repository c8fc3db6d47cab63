package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/domain"
	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store"
	"github.com/aussiebroadwan/bartab-security/pkg/httpx"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/aussiebroadwan/bartab-security/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.Keys
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store     store.Store
	blacklist store.Blacklist

	Engine           *service.ValidationEngine
	SessionService   *service.SessionService
	ResetLifecycle   *service.ResetTokenLifecycle
	PasswordService  *service.PasswordService
	BootstrapService *service.BootstrapService
	Auditor          *service.Auditor
}

func NewRouter(
	keys *jwtx.Keys,
	buildVersion string,
	st store.Store,
	blacklist store.Blacklist,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		blacklist:    blacklist,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSessions()
	r.registerAdmin()
	r.registerPassword()
	r.registerSystem()
	r.registerBootstrap()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.Engine)
}

func (r *Router) registerSessions() {
	h := &SessionHandler{Sessions: r.SessionService, Engine: r.Engine}

	// Rate limited by IP + username so one address cannot hammer an account
	r.Mux.Handle("POST /v1/auth/sign-in",
		httpx.Chain(http.HandlerFunc(h.HandleSignIn),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username"),
		),
	)

	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("POST /v1/auth/sign-out",
		httpx.Chain(http.HandlerFunc(h.HandleSignOut),
			r.authn(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Resource services call this on every request
	r.Mux.Handle("POST /v1/auth/validate",
		httpx.Chain(http.HandlerFunc(h.HandleValidate),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &RevokeHandler{Sessions: r.SessionService}

	r.Mux.Handle("POST /v1/admin/revoke",
		httpx.Chain(h,
			r.authn(),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("GET /v1/admin/audit/{userId}",
		httpx.Chain(&AuditHandler{Audit: r.Auditor},
			r.authn(),
			httpx.RequireAnyRole(domain.RoleAdmin),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerPassword() {
	h := &PasswordHandler{Resets: r.ResetLifecycle, Passwords: r.PasswordService}

	r.Mux.Handle("POST /v1/password/recover",
		httpx.Chain(http.HandlerFunc(h.HandleRecover),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)

	r.Mux.Handle("POST /v1/password/reset",
		httpx.Chain(http.HandlerFunc(h.HandleReset),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Strict: the current password is checked here
	r.Mux.Handle("PUT /v1/password",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			r.authn(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	bootstrapHandler := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(bootstrapHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /.well-known/jwks.json",
		httpx.Chain(JWKSHandler(r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	// Monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.blacklist),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
