package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/opencustody/strongroom/internal/vault/service"
	"github.com/opencustody/strongroom/internal/vault/store"
	"github.com/opencustody/strongroom/pkg/httpx"
	"github.com/opencustody/strongroom/pkg/slogx"
	"github.com/opencustody/strongroom/pkg/tokenx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	codec        *tokenx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	SessionService *service.SessionService
	VaultService   *service.VaultService
	UserService    *service.UserService
	FileService    *service.FileService
}

func NewRouter(
	codec *tokenx.Codec,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerUsers()
	r.registerFiles()
	r.registerKeys()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Sessions: r.SessionService}

	// Credential endpoints take the strict limit. Login additionally keys on
	// the submitted email so one account cannot be brute forced from many IPs.
	r.Mux.Handle("POST /v1/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "email"),
		),
	)
	r.Mux.Handle("POST /v1/auth/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerUsers() {
	me := &MeHandler{Users: r.UserService}
	r.Mux.Handle("GET /v1/me",
		httpx.Chain(me,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		),
	)

	admin := &AdminUsersHandler{Users: r.UserService}
	secured := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		)
	}
	r.Mux.Handle("GET /v1/admin/users", secured(admin.HandleList))
	r.Mux.Handle("PUT /v1/admin/users/{user_id}/role", secured(admin.HandleSetRole))
	r.Mux.Handle("DELETE /v1/admin/users/{user_id}", secured(admin.HandleDelete))
}

func (r *Router) registerFiles() {
	h := &FilesHandler{Files: r.FileService, Users: r.UserService}
	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.LenientLimit),
		)
	}

	r.Mux.Handle("POST /v1/files", secured(h.HandleRegister))
	r.Mux.Handle("GET /v1/files", secured(h.HandleList))
	r.Mux.Handle("GET /v1/files/{file_id}", secured(h.HandleGet))
	r.Mux.Handle("DELETE /v1/files/{file_id}", secured(h.HandleDelete))
	r.Mux.Handle("POST /v1/files/{file_id}/grants", secured(h.HandleGrant))
	r.Mux.Handle("DELETE /v1/files/{file_id}/grants/{user_id}", secured(h.HandleRevoke))
	r.Mux.Handle("POST /v1/files/{file_id}/links", secured(h.HandleCreateLink))
}

func (r *Router) registerKeys() {
	h := &KMSHandler{Vault: r.VaultService}
	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitBySubject(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/keys/copy", secured(h.HandleCopy))
	r.Mux.Handle("POST /v1/keys/{resource_id}", secured(h.HandleStore))
	r.Mux.Handle("GET /v1/keys/{resource_id}", secured(h.HandleFetch))
	r.Mux.Handle("DELETE /v1/keys/{resource_id}", secured(h.HandleDelete))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
