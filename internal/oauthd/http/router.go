package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/oauthkit/internal/oauthd/store"
	"github.com/aussiebroadwan/oauthkit/pkg/httpx"
	"github.com/aussiebroadwan/oauthkit/pkg/jwtx"
	"github.com/aussiebroadwan/oauthkit/pkg/oauthhttp"
	"github.com/aussiebroadwan/oauthkit/pkg/slogx"

	_ "github.com/aussiebroadwan/oauthkit/api/oauthd" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	oauth        *oauthhttp.Middleware
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// Signer publishes its key at /.well-known/jwks.json. Optional: only
	// set when access tokens are JWTs.
	Signer *jwtx.Signer

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
}

func NewRouter(
	oauth *oauthhttp.Middleware,
	st store.Store,
	buildVersion string,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		oauth:        oauth,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerOAuth2()
	r.registerResources()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			oauthd
//	@version		0.1.0
//	@description	Demo authorization server for the oauthkit middleware. Issues tokens for the password,
//	@description	refresh_token, authorization_code and client_credentials grants.
//	@description
//	@description				Errors use the body {code, error, error_description}.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/oauthkit
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
//
//	@securityDefinitions.basic	BasicAuth
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerOAuth2() {
	// POST /token - strict rate limit by IP (covers all grant types)
	r.Mux.Handle("POST /oauth/token",
		httpx.Chain(http.HandlerFunc(TokenHandler),
			httpx.RateLimitByIP(httpx.StrictLimit),
			r.oauth.Token(),
		),
	)

	// GET and POST /authorize - strict by IP, then by client so one client
	// cannot drain the budget of everyone behind a shared address
	authorize := httpx.Chain(http.HandlerFunc(AuthorizeHandler),
		httpx.RateLimitByIPAndClient(httpx.StrictLimit),
		r.oauth.Authorize(),
	)
	r.Mux.Handle("GET /oauth/authorize", authorize)
	r.Mux.Handle("POST /oauth/authorize", authorize)

	if r.Signer != nil {
		// GET /jwks.json - public endpoint with high limit
		r.Mux.Handle("GET /.well-known/jwks.json",
			httpx.Chain(JWKSHandler(r.Signer),
				httpx.RateLimitByIP(httpx.PublicLimit),
			),
		)
	}
}

func (r *Router) registerResources() {
	secured := httpx.Chain(http.HandlerFunc(PrincipalHandler),
		r.oauth.Authenticate(), // verify bearer token
		httpx.RateLimitByPrincipal(httpx.ModerateLimit),
	)

	r.Mux.Handle("GET /v1/me", secured)
}

func (r *Router) registerSystem() {
	// Health check endpoints - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)

	if r.Metrics != nil {
		r.Mux.Handle("GET /metrics", r.Metrics)
	}
}
