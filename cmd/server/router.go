package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linnemanlabs/go-core/httpmw"
	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/linnemanlabs/oasis/internal/authmw"
	"github.com/linnemanlabs/oasis/internal/triageapi"
)

const (
	healthyPath = "/-/healthy"
	readyPath   = "/-/ready"
	maxBody     = 64 << 10
)

type middlewareFunc = func(http.Handler) http.Handler

// apiDeps is everything the public listener needs.
type apiDeps struct {
	logger   log.Logger
	svc      triageapi.TriageService
	model    triageapi.ModelInfo
	tokens   []string
	healthz  http.Handler
	readyz   http.Handler
	metrics  middlewareFunc
	clientIP middlewareFunc
}

// newAPIHandler builds the chi router and wraps it in the middleware chain.
// Wrappers are applied inside out: the last one applied sees the raw request first.
func newAPIHandler(d apiDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Compress(5, "application/json"))
	r.Use(httpmw.AnnotateHTTPRoute)
	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(maxBody))

	// health checks stay unauthenticated for the load balancer
	r.Method(http.MethodGet, healthyPath, d.healthz)
	r.Method(http.MethodGet, readyPath, d.readyz)

	api := triageapi.New(d.logger, d.svc, d.model)
	r.Group(func(r chi.Router) {
		r.Use(authmw.BearerTokens(d.tokens...))
		api.RegisterRoutes(r)
	})

	var h http.Handler = r
	h = httpmw.WithLogger(d.logger)(h)
	h = httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id")(h)
	h = otelhttp.NewHandler(h, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != healthyPath && r.URL.Path != readyPath
		}),
		// renamed to the chi route pattern by AnnotateHTTPRoute
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(_ *http.Request) bool { return true }),
	)
	if d.metrics != nil {
		h = d.metrics(h)
	}
	if d.clientIP != nil {
		h = d.clientIP(h)
	}
	h = httpmw.RequestID("X-Request-Id")(h)
	h = httpmw.Recover(d.logger, nil)(h)
	h = httpmw.SecurityHeaders(h)
	return h
}
