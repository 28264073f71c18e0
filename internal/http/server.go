package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"livingcost/internal/core"
	"livingcost/internal/log"
	"livingcost/internal/middleware/ratelimit"
	"livingcost/internal/middleware/security"
	"livingcost/internal/middleware/trace"
	"livingcost/internal/services"
	appweb "livingcost/web"
)

// Estimator is the service behind the estimate and income routes.
type Estimator interface {
	Estimate(ctx context.Context, req services.EstimateRequest) (services.EstimateResult, error)
	RecommendIncome(ctx context.Context, monthlyCost float64, a core.IncomeAssumptions) (core.IncomeRecommendation, error)
}

// LocationLister lists the names the resolver can match.
type LocationLister interface {
	Locations(ctx context.Context) ([]string, error)
}

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

type Options struct {
	Addr               string
	Estimator          Estimator
	Locations          LocationLister
	Logger             *log.Logger
	RateLimitPerMinute int
	// ReadyChecks are run by /readyz, keyed by dependency name.
	ReadyChecks map[string]ReadyCheck
}

type Server struct {
	http.Server
	templates   *template.Template
	schemas     *requestSchemas
	estimator   Estimator
	locations   LocationLister
	readyChecks map[string]ReadyCheck
	logger      *log.Logger
	events      *log.StructuredLogger
	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	started     time.Time
}

// NewServer configures routes, templates and middleware, returning a
// ready-to-run server.
func NewServer(opts Options) (*Server, error) {
	if opts.Estimator == nil {
		return nil, errors.New("http server requires an estimator")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	schemas, err := loadRequestSchemas()
	if err != nil {
		return nil, err
	}

	s := &Server{
		templates:   t,
		schemas:     schemas,
		estimator:   opts.Estimator,
		locations:   opts.Locations,
		readyChecks: opts.ReadyChecks,
		logger:      logger,
		events:      log.NewStructuredLogger(logger),
		rateLimiter: ratelimit.NewLimiter(opts.RateLimitPerMinute),
		detector:    security.NewDetector(),
		started:     time.Now(),
	}

	mux := http.NewServeMux()
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssets(3600)(http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("/estimate", s.handleEstimate)
	mux.HandleFunc("/income", s.handleIncome)
	mux.HandleFunc("POST /api/v1/estimate", s.handleAPIEstimate)
	mux.HandleFunc("POST /api/v1/income", s.handleAPIIncome)
	mux.HandleFunc("GET /api/v1/locations", s.handleLocations)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.Addr = opts.Addr
	s.Handler = s.middleware(mux)
	s.ReadHeaderTimeout = 10 * time.Second
	return s, nil
}

// middleware wraps h outermost first: tracing, request logger, probe
// detection, security headers, then the POST rate limit.
func (s *Server) middleware(h http.Handler) http.Handler {
	tracer := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP)
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "Rate limit exceeded",
			log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
		ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.").Write(w)
	})(h)
	secured := security.Headers(security.DefaultHeadersConfig())(limited)
	detected := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request", log.FieldPath, r.URL.Path, log.FieldUserAgent, r.Header.Get("User-Agent"))
		}
		secured.ServeHTTP(w, r)
	})
	withLogger := log.Middleware(s.logger)(log.RequestIDMiddleware(trace.RequestIDFromRequest)(detected))
	return tracer.Middleware(withLogger)
}

// RateLimiter exposes the limiter so its stale clients can be evicted by
// the cache cleanup loop.
func (s *Server) RateLimiter() *ratelimit.Limiter {
	return s.rateLimiter
}
