package api

import (
	_ "embed"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thanhnp/proof-of-reserves/internal/api/handlers"
	"github.com/thanhnp/proof-of-reserves/internal/api/middleware"
	"github.com/thanhnp/proof-of-reserves/internal/metrics"
	"github.com/thanhnp/proof-of-reserves/internal/storage"
	"github.com/thanhnp/proof-of-reserves/internal/verifier"
)

// maxBodyBytes caps the verification request payload; proofs are small
// and anything larger is abuse.
const maxBodyBytes = 40960

//go:embed web/index.html
var indexHTML []byte

// Router wraps the Gin router with handlers
type Router struct {
	engine         *gin.Engine
	proofHandler   *handlers.ProofHandler
	attemptHandler *handlers.AttemptHandler
	metrics        *metrics.Metrics
}

// NewRouter creates a new Router with all handlers
func NewRouter(service *verifier.Service, attempts *storage.AttemptStore, m *metrics.Metrics) *Router {
	gin.SetMode(gin.ReleaseMode)

	r := &Router{
		engine:         gin.New(),
		proofHandler:   handlers.NewProofHandler(service, attempts),
		attemptHandler: handlers.NewAttemptHandler(attempts),
		metrics:        m,
	}

	r.setupMiddleware()
	r.setupRoutes()

	return r
}

// setupMiddleware configures middleware
func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.Recovery())
	r.engine.Use(middleware.Logger())
	r.engine.Use(middleware.CORS())
	r.engine.Use(middleware.BodyLimit(maxBodyBytes))
}

// setupRoutes configures API routes
func (r *Router) setupRoutes() {
	r.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.engine.GET("/", func(c *gin.Context) {
		c.Data(200, "text/html; charset=utf-8", indexHTML)
	})

	r.engine.POST("/proof", r.proofHandler.Check)

	r.engine.GET("/prometheus", gin.WrapH(
		promhttp.HandlerFor(r.metrics.Registry(), promhttp.HandlerOpts{})))

	r.engine.GET("/attempts/recent", r.attemptHandler.GetRecent)
}

// Engine returns the underlying Gin engine
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Run starts the HTTP server
func (r *Router) Run(addr string) error {
	return r.engine.Run(addr)
}
