package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/productsense/research/api/handler"
	"github.com/productsense/research/api/middleware"
	"github.com/productsense/research/cache"
	"github.com/productsense/research/config"
	"github.com/productsense/research/fetch"
	"github.com/productsense/research/pipeline"
	"github.com/productsense/research/prose"
	"github.com/productsense/research/store"
)

// Deps carries everything the routes need. Browser and Prose may be nil:
// health then reports an empty pool, and the listing endpoint returns 503.
type Deps struct {
	Pipeline  *pipeline.Pipeline
	Browser   *fetch.Browser
	Cache     *cache.Cache
	Sinks     []store.Sink
	Prose     prose.Generator
	Config    *config.Config
	StartTime time.Time
}

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(d Deps) *gin.Engine {
	gin.SetMode(d.Config.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", handler.Health(d.Browser, d.StartTime))

	protected := v1.Group("")
	if d.Config.Auth.Enabled {
		protected.Use(middleware.Auth(d.Config.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(d.Config.RateLimit))

	// Synchronous research.
	protected.POST("/research", handler.Research(d.Pipeline, d.Cache, d.Sinks))

	// Async research jobs.
	protected.POST("/research/jobs", handler.PostResearchJob(d.Pipeline, d.Cache, d.Sinks))
	protected.GET("/research/jobs/:id", handler.GetResearchJob())

	// Listing copy generation from a finished record.
	protected.POST("/listing", handler.Listing(d.Prose))

	return r
}
