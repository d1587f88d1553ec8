package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"user-directory-service/api/swagger"
	"user-directory-service/internal/adapter/gin/handler"
	"user-directory-service/internal/adapter/gin/middleware"
	"user-directory-service/pkg/metrics"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// Options groups what the router needs besides the user handler.
type Options struct {
	ServiceName string
	Release     bool
	Metrics     *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
	Checks      map[string]HealthCheck
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(userHandler *handler.UserHandler, log *zap.Logger, opts Options) *gin.Engine {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Recovery sits innermost so the logger and metrics see the 500
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics(opts.Metrics))
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	router.GET("/health", healthHandler(opts.ServiceName, opts.Checks))

	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	swaggerUI := httpSwagger.Handler(httpSwagger.URL("/swagger/" + swagger.FileName))
	router.GET("/swagger/*any", func(c *gin.Context) {
		if c.Param("any") == "/"+swagger.FileName {
			c.Data(http.StatusOK, "application/json", swagger.Doc)
			return
		}
		swaggerUI(c.Writer, c.Request)
	})

	router.POST("/sign-up", userHandler.SignUp)
	router.POST("/sign-in", userHandler.SignIn)

	users := router.Group("/users")
	{
		users.GET("", userHandler.ListUsers)
		users.GET("/all", userHandler.ListAllUsers)
		users.GET("/:id", userHandler.GetUser)
		users.PUT("/:id", userHandler.UpdateUser)
		users.DELETE("/:id", userHandler.DeleteUser)
	}

	return router
}

func healthHandler(service string, checks map[string]HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": service,
			"checks":  results,
		})
	}
}
