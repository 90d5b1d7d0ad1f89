package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	"consultant-dashboard/api"
	"consultant-dashboard/internal/adapter/gin/handler"
	"consultant-dashboard/internal/adapter/gin/middleware"
	"consultant-dashboard/pkg/logger"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Users     *handler.UserHandler
	Dashboard *handler.DashboardHandler
	Health    *handler.HealthHandler
}

// SetupRouter configures and returns a Gin router with all routes and middleware
func SetupRouter(h Handlers, rateLimiter *middleware.RateLimiter, log *zap.Logger) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(middleware.Recovery(log))
	router.Use(logger.RequestID())
	router.Use(middleware.Logger(log))

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", api.OpenAPI)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	limited := router.Group("", rateLimiter.Middleware())

	// API v1 routes
	v1 := limited.Group("/v1")
	{
		users := v1.Group("/users")
		{
			users.GET("", h.Users.ListUsers)
			users.POST("", h.Users.CreateUser)
			users.GET("/:id", h.Users.GetUser)
			users.PATCH("/:id", h.Users.UpdateUser)
			users.DELETE("/:id", h.Users.DeleteUser)
		}

		consultants := v1.Group("/consultants")
		{
			consultants.GET("", h.Users.ListConsultants)
			consultants.GET("/:id/clients", h.Users.ListClients)
		}

		v1.GET("/cep/:cep", h.Users.FetchAddress)
	}

	limited.GET("/", h.Dashboard.Index)
	ui := limited.Group("/dashboard")
	{
		ui.POST("/table", h.Dashboard.Table)
		ui.POST("/filters/clear", h.Dashboard.ClearFilters)
		ui.POST("/sort", h.Dashboard.Sort)
		ui.POST("/page", h.Dashboard.GoTo)
		ui.POST("/page-size", h.Dashboard.PageSize)
		ui.POST("/select", h.Dashboard.SelectRow)
		ui.POST("/select-page", h.Dashboard.SelectPage)
		ui.POST("/form/new", h.Dashboard.NewForm)
		ui.POST("/form/format", h.Dashboard.Format)
		ui.POST("/form/submit", h.Dashboard.Submit)
		ui.POST("/users/:id/edit", h.Dashboard.EditForm)
		ui.POST("/users/:id/delete", h.Dashboard.Delete)
	}

	return router
}
