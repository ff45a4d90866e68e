package server

import (
	"stixgraph/internal/server/middleware"
	"stixgraph/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api", middleware.AuthMiddleware)

	// Synchronous conversion
	apiRoutes.POST("/convert", routes.ConvertHandler, middleware.RequirePermission("convert.run"))

	// Feed routes
	apiRoutes.GET("/feeds", routes.GetFeedsHandler, middleware.RequirePermission("feed.view"))
	apiRoutes.POST("/feeds", routes.CreateFeedHandler, middleware.RequirePermission("feed.create"))
	apiRoutes.GET("/feeds/:id", routes.GetFeedHandler, middleware.RequirePermission("feed.view"))
	apiRoutes.GET("/feeds/:id/graph", routes.GetFeedGraphHandler, middleware.RequirePermission("feed.view"))
	apiRoutes.DELETE("/feeds/:id", routes.DeleteFeedHandler, middleware.RequirePermission("feed.delete"))
}
