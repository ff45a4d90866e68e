package routes

import (
	"errors"
	"net/http"

	"stixgraph/internal/server/middleware"
	"stixgraph/pkg/logger"
	"stixgraph/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

func GetFeedsHandler(c echo.Context) error {
	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	feeds, err := app.Store.ListFeeds(ctx)
	if err != nil {
		logger.Error("Failed to list feeds", "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, feeds)
}

func GetFeedHandler(c echo.Context) error {
	type getFeedParams struct {
		ID string `param:"id" validate:"required"`
	}

	params := new(getFeedParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request params"})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	feed, err := app.Store.GetFeed(ctx, params.ID)
	if err != nil {
		if errors.Is(err, store.ErrFeedNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Feed not found"})
		}
		logger.Error("Failed to get feed", "feed_id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	return c.JSON(http.StatusOK, feed)
}
