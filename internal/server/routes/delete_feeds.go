package routes

import (
	"encoding/json"
	"errors"
	"net/http"

	"stixgraph/internal/queue"
	"stixgraph/internal/server/middleware"
	"stixgraph/pkg/logger"
	"stixgraph/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// DeleteFeedHandler queues the removal of a feed, its stored bundles, and
// its converted graph.
func DeleteFeedHandler(c echo.Context) error {
	type deleteFeedParams struct {
		ID string `param:"id" validate:"required"`
	}

	type deleteFeedResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteFeedParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteFeedResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteFeedResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, deleteFeedResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	if _, err := app.Store.GetFeed(ctx, params.ID); err != nil {
		if errors.Is(err, store.ErrFeedNotFound) {
			return c.JSON(http.StatusNotFound, deleteFeedResponse{
				Message: "Feed not found",
			})
		}
		logger.Error("Failed to get feed", "feed_id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteFeedResponse{
			Message: "Internal server error",
		})
	}

	msg, err := json.Marshal(queue.DeleteMessage{FeedID: params.ID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, deleteFeedResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, "delete_queue", msg); err != nil {
		logger.Error("Failed to publish to delete_queue", "err", err)
		return c.JSON(http.StatusInternalServerError, deleteFeedResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, deleteFeedResponse{
		Message: "Feed deletion queued",
	})
}
