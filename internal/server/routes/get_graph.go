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

// GetFeedGraphHandler returns the stored graph of a converted feed.
func GetFeedGraphHandler(c echo.Context) error {
	type getGraphParams struct {
		ID string `param:"id" validate:"required"`
	}

	type getGraphResponse struct {
		Message string        `json:"message"`
		State   string        `json:"state,omitempty"`
		Graph   *graphPayload `json:"graph,omitempty"`
	}

	params := new(getGraphParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphResponse{
			Message: "Invalid request params",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getGraphResponse{
			Message: "Invalid request params",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, getGraphResponse{
			Message: "Unauthorized",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	feed, err := app.Store.GetFeed(ctx, params.ID)
	if err != nil {
		if errors.Is(err, store.ErrFeedNotFound) {
			return c.JSON(http.StatusNotFound, getGraphResponse{
				Message: "Feed not found",
			})
		}
		logger.Error("Failed to get feed", "feed_id", params.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}

	if feed.State != store.FeedStateReady {
		return c.JSON(http.StatusConflict, getGraphResponse{
			Message: "Feed is not converted yet",
			State:   feed.State,
		})
	}

	g, diags, err := app.Store.LoadGraph(ctx, feed.ID)
	if err != nil {
		logger.Error("Failed to load graph", "feed_id", feed.ID, "err", err)
		return c.JSON(http.StatusInternalServerError, getGraphResponse{
			Message: "Internal server error",
		})
	}

	payload := newGraphPayload(g, diags)
	return c.JSON(http.StatusOK, getGraphResponse{
		Message: "Graph loaded",
		State:   feed.State,
		Graph:   &payload,
	})
}
