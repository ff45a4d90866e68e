package routes

import (
	"encoding/json"
	"net/http"

	"stixgraph/internal/queue"
	"stixgraph/internal/server/middleware"
	"stixgraph/internal/storage"
	"stixgraph/pkg/graph"
	"stixgraph/pkg/logger"
	"stixgraph/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// CreateFeedHandler registers a new feed from multipart/form-data, stores
// its bundle files, and queues the conversion.
func CreateFeedHandler(c echo.Context) error {
	type createFeedBody struct {
		Name               string `form:"name" validate:"required"`
		EdgeMode           string `form:"edge_mode"`
		IncludeObservables string `form:"include_observables"`
	}

	type createFeedResponse struct {
		Message string      `json:"message"`
		Feed    *store.Feed `json:"feed,omitempty"`
	}

	data := new(createFeedBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, createFeedResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, createFeedResponse{
			Message: "Invalid request body",
		})
	}

	form, err := c.MultipartForm()
	if err != nil {
		return c.JSON(http.StatusBadRequest, createFeedResponse{
			Message: "Invalid request body",
		})
	}
	uploads := form.File["bundles"]
	if len(uploads) == 0 {
		return c.JSON(http.StatusBadRequest, createFeedResponse{
			Message: "No bundle files provided",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, createFeedResponse{
			Message: "Unauthorized",
		})
	}

	feedID, err := gonanoid.New()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createFeedResponse{
			Message: "Internal server error",
		})
	}

	ctx := c.Request().Context()
	app := c.(*middleware.AppContext).App

	feed, err := app.Store.CreateFeed(ctx, store.CreateFeedParams{
		ID:                 feedID,
		Name:               data.Name,
		EdgeMode:           graph.ParseEdgeMode(data.EdgeMode).String(),
		IncludeObservables: data.IncludeObservables != "false",
	})
	if err != nil {
		logger.Error("Failed to create feed", "err", err)
		return c.JSON(http.StatusInternalServerError, createFeedResponse{
			Message: "Internal server error",
		})
	}

	for _, file := range uploads {
		src, err := file.Open()
		if err != nil {
			return c.JSON(http.StatusBadRequest, createFeedResponse{
				Message: "Could not open file",
			})
		}
		defer src.Close()

		if _, err := storage.PutBundle(ctx, app.S3, feedID, file.Filename, src); err != nil {
			logger.Error("Failed to upload bundle", "err", err)
			return c.JSON(http.StatusInternalServerError, createFeedResponse{
				Message: "Internal server error",
			})
		}
	}

	msg, err := json.Marshal(queue.ConvertMessage{FeedID: feedID})
	if err != nil {
		return c.JSON(http.StatusInternalServerError, createFeedResponse{
			Message: "Internal server error",
		})
	}
	if err := queue.PublishFIFO(app.Queue, "convert_queue", msg); err != nil {
		logger.Error("Failed to publish to convert_queue", "err", err)
	}

	return c.JSON(http.StatusOK, createFeedResponse{
		Message: "Feed created successfully",
		Feed:    &feed,
	})
}
