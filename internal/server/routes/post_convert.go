package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"stixgraph/internal/server/middleware"
	"stixgraph/pkg/bundle"
	"stixgraph/pkg/graph"
	"stixgraph/pkg/logger"
	"stixgraph/pkg/stix"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// ConvertHandler converts the bundles in the request body synchronously and
// returns the assembled graph without persisting anything.
func ConvertHandler(c echo.Context) error {
	type convertRequest struct {
		Bundles            []json.RawMessage `json:"bundles" validate:"required,min=1"`
		EdgeMode           string            `json:"edge_mode"`
		IncludeObservables *bool             `json:"include_observables"`
	}

	type convertResponse struct {
		Message string        `json:"message"`
		Graph   *graphPayload `json:"graph,omitempty"`
	}

	data := new(convertRequest)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, convertResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, convertResponse{
			Message: "Invalid request body",
		})
	}

	user := c.(*middleware.AppContext).User
	if user == nil {
		return c.JSON(http.StatusUnauthorized, convertResponse{
			Message: "Unauthorized",
		})
	}

	includeObservables := true
	if data.IncludeObservables != nil {
		includeObservables = *data.IncludeObservables
	}

	bundles := make([][]stix.RawRecord, 0, len(data.Bundles))
	for i, body := range data.Bundles {
		records, err := bundle.Decode(fmt.Sprintf("bundles[%d]", i), body)
		if err != nil {
			var shapeErr *bundle.ShapeError
			if errors.As(err, &shapeErr) {
				return c.JSON(http.StatusUnprocessableEntity, convertResponse{
					Message: shapeErr.Error(),
				})
			}
			return c.JSON(http.StatusBadRequest, convertResponse{
				Message: "Invalid bundle JSON",
			})
		}
		bundles = append(bundles, records)
	}

	converter := graph.NewConverter(graph.NewConverterParams{
		EdgeMode:           graph.ParseEdgeMode(data.EdgeMode),
		IncludeObservables: includeObservables,
	})
	g, diags, err := converter.Convert(c.Request().Context(), bundles)
	if err != nil {
		logger.Error("[Convert] Conversion failed", "err", err)
		return c.JSON(http.StatusInternalServerError, convertResponse{
			Message: "Internal server error",
		})
	}

	payload := newGraphPayload(g, diags)
	return c.JSON(http.StatusOK, convertResponse{
		Message: "Conversion completed",
		Graph:   &payload,
	})
}
