package httpapi

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/forecast-viewer/internal/geocode"
	"github.com/i474232898/forecast-viewer/internal/pipeline"
	"github.com/i474232898/forecast-viewer/internal/store"
	"github.com/i474232898/forecast-viewer/internal/viewer"
	"github.com/i474232898/forecast-viewer/internal/weather"
)

var validate = validator.New()

const searchTimeout = 15 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, v *viewer.Viewer) {
	v1 := app.Group("/api/v1")

	v1.Get("/locations/search", func(c *fiber.Ctx) error {
		q := searchQuery{Query: c.Query("q")}
		if err := validate.Struct(q); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "query parameter q is required")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), searchTimeout)
		defer cancel()

		loc, err := v.Search(ctx, q.Query)
		if err != nil {
			switch {
			case errors.Is(err, geocode.ErrEmptyQuery):
				return fiber.NewError(fiber.StatusBadRequest, err.Error())
			case errors.Is(err, geocode.ErrNotFound):
				return fiber.NewError(fiber.StatusNotFound, "Could not find the location. Please try a different query.")
			default:
				return fiber.NewError(fiber.StatusBadGateway, "Error accessing geocoding service: "+err.Error())
			}
		}

		return c.JSON(fiber.Map{
			"query":     q.Query,
			"address":   loc.Address,
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
		})
	})

	v1.Post("/locations/confirm", func(c *fiber.Ctx) error {
		var req confirmRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		runID, err := v.Confirm(req.toLocation())
		if err != nil {
			if errors.Is(err, pipeline.ErrFetchInProgress) {
				return fiber.NewError(fiber.StatusConflict, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to start forecast fetch")
		}

		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"runId": runID})
	})

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(v.Status())
	})

	forecast := v1.Group("/forecast")

	forecast.Get("/daily", func(c *fiber.Ctx) error {
		panel, err := v.Daily()
		if err != nil {
			return notLoaded(err)
		}
		return c.JSON(panel)
	})

	forecast.Get("/hourly", func(c *fiber.Ctx) error {
		panel, err := v.Hourly()
		if err != nil {
			return notLoaded(err)
		}
		return c.JSON(panel)
	})

	forecast.Get("/current", func(c *fiber.Ctx) error {
		cur, err := v.Current()
		if err != nil {
			return notLoaded(err)
		}
		return c.JSON(cur)
	})
}

// ErrorHandler renders handler errors as {"error": true, "message": ...}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
	})
}

func notLoaded(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "no forecast loaded")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "failed to read forecast")
}

// searchQuery holds query parameters for the search endpoint.
type searchQuery struct {
	Query string `validate:"required"`
}

// confirmRequest is the body of the confirm endpoint. Coordinates are pointers
// so that a missing value is told apart from zero.
type confirmRequest struct {
	Address   string   `json:"address" validate:"required"`
	Latitude  *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

func (r confirmRequest) toLocation() weather.Location {
	return weather.Location{
		Address:   r.Address,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
	}
}
