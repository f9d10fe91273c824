package httpapi

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/dashboard"
	"github.com/i474232898/weather-dashboard/internal/render"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// ViewSource exposes the last rendered view.
type ViewSource interface {
	Current() (render.View, bool)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, orch *dashboard.Orchestrator, views ViewSource) {
	h := &handlers{orch: orch, views: views}

	v1 := app.Group("/api/v1")
	v1.Get("/dashboard", h.dashboard)
	v1.Post("/search", h.search)
	v1.Post("/places", h.loadPlace)
	v1.Post("/location", h.deviceLocation)
	v1.Post("/units/toggle", h.toggleUnits)
	v1.Post("/refresh", h.refresh)
	v1.Get("/favorites", h.listFavorites)
	v1.Post("/favorites", h.saveFavorite)
	v1.Delete("/favorites", h.removeFavorite)
}

// ErrorHandler renders every error as {error, message, status} JSON.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": err.Error(),
		"status":  code,
	})
}

type handlers struct {
	orch  *dashboard.Orchestrator
	views ViewSource
}

type dashboardResponse struct {
	dashboard.State
	View *render.View `json:"view"`
}

func (h *handlers) dashboard(c *fiber.Ctx) error {
	return c.JSON(h.state())
}

func (h *handlers) state() dashboardResponse {
	resp := dashboardResponse{State: h.orch.Snapshot()}
	if v, ok := h.views.Current(); ok {
		resp.View = &v
	}
	return resp
}

type searchRequest struct {
	Query string `json:"query" validate:"required"`
}

func (h *handlers) search(c *fiber.Ctx) error {
	var req searchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.orch.Search(c.UserContext(), req.Query); err != nil {
		return mapError(err)
	}
	return c.JSON(h.state())
}

type placeRequest struct {
	Lat   *float64 `json:"lat" validate:"required,gte=-90,lte=90"`
	Lon   *float64 `json:"lon" validate:"required,gte=-180,lte=180"`
	Label string   `json:"label" validate:"required"`
}

func (h *handlers) loadPlace(c *fiber.Ctx) error {
	var req placeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.orch.LoadPlace(c.UserContext(), *req.Lat, *req.Lon, req.Label); err != nil {
		return mapError(err)
	}
	return c.JSON(h.state())
}

// locationReport is what the browser sends after asking for geolocation:
// either coordinates or the error it got.
type locationReport struct {
	Lat   *float64 `json:"lat" validate:"omitempty,gte=-90,lte=90"`
	Lon   *float64 `json:"lon" validate:"omitempty,gte=-180,lte=180"`
	Error string   `json:"error"`
}

func (r locationReport) Locate(ctx context.Context) (weather.Coordinates, error) {
	if r.Error != "" {
		return weather.Coordinates{}, errors.New(r.Error)
	}
	if r.Lat == nil || r.Lon == nil {
		return weather.Coordinates{}, errors.New("no coordinates reported")
	}
	return weather.Coordinates{Lat: *r.Lat, Lon: *r.Lon}, nil
}

func (h *handlers) deviceLocation(c *fiber.Ctx) error {
	var req locationReport
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := h.orch.UseDeviceLocation(c.UserContext(), req); err != nil {
		return mapError(err)
	}
	return c.JSON(h.state())
}

func (h *handlers) toggleUnits(c *fiber.Ctx) error {
	h.orch.ToggleUnits()
	return c.JSON(h.state())
}

func (h *handlers) refresh(c *fiber.Ctx) error {
	if err := h.orch.Refresh(c.UserContext()); err != nil {
		return mapError(err)
	}
	return c.JSON(h.state())
}

func (h *handlers) listFavorites(c *fiber.Ctx) error {
	list, err := h.orch.Favorites()
	if err != nil {
		return mapError(err)
	}
	return c.JSON(fiber.Map{"favorites": list})
}

type favoriteRequest struct {
	Label string `json:"label"`
}

func (h *handlers) saveFavorite(c *fiber.Ctx) error {
	var req favoriteRequest
	if len(c.Body()) > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}
	list, err := h.orch.SaveFavorite(req.Label)
	if err != nil {
		return mapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"favorites": list})
}

func (h *handlers) removeFavorite(c *fiber.Ctx) error {
	lat, err := parseCoord(c.Query("lat"), 90)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lat: "+err.Error())
	}
	lon, err := parseCoord(c.Query("lon"), 180)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "lon: "+err.Error())
	}
	if err := h.orch.RemoveFavorite(lat, lon); err != nil {
		return mapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func bindAndValidate(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if err := validate.Struct(req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}

func parseCoord(s string, limit float64) (float64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, errors.New("required")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.New("not a number")
	}
	if v < -limit || v > limit {
		return 0, errors.New("out of range")
	}
	return v, nil
}

// mapError translates orchestrator errors into HTTP errors. The message is the
// user-facing status; details stay in the logs.
func mapError(err error) error {
	switch {
	case errors.Is(err, dashboard.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, dashboard.ErrNotFound.Error())
	case errors.Is(err, dashboard.ErrPermissionDenied):
		return fiber.NewError(fiber.StatusForbidden, dashboard.ErrPermissionDenied.Error())
	case errors.Is(err, dashboard.ErrNoPlace):
		return fiber.NewError(fiber.StatusConflict, dashboard.ErrNoPlace.Error())
	case errors.Is(err, dashboard.ErrStorageFailure):
		return fiber.NewError(fiber.StatusInternalServerError, dashboard.ErrStorageFailure.Error())
	case errors.Is(err, dashboard.ErrNetworkFailure):
		return fiber.NewError(fiber.StatusBadGateway, dashboard.ErrNetworkFailure.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, "internal error")
	}
}
