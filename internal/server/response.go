package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/blogprojesi/backend/internal/services"
)

type simpleResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Operation successful"`
}

type dataResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, dataResponse{Success: true, Data: data})
}

func okMessage(c echo.Context, message string, data any) error {
	return c.JSON(http.StatusOK, dataResponse{Success: true, Message: message, Data: data})
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, simpleResponse{Success: false, Message: message})
}

// respondError maps service errors onto status codes. Anything that is not
// one of the service error classes is an infrastructure failure: it is
// logged and answered with a generic 500.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return fail(c, http.StatusNotFound, services.Message(err))
	case errors.Is(err, services.ErrValidation):
		return fail(c, http.StatusBadRequest, services.Message(err))
	case errors.Is(err, services.ErrForbidden):
		return fail(c, http.StatusForbidden, services.Message(err))
	}
	slog.Error("request failed",
		"method", c.Request().Method,
		"path", c.Path(),
		"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		"error", err,
	)
	return fail(c, http.StatusInternalServerError, "Internal server error")
}

// idParam parses a positive numeric path parameter.
func idParam(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(n), nil
}

// pageParams reads zero-based page and size query parameters.
func pageParams(c echo.Context) (int, int) {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	size, _ := strconv.Atoi(c.QueryParam("size"))
	return page, size
}
