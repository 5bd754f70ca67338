package common

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github/chapool/go-sweeper/internal/api"
)

// StatusNotReady is returned while a component is missing or the sweeper terminated.
const StatusNotReady = 521

func GetReadyRoute(s *api.Server) *echo.Route {
	return s.Router.Management.GET("/ready", getReadyHandler(s))
}

// Readiness check
// This endpoint returns 200 when the sweeper is initialized and still running.
func getReadyHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.Ready() {
			return c.String(StatusNotReady, "Not ready.")
		}

		return c.String(http.StatusOK, "Ready.")
	}
}
