package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kshitizz36/Urumi-AI/pkg/gateway"
)

type livenessData struct {
	Alive bool `json:"alive"`
}

// LivenessHandler implements GET /health/live (§6): always 200 if the
// process is alive.
func LivenessHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		return ok(c, http.StatusOK, livenessData{Alive: true})
	}
}

type readinessData struct {
	Gateway    bool `json:"gateway"`
	Repository bool `json:"repository"`
}

// ReadinessHandler implements GET /health/ready (§6): 200 iff both
// pings succeed, 503 otherwise.
func ReadinessHandler(gw gateway.Gateway, repo Repository) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		gwOK := gw.HealthPing(ctx)
		repoOK := repo.HealthPing(ctx)

		status := http.StatusOK
		if !gwOK || !repoOK {
			status = http.StatusServiceUnavailable
		}
		return ok(c, status, readinessData{Gateway: gwOK, Repository: repoOK})
	}
}
