package controllers

import (
	"net/http"

	"github.com/kimanidev/dukapos-backend/api/responses"
	"github.com/kimanidev/dukapos-backend/internal/netwatch"
)

type HealthController struct {
	monitor *netwatch.Monitor
}

func NewHealthController(monitor *netwatch.Monitor) *HealthController {
	return &HealthController{monitor: monitor}
}

func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]any{"status": "ok"})
}

// Ready reports liveness plus the ledger reachability flag. A terminal is
// ready even when offline, it just queues locally.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]any{
		"status": "ok",
		"online": c.monitor.IsOnline(),
	})
}
