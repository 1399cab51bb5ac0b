package controllers

import (
	"net/http"

	"github.com/kimanidev/dukapos-backend/api/responses"
	"github.com/kimanidev/dukapos-backend/internal/syncengine"
	pkgerrors "github.com/kimanidev/dukapos-backend/pkg/errors"
	"github.com/kimanidev/dukapos-backend/pkg/logger"
)

type SyncController struct {
	engine *syncengine.Engine
	logg   *logger.Logger
}

func NewSyncController(engine *syncengine.Engine, logg *logger.Logger) *SyncController {
	return &SyncController{engine: engine, logg: logg}
}

// Trigger starts a drain of the pending-sale queue. A drain already running
// is reported as a conflict, never started twice.
func (c *SyncController) Trigger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	progress, err := c.engine.SyncPendingSales(ctx)
	if err != nil {
		// Per-record failures are already folded into the counts; the
		// aggregate error is logged and the progress still returned.
		c.logg.Error(ctx, "sync drain finished with failures", err)
	}

	if progress.InProgress && progress.TotalPending == 0 {
		responses.WriteError(ctx, c.logg, w,
			pkgerrors.New(pkgerrors.CodeSyncInFlight, "a sync is already running"))
		return
	}

	responses.WriteSuccess(w, progress)
}

func (c *SyncController) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	progress, err := c.engine.Status(ctx)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	responses.WriteSuccess(w, progress)
}
