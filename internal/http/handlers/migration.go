package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/lumenapp/admin-backend/internal/domain"
	"github.com/lumenapp/admin-backend/internal/http/response"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/services"
)

const defaultRunHistoryLimit = 20

type MigrationHandler struct {
	migrations services.MigrationService
}

func NewMigrationHandler(migrations services.MigrationService) *MigrationHandler {
	return &MigrationHandler{migrations: migrations}
}

// GET /api/admin/migrations
func (h *MigrationHandler) List(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	out, err := h.migrations.List(dbc)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /api/admin/migrations/:id
func (h *MigrationHandler) Get(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	detail, err := h.migrations.Get(dbc, c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"migration": detail})
}

// GET /api/admin/migrations/:id/status
func (h *MigrationHandler) Status(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	status, err := h.migrations.Status(dbc, c.Param("id"))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"status": status})
}

// GET /api/admin/migrations/:id/runs
func (h *MigrationHandler) ListRuns(c *gin.Context) {
	limit := defaultRunHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.RespondError(c, http.StatusBadRequest, "validation_error", fmt.Errorf("limit must be a positive integer"))
			return
		}
		if n > 100 {
			n = 100
		}
		limit = n
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	runs, err := h.migrations.ListRuns(dbc, c.Param("id"), limit)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"runs": runs})
}

// POST /api/admin/migrations/:id
func (h *MigrationHandler) Trigger(c *gin.Context) {
	var opts types.MigrationOptions
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&opts); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
			return
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	run, err := h.migrations.Trigger(dbc, c.Param("id"), opts)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"run": run})
}

// DELETE /api/admin/migrations/:id/runs/:runId
func (h *MigrationHandler) CancelRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("runId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_run_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	run, err := h.migrations.Cancel(dbc, c.Param("id"), runID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"run": run})
}
