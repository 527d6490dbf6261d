package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lumenapp/admin-backend/internal/http/response"
	"github.com/lumenapp/admin-backend/internal/pkg/dbctx"
	"github.com/lumenapp/admin-backend/internal/services"
)

type ConfigHandler struct {
	configs services.ConfigService
}

func NewConfigHandler(configs services.ConfigService) *ConfigHandler {
	return &ConfigHandler{configs: configs}
}

// GET /api/admin/config/pricing
func (h *ConfigHandler) GetPricing(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	view, err := h.configs.GetPricing(dbc)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// PUT /api/admin/config/pricing
func (h *ConfigHandler) UpdatePricing(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	view, err := h.configs.UpdatePricing(dbc, fields)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/admin/config/ai-provider
func (h *ConfigHandler) GetAIProvider(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	view, err := h.configs.GetAIProvider(dbc)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// PUT /api/admin/config/ai-provider
func (h *ConfigHandler) UpdateAIProvider(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	view, err := h.configs.UpdateAIProvider(dbc, fields)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// GET /api/admin/config/insights
func (h *ConfigHandler) GetInsightsFeatures(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	view, err := h.configs.GetInsightsFeatures(dbc)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

// PUT /api/admin/config/insights
func (h *ConfigHandler) UpdateInsightsFeatures(c *gin.Context) {
	fields, ok := bindFields(c)
	if !ok {
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	view, err := h.configs.UpdateInsightsFeatures(dbc, fields)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, view)
}

func bindFields(c *gin.Context) (map[string]any, bool) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return nil, false
	}
	return fields, true
}
