package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/mstgnz/paylink/infra/config"
	"github.com/mstgnz/paylink/infra/response"
)

// ConfigHandler handles gateway configuration HTTP requests
type ConfigHandler struct {
	gatewayConfig *config.GatewayConfig
	validate      *validator.Validate
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(gatewayConfig *config.GatewayConfig, validate *validator.Validate) *ConfigHandler {
	return &ConfigHandler{
		gatewayConfig: gatewayConfig,
		validate:      validate,
	}
}

// SetConfigRequest represents a request to update gateway credentials
type SetConfigRequest struct {
	ClientID            string `json:"clientId,omitempty"`
	ClientSecret        string `json:"clientSecret,omitempty"`
	ExperienceProfileID string `json:"experienceProfileId,omitempty"`
	Environment         string `json:"environment,omitempty" validate:"omitempty,oneof=sandbox production"`
}

// SetConfig handles POST /v1/config
func (h *ConfigHandler) SetConfig(w http.ResponseWriter, r *http.Request) {
	var req SetConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	values := make(map[string]string)
	if req.ClientID != "" {
		values[config.KeyClientID] = req.ClientID
	}
	if req.ClientSecret != "" {
		values[config.KeyClientSecret] = req.ClientSecret
	}
	if req.ExperienceProfileID != "" {
		values[config.KeyExperienceProfileID] = req.ExperienceProfileID
	}
	if req.Environment != "" {
		values[config.KeyEnvironment] = req.Environment
	}

	if len(values) == 0 {
		response.Error(w, http.StatusBadRequest, "No configuration values provided", nil)
		return
	}

	if err := h.gatewayConfig.SetConfig(values); err != nil {
		response.Error(w, http.StatusBadRequest, "Failed to set gateway configuration", err)
		return
	}

	response.Success(w, http.StatusOK, "Gateway configuration updated", map[string]any{
		"environment": h.gatewayConfig.Environment(),
		"configured":  h.gatewayConfig.IsConfigured(),
	})
}

// GetConfig handles GET /v1/config. Secrets are never echoed back.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Gateway configuration", map[string]any{
		"environment":         h.gatewayConfig.Environment(),
		"configured":          h.gatewayConfig.IsConfigured(),
		"experienceProfileId": h.gatewayConfig.Get(config.KeyExperienceProfileID),
	})
}
