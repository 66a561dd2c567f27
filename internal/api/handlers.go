// Package api defines the bot's HTTP handlers.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/conversationai/perspective-modbot/internal/rules"
	"github.com/conversationai/perspective-modbot/internal/telemetry"
)

// Handler serves the introspection endpoints.
type Handler struct {
	serviceName    string
	serviceVersion string
	ruleSet        *rules.RuleSet
	telemetry      *telemetry.Provider
	startedAt      time.Time
}

// NewHandler creates the API handler.
func NewHandler(name, version string, rs *rules.RuleSet, tel *telemetry.Provider) *Handler {
	return &Handler{
		serviceName:    name,
		serviceVersion: version,
		ruleSet:        rs,
		telemetry:      tel,
		startedAt:      time.Now(),
	}
}

// SetupRoutes registers all routes on the router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)
	router.GET("/metrics", gin.WrapH(h.telemetry.Handler()))

	v1 := router.Group("/api/v1")
	v1.GET("/stats", h.Stats)
	v1.GET("/rules", h.Rules)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": h.serviceName,
		"version": h.serviceVersion,
	})
}

// Stats reports run-level information. Detailed counters live on /metrics.
func (h *Handler) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":        h.serviceName,
		"version":        h.serviceVersion,
		"uptime_seconds": int(time.Since(h.startedAt).Seconds()),
		"rules":          len(h.ruleSet.Rules),
		"ensembles":      len(h.ruleSet.Ensembles),
		"api_models":     h.ruleSet.APIModels,
	})
}

type ruleInfo struct {
	Name         string `json:"name"`
	Action       string `json:"action"`
	Description  string `json:"description"`
	ReportReason string `json:"report_reason,omitempty"`
}

// Rules lists the loaded rule set.
func (h *Handler) Rules(c *gin.Context) {
	out := make([]ruleInfo, 0, len(h.ruleSet.Rules))
	for _, rule := range h.ruleSet.Rules {
		out = append(out, ruleInfo{
			Name:         rule.Name,
			Action:       string(rule.Action),
			Description:  rule.String(),
			ReportReason: rule.ReportReason,
		})
	}
	c.JSON(http.StatusOK, gin.H{"rules": out})
}
