package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/meetwatch/meetwatch-agent/config"
	"github.com/meetwatch/meetwatch-agent/internal/logging"
	"github.com/meetwatch/meetwatch-agent/internal/monitor"
	"github.com/meetwatch/meetwatch-agent/internal/system"
)

const version = "1.0.0"

// Handlers holds all HTTP handlers
type Handlers struct {
	cfg     *config.Config
	monitor *monitor.Monitor
	auth    *AuthService
	log     *logging.Logger
}

// NewHandlers creates a new handlers instance
func NewHandlers(cfg *config.Config, mon *monitor.Monitor, auth *AuthService, log *logging.Logger) *Handlers {
	return &Handlers{
		cfg:     cfg,
		monitor: mon,
		auth:    auth,
		log:     log,
	}
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   version,
	})
}

// GetInfo handles GET /api/info
func (h *Handlers) GetInfo(c *gin.Context) {
	hostInfo, err := system.GetHostInfo()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hostname":   hostInfo.Hostname,
		"os":         hostInfo.OS,
		"platform":   hostInfo.Platform,
		"kernel":     hostInfo.KernelVersion,
		"arch":       hostInfo.KernelArch,
		"uptime":     hostInfo.UptimeHuman,
		"monitoring": h.monitor.IsMonitoring(),
		"agent":      "meetwatch-agent",
		"version":    version,
	})
}

// ListMeetings handles GET /api/meetings
func (h *Handlers) ListMeetings(c *gin.Context) {
	meetings := h.monitor.ActiveMeetings()

	c.JSON(http.StatusOK, gin.H{
		"meetings": meetings,
		"total":    len(meetings),
	})
}

// GetMeeting handles GET /api/meetings/:id
func (h *Handlers) GetMeeting(c *gin.Context) {
	id := c.Param("id")

	meeting, found := h.monitor.GetMeetingState(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
		return
	}

	c.JSON(http.StatusOK, meeting)
}

// MonitorStatus handles GET /api/monitor
func (h *Handlers) MonitorStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"monitoring":      h.monitor.IsMonitoring(),
		"active_meetings": len(h.monitor.ActiveMeetings()),
	})
}

// StartMonitoring handles POST /api/monitor/start
func (h *Handlers) StartMonitoring(c *gin.Context) {
	if err := h.monitor.Start(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"monitoring": h.monitor.IsMonitoring()})
}

// StopMonitoring handles POST /api/monitor/stop
func (h *Handlers) StopMonitoring(c *gin.Context) {
	h.monitor.Stop()
	c.JSON(http.StatusOK, gin.H{"monitoring": h.monitor.IsMonitoring()})
}

// TriggerScan handles POST /api/monitor/scan
func (h *Handlers) TriggerScan(c *gin.Context) {
	err := h.monitor.TriggerScan(c.Request.Context())
	if err != nil {
		if errors.Is(err, monitor.ErrNotMonitoring) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"scanned": true})
}

// IssueToken handles POST /api/auth/token
func (h *Handlers) IssueToken(c *gin.Context) {
	token, err := h.auth.GenerateToken("agent", time.Hour)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(time.Hour.Seconds()),
	})
}
