package handlers

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/internal/services"
	"gorm.io/gorm"
)

var startTime = time.Now()

type MetricsHandler struct {
	db    *gorm.DB
	queue services.TaskQueue
}

func NewMetricsHandler(db *gorm.DB, queue services.TaskQueue) *MetricsHandler {
	return &MetricsHandler{db: db, queue: queue}
}

// Metrics returns Prometheus-compatible text format metrics.
func (h *MetricsHandler) Metrics(c *gin.Context) {
	var b strings.Builder

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeGauge(&b, "teamdesk_uptime_seconds", "Time since server start in seconds", time.Since(startTime).Seconds())
	writeGauge(&b, "teamdesk_goroutines", "Number of active goroutines", float64(runtime.NumGoroutine()))
	writeGauge(&b, "teamdesk_memory_alloc_bytes", "Current heap allocation in bytes", float64(m.Alloc))

	if sqlDB, err := h.db.DB(); err == nil {
		stats := sqlDB.Stats()
		writeGauge(&b, "teamdesk_db_open_connections", "Number of open DB connections", float64(stats.OpenConnections))
		writeGauge(&b, "teamdesk_db_in_use_connections", "Number of in-use DB connections", float64(stats.InUse))
	}

	queueAsync := 0.0
	if h.queue != nil && h.queue.IsAsync() {
		queueAsync = 1.0
	}
	writeGauge(&b, "teamdesk_queue_async_enabled", "Whether async queue (Redis) is enabled (1=yes, 0=no)", queueAsync)

	ctx := c.Request.Context()
	var activeUsers, teams, memberships int64
	h.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Count(&activeUsers)
	h.db.WithContext(ctx).Model(&models.Team{}).Count(&teams)
	h.db.WithContext(ctx).Model(&models.TeamMember{}).Count(&memberships)

	writeGauge(&b, "teamdesk_users_active", "Number of active users", float64(activeUsers))
	writeGauge(&b, "teamdesk_teams_total", "Total number of teams", float64(teams))
	writeGauge(&b, "teamdesk_team_memberships_total", "Total number of team memberships", float64(memberships))

	c.Data(200, "text/plain; version=0.0.4; charset=utf-8", []byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n\n", name, value)
}
