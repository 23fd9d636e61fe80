package services

import (
	"context"
	"testing"
	"time"

	"github.com/huangang/teamdesk/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemLog_WriteAndList(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	InitSystemLogger(db)
	t.Cleanup(func() { InitSystemLogger(nil) })

	uid := "u-1"
	LogInfo("Team", "POST /api/teams", "created", &uid, "127.0.0.1", "test", map[string]int{"status": 201})
	LogWarning("Team", "DELETE /api/teams/:id", "denied", nil, "127.0.0.1", "test", nil)

	svc := NewSystemLogService(db)
	all, err := svc.List(ctx, &SystemLogListRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), all.Total)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, 20, all.PageSize)

	byUser, err := svc.List(ctx, &SystemLogListRequest{UserID: uid})
	require.NoError(t, err)
	require.Len(t, byUser.Items, 1)
	assert.Equal(t, `{"status":201}`, byUser.Items[0].Extra)

	warnings, err := svc.List(ctx, &SystemLogListRequest{Level: "warning"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), warnings.Total)
}

func TestSystemLogService_CleanupOldLogs(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	svc := NewSystemLogService(db)

	require.NoError(t, db.Create(&models.SystemLog{Level: "info", CreatedAt: time.Now().AddDate(0, 0, -40)}).Error)
	require.NoError(t, db.Create(&models.SystemLog{Level: "info", CreatedAt: time.Now()}).Error)

	deleted, err := svc.CleanupOldLogs(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)

	deleted, err = svc.CleanupOldLogs(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
}

func TestLogCleanupScheduler_StartRunsImmediately(t *testing.T) {
	db := setupDB(t)
	svc := NewSystemLogService(db)
	require.NoError(t, db.Create(&models.SystemLog{Level: "info", CreatedAt: time.Now().AddDate(0, 0, -10)}).Error)

	scheduler := NewLogCleanupScheduler(svc, 7)
	require.NoError(t, scheduler.Start())
	scheduler.Stop()

	var count int64
	require.NoError(t, db.Model(&models.SystemLog{}).Count(&count).Error)
	assert.Zero(t, count)
}
