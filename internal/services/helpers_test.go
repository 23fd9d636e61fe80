package services

import (
	"context"
	"testing"

	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/internal/utils"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testSecret = "test-secret-0123456789"

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db))
	utils.SetJWTSecret(testSecret)
	return db
}

func createUser(t *testing.T, svc *UserService, name, email, role string) *UserResponse {
	t.Helper()
	u, err := svc.Create(context.Background(), &CreateUserRequest{
		Name:     name,
		Email:    email,
		Password: "secret1",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func memberIDs(team *TeamResponse) []string {
	ids := make([]string, 0, len(team.Members))
	for _, m := range team.Members {
		ids = append(ids, m.ID)
	}
	return ids
}
