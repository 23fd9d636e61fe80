package services

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/internal/utils"
	"github.com/huangang/teamdesk/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupDB(t))

	u := createUser(t, svc, "Alice", "  Alice@X.com ", "")

	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "alice@x.com", u.Email)
	assert.Equal(t, models.RoleTeamMember, u.Role)
	assert.True(t, u.IsActive)
	assert.Nil(t, u.LastLogin)

	stored, err := svc.FindByEmail(ctx, "ALICE@x.com")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.Password)
	assert.True(t, utils.CheckPassword("secret1", stored.Password))
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	svc := NewUserService(setupDB(t))
	createUser(t, svc, "Alice", "alice@x.com", "")

	_, err := svc.Create(context.Background(), &CreateUserRequest{
		Name: "Other", Email: "ALICE@X.COM", Password: "secret1",
	})

	require.Error(t, err)
	assert.True(t, response.IsKind(err, http.StatusBadRequest))
	assert.Equal(t, "Email already exists", err.Error())
}

func TestUserService_CreateInvalidRole(t *testing.T) {
	svc := NewUserService(setupDB(t))

	_, err := svc.Create(context.Background(), &CreateUserRequest{
		Name: "Alice", Email: "alice@x.com", Password: "secret1", Role: "ADMIN",
	})

	assert.True(t, response.IsKind(err, http.StatusBadRequest))
}

func TestUserService_GetByIDNotFound(t *testing.T) {
	svc := NewUserService(setupDB(t))

	_, err := svc.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, response.IsKind(err, http.StatusNotFound))
	assert.Equal(t, "User with ID missing not found", err.Error())
}

func TestUserService_FindByEmailAbsent(t *testing.T) {
	svc := NewUserService(setupDB(t))

	u, err := svc.FindByEmail(context.Background(), "nobody@x.com")

	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserService_Update(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupDB(t))
	u := createUser(t, svc, "Alice", "alice@x.com", "")

	name := "Alice B"
	role := models.RoleProjectManager
	password := "newpass1"
	inactive := false
	updated, err := svc.Update(ctx, u.ID, &UpdateUserRequest{
		Name:     &name,
		Role:     &role,
		Password: &password,
		IsActive: &inactive,
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice B", updated.Name)
	assert.Equal(t, models.RoleProjectManager, updated.Role)
	assert.False(t, updated.IsActive)

	stored, err := svc.FindByEmail(ctx, "alice@x.com")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("newpass1", stored.Password))
}

func TestUserService_PasswordTooLong(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupDB(t))

	_, err := svc.Create(ctx, &CreateUserRequest{Name: "Alice", Email: "alice@x.com", Password: strings.Repeat("p", 80)})
	assert.True(t, response.IsKind(err, http.StatusBadRequest))

	u := createUser(t, svc, "Bob", "bob@x.com", "")
	long := strings.Repeat("é", 40)
	_, err = svc.Update(ctx, u.ID, &UpdateUserRequest{Password: &long})
	assert.True(t, response.IsKind(err, http.StatusBadRequest))

	stored, err := svc.FindByEmail(ctx, "bob@x.com")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword("secret1", stored.Password), "password unchanged after rejection")
}

func TestUserService_UpdateEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupDB(t))
	alice := createUser(t, svc, "Alice", "alice@x.com", "")
	createUser(t, svc, "Bob", "bob@x.com", "")

	taken := "BOB@x.com"
	_, err := svc.Update(ctx, alice.ID, &UpdateUserRequest{Email: &taken})
	assert.True(t, response.IsKind(err, http.StatusBadRequest))

	same := "alice@x.com"
	updated, err := svc.Update(ctx, alice.ID, &UpdateUserRequest{Email: &same})
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", updated.Email)
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupDB(t))
	u := createUser(t, svc, "Alice", "alice@x.com", "")

	require.NoError(t, svc.Delete(ctx, u.ID))

	err := svc.Delete(ctx, u.ID)
	assert.True(t, response.IsKind(err, http.StatusNotFound))
}

func TestUserService_ListByRoleAndTeam(t *testing.T) {
	ctx := context.Background()
	db := setupDB(t)
	svc := NewUserService(db)

	team := models.Team{Name: "Core", ManagerID: "m-1", IsActive: true}
	require.NoError(t, db.Create(&team).Error)

	createUser(t, svc, "Alice", "alice@x.com", models.RoleAdmin)
	bob := createUser(t, svc, "Bob", "bob@x.com", "")
	createUser(t, svc, "Carol", "carol@x.com", "")

	admins, err := svc.ListByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	members, err := svc.ListByRole(ctx, models.RoleTeamMember)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	_, err = svc.Update(ctx, bob.ID, &UpdateUserRequest{TeamID: &team.ID})
	require.NoError(t, err)

	inTeam, err := svc.ListByTeam(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, inTeam, 1)
	assert.Equal(t, bob.ID, inTeam[0].ID)
	assert.Equal(t, "Core", inTeam[0].TeamName)
}

func TestUserService_UpdateLastLogin(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupDB(t))
	u := createUser(t, svc, "Alice", "alice@x.com", "")

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, svc.UpdateLastLogin(ctx, u.ID, at))

	got, err := svc.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastLogin)
	assert.True(t, got.LastLogin.Equal(at))

	err = svc.UpdateLastLogin(ctx, "missing", at)
	assert.True(t, response.IsKind(err, http.StatusNotFound))
}

func TestUserService_Summaries(t *testing.T) {
	ctx := context.Background()
	svc := NewUserService(setupDB(t))
	alice := createUser(t, svc, "Alice", "alice@x.com", "")

	found, err := svc.Summaries(ctx, []string{alice.ID, "ghost", alice.ID})
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Equal(t, "Alice", found[alice.ID].Name)

	missing, err := svc.MissingIDs(ctx, []string{alice.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, missing)
}
