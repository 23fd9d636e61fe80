package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/internal/utils"
	"github.com/huangang/teamdesk/pkg/response"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserService owns the user records: creation, lookup, update and deletion.
type UserService struct {
	db *gorm.DB
}

func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

type CreateUserRequest struct {
	Name     string  `json:"name" binding:"required,min=2"`
	Email    string  `json:"email" binding:"required,email"`
	Password string  `json:"password" binding:"required,min=6,max=72"`
	Role     string  `json:"role" binding:"omitempty,oneof=admin project_manager team_member"`
	TeamID   *string `json:"team"`
}

// UpdateUserRequest is a partial update; nil fields are left untouched.
// An empty team clears the team reference.
type UpdateUserRequest struct {
	Name     *string `json:"name" binding:"omitempty,min=2"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=6,max=72"`
	Role     *string `json:"role" binding:"omitempty,oneof=admin project_manager team_member"`
	TeamID   *string `json:"team"`
	IsActive *bool   `json:"is_active"`
}

// UserResponse is the public view of a user. It never carries the password hash.
type UserResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      string     `json:"role"`
	Team      *string    `json:"team,omitempty"`
	TeamName  string     `json:"team_name,omitempty"`
	IsActive  bool       `json:"is_active"`
	LastLogin *time.Time `json:"last_login"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// UserSummary is the lightweight form used when a user is embedded in another entity.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

func newUserResponse(u *models.User) *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		Team:      u.TeamID,
		IsActive:  u.IsActive,
		LastLogin: u.LastLogin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func userNotFound(id string) *response.AppError {
	return response.NewNotFound(fmt.Sprintf("User with ID %s not found", id))
}

const msgEmailExists = "Email already exists"

// isEmailTaken reports whether err is the duplicate-email rejection from
// Create or Update.
func isEmailTaken(err error) bool {
	var appErr *response.AppError
	return errors.As(err, &appErr) && appErr.Message == msgEmailExists
}

// hashPassword rejects passwords bcrypt cannot hash. The binding tag limits
// runes, so multi-byte input can still pass it and exceed 72 bytes.
func hashPassword(password string) (string, error) {
	hashed, err := utils.HashPassword(password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", response.NewBadRequest("Password must be at most 72 bytes")
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hashed, nil
}

// Create stores a new user with a hashed password.
func (s *UserService) Create(ctx context.Context, req *CreateUserRequest) (*UserResponse, error) {
	role := req.Role
	if role == "" {
		role = models.RoleTeamMember
	}
	if !models.IsValidRole(role) {
		return nil, response.NewBadRequest("invalid role")
	}

	email := models.NormalizeEmail(req.Email)
	taken, err := s.emailTaken(ctx, email, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, response.NewBadRequest(msgEmailExists)
	}

	hashed, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Name:     req.Name,
		Email:    email,
		Password: hashed,
		Role:     role,
		IsActive: true,
	}
	if req.TeamID != nil && *req.TeamID != "" {
		user.TeamID = req.TeamID
	}

	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, response.NewBadRequest(msgEmailExists)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	return s.GetByID(ctx, user.ID)
}

// List returns every user, oldest first.
func (s *UserService) List(ctx context.Context) ([]UserResponse, error) {
	return s.find(ctx, s.db.WithContext(ctx))
}

// GetByID returns one user or NotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.withTeamNames(ctx, []models.User{*user})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// FindByEmail looks a user up by normalized email. It returns (nil, nil)
// when no user matches.
func (s *UserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", models.NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// Update applies a partial update. A changed email is re-checked for
// uniqueness against every other user.
func (s *UserService) Update(ctx context.Context, id string, req *UpdateUserRequest) (*UserResponse, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		taken, err := s.emailTaken(ctx, email, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, response.NewBadRequest(msgEmailExists)
		}
		updates["email"] = email
	}
	if req.Password != nil {
		hashed, err := hashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		updates["password"] = hashed
	}
	if req.Role != nil {
		if !models.IsValidRole(*req.Role) {
			return nil, response.NewBadRequest("invalid role")
		}
		updates["role"] = *req.Role
	}
	if req.TeamID != nil {
		if *req.TeamID == "" {
			updates["team_id"] = nil
		} else {
			updates["team_id"] = *req.TeamID
		}
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return nil, response.NewBadRequest(msgEmailExists)
			}
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	return s.GetByID(ctx, id)
}

// Delete hard-deletes a user. Team references to the user are left in place.
func (s *UserService) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return userNotFound(id)
	}
	return nil
}

// ListByRole returns the users holding role.
func (s *UserService) ListByRole(ctx context.Context, role string) ([]UserResponse, error) {
	return s.find(ctx, s.db.WithContext(ctx).Where("role = ?", role))
}

// ListByTeam returns the users whose team reference is teamID.
func (s *UserService) ListByTeam(ctx context.Context, teamID string) ([]UserResponse, error) {
	return s.find(ctx, s.db.WithContext(ctx).Where("team_id = ?", teamID))
}

// UpdateLastLogin stamps the user's last successful login.
func (s *UserService) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", at)
	if result.Error != nil {
		return fmt.Errorf("update last login: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return userNotFound(id)
	}
	return nil
}

// MissingIDs returns the ids in ids that do not resolve to a stored user,
// in input order.
func (s *UserService) MissingIDs(ctx context.Context, ids []string) ([]string, error) {
	found, err := s.Summaries(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// Summaries resolves ids to display summaries with a single query. Ids that
// do not resolve are absent from the result.
func (s *UserService) Summaries(ctx context.Context, ids []string) (map[string]UserSummary, error) {
	result := make(map[string]UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var users []models.User
	if err := s.db.WithContext(ctx).
		Select("id", "name", "email", "role").
		Where("id IN ?", uniqueStrings(ids)).
		Find(&users).Error; err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	for _, u := range users {
		result[u.ID] = UserSummary{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
	}
	return result, nil
}

// CountByRole returns how many users hold role.
func (s *UserService) CountByRole(ctx context.Context, role string) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("role = ?", role).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (s *UserService) load(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, userNotFound(id)
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return &user, nil
}

func (s *UserService) find(ctx context.Context, query *gorm.DB) ([]UserResponse, error) {
	var users []models.User
	if err := query.Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return s.withTeamNames(ctx, users)
}

func (s *UserService) emailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	query := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return count > 0, nil
}

// withTeamNames converts users to responses, resolving every referenced team
// name in one query.
func (s *UserService) withTeamNames(ctx context.Context, users []models.User) ([]UserResponse, error) {
	var teamIDs []string
	for _, u := range users {
		if u.TeamID != nil {
			teamIDs = append(teamIDs, *u.TeamID)
		}
	}

	names := make(map[string]string)
	if len(teamIDs) > 0 {
		var teams []models.Team
		if err := s.db.WithContext(ctx).
			Select("id", "name").
			Where("id IN ?", uniqueStrings(teamIDs)).
			Find(&teams).Error; err != nil {
			return nil, fmt.Errorf("resolve teams: %w", err)
		}
		for _, t := range teams {
			names[t.ID] = t.Name
		}
	}

	items := make([]UserResponse, 0, len(users))
	for i := range users {
		resp := newUserResponse(&users[i])
		if resp.Team != nil {
			resp.TeamName = names[*resp.Team]
		}
		items = append(items, *resp)
	}
	return items, nil
}

// uniqueStrings drops duplicates and empty values, keeping first-seen order.
func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
