package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huangang/teamdesk/internal/config"
	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/internal/utils"
	"github.com/huangang/teamdesk/pkg/logger"
	"github.com/huangang/teamdesk/pkg/response"
)

// dummyHash is compared against when no user matches the email, so a
// missing account costs the same bcrypt work as a wrong password.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type AuthService struct {
	users     *UserService
	jwtConfig *config.JWTConfig
	queue     TaskQueue
}

func NewAuthService(users *UserService, jwtCfg *config.JWTConfig, queue TaskQueue) *AuthService {
	return &AuthService{
		users:     users,
		jwtConfig: jwtCfg,
		queue:     queue,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=admin project_manager team_member"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// AuthUser is the identity returned alongside a freshly issued token.
type AuthUser struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Role  string  `json:"role"`
	Team  *string `json:"team,omitempty"`
}

type AuthResult struct {
	User        AuthUser  `json:"user"`
	AccessToken string    `json:"access_token"`
	ExpireAt    time.Time `json:"expire_at"`
}

// Register creates an account and signs the new user in.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	existing, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, response.NewConflict("Email already registered")
	}

	user, err := s.users.Create(ctx, &CreateUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		// lost a race with a concurrent registration of the same email
		if isEmailTaken(err) {
			return nil, response.NewConflict("Email already registered")
		}
		return nil, err
	}

	return s.issue(user)
}

// Login checks credentials, rejects deactivated accounts, records the login
// and issues a token.
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	user, err := s.validate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, response.NewUnauthorized("Invalid credentials")
	}
	if !user.IsActive {
		return nil, response.NewUnauthorized("Account is deactivated")
	}

	now := time.Now().UTC()
	if err := s.queue.Enqueue(ctx, &LastLoginTask{UserID: user.ID, LoggedInAt: now}); err != nil {
		logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record last login")
	}

	return s.issue(user)
}

// ValidateUser returns the identity matching email and password, or
// (nil, false). Store failures are logged and reported as a mismatch.
func (s *AuthService) ValidateUser(ctx context.Context, email, password string) (*UserResponse, bool) {
	user, err := s.validate(ctx, email, password)
	if err != nil {
		logger.Error().Err(err).Msg("credential check failed")
		return nil, false
	}
	return user, user != nil
}

// Me returns the stored record of the authenticated caller.
func (s *AuthService) Me(ctx context.Context, userID string) (*UserResponse, error) {
	return s.users.GetByID(ctx, userID)
}

// CreateAdminIfNotExists seeds an administrator from configuration when
// credentials are configured and no admin exists yet.
func (s *AuthService) CreateAdminIfNotExists(ctx context.Context, cfg *config.AdminConfig) error {
	if cfg.Email == "" || cfg.Password == "" {
		return nil
	}

	count, err := s.users.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	name := cfg.Name
	if name == "" {
		name = "Administrator"
	}
	if _, err := s.users.Create(ctx, &CreateUserRequest{
		Name:     name,
		Email:    cfg.Email,
		Password: cfg.Password,
		Role:     models.RoleAdmin,
	}); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	logger.Info().Str("email", models.NormalizeEmail(cfg.Email)).Msg("bootstrap admin created")
	return nil
}

// validate returns (nil, nil) for an unknown email or a wrong password.
func (s *AuthService) validate(ctx context.Context, email, password string) (*UserResponse, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	hash := dummyHash
	if user != nil {
		hash = user.Password
	}
	matched := utils.CheckPassword(password, hash)
	if user == nil || !matched {
		return nil, nil
	}
	return newUserResponse(user), nil
}

func (s *AuthService) issue(user *UserResponse) (*AuthResult, error) {
	token, err := utils.GenerateToken(user.ID, user.Email, user.Role, s.jwtConfig.ExpireHour)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &AuthResult{
		User: AuthUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Role:  user.Role,
			Team:  user.Team,
		},
		AccessToken: token,
		ExpireAt:    time.Now().Add(time.Duration(s.jwtConfig.ExpireHour) * time.Hour),
	}, nil
}
