package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/huangang/teamdesk/internal/models"
	"github.com/huangang/teamdesk/pkg/response"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TeamService manages teams and their member sets.
type TeamService struct {
	db    *gorm.DB
	users *UserService
}

func NewTeamService(db *gorm.DB, users *UserService) *TeamService {
	return &TeamService{db: db, users: users}
}

type CreateTeamRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	ManagerID   string   `json:"manager" binding:"required"`
	Members     []string `json:"members"`
}

// UpdateTeamRequest is a partial update. A non-nil Members replaces the
// whole member set.
type UpdateTeamRequest struct {
	Name        *string   `json:"name" binding:"omitempty,min=1"`
	Description *string   `json:"description"`
	ManagerID   *string   `json:"manager" binding:"omitempty,min=1"`
	Members     *[]string `json:"members"`
	IsActive    *bool     `json:"is_active"`
}

type TeamResponse struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Manager     UserSummary   `json:"manager"`
	Members     []UserSummary `json:"members"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func teamNotFound(id string) *response.AppError {
	return response.NewNotFound(fmt.Sprintf("Team with ID %s not found", id))
}

// Create stores a team. The manager and every initial member must exist.
func (s *TeamService) Create(ctx context.Context, req *CreateTeamRequest) (*TeamResponse, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, response.NewBadRequest("name is required")
	}
	if err := s.requireUsers(ctx, req.ManagerID); err != nil {
		return nil, err
	}
	members := uniqueStrings(req.Members)
	if err := s.requireUsers(ctx, members...); err != nil {
		return nil, err
	}

	team := models.Team{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
		IsActive:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&team).Error; err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		return insertMembers(tx, team.ID, members)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, team.ID)
}

// List returns every team, oldest first.
func (s *TeamService) List(ctx context.Context) ([]TeamResponse, error) {
	return s.find(ctx, s.db.WithContext(ctx))
}

// GetByID returns one team or NotFound.
func (s *TeamService) GetByID(ctx context.Context, id string) (*TeamResponse, error) {
	team, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := s.render(ctx, []models.Team{*team})
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

// Update applies a partial update to a team.
func (s *TeamService) Update(ctx context.Context, id string, req *UpdateTeamRequest) (*TeamResponse, error) {
	team, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, response.NewBadRequest("name is required")
		}
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.ManagerID != nil {
		if err := s.requireUsers(ctx, *req.ManagerID); err != nil {
			return nil, err
		}
		updates["manager_id"] = *req.ManagerID
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}

	var members []string
	if req.Members != nil {
		members = uniqueStrings(*req.Members)
		if err := s.requireUsers(ctx, members...); err != nil {
			return nil, err
		}
	}

	if len(updates) == 0 && req.Members == nil {
		return s.GetByID(ctx, id)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if req.Members != nil {
			if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
				return fmt.Errorf("clear members: %w", err)
			}
			if err := insertMembers(tx, id, members); err != nil {
				return err
			}
		}
		updates["updated_at"] = time.Now().UTC()
		if err := tx.Model(team).Updates(updates).Error; err != nil {
			return fmt.Errorf("update team: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// Delete removes a team and its member rows. Users referencing the team
// keep their reference.
func (s *TeamService) Delete(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&models.Team{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("delete team: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return teamNotFound(id)
		}
		if err := tx.Where("team_id = ?", id).Delete(&models.TeamMember{}).Error; err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		return nil
	})
}

// ListByManager returns the teams managed by managerID.
func (s *TeamService) ListByManager(ctx context.Context, managerID string) ([]TeamResponse, error) {
	return s.find(ctx, s.db.WithContext(ctx).Where("manager_id = ?", managerID))
}

// ListByMember returns the teams whose member set contains memberID.
func (s *TeamService) ListByMember(ctx context.Context, memberID string) ([]TeamResponse, error) {
	sub := s.db.WithContext(ctx).Model(&models.TeamMember{}).Select("team_id").Where("user_id = ?", memberID)
	return s.find(ctx, s.db.WithContext(ctx).Where("id IN (?)", sub))
}

// AddMember inserts userID into the team's member set. Adding an existing
// member is a no-op and leaves updated_at untouched.
func (s *TeamService) AddMember(ctx context.Context, teamID, userID string) (*TeamResponse, error) {
	if _, err := s.load(ctx, teamID); err != nil {
		return nil, err
	}
	if err := s.requireUsers(ctx, userID); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.TeamMember{TeamID: teamID, UserID: userID})
		if result.Error != nil {
			return fmt.Errorf("add member: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}
		return touchTeam(tx, teamID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, teamID)
}

// RemoveMember deletes userID from the team's member set. Removing a
// non-member still bumps updated_at.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, userID string) (*TeamResponse, error) {
	if _, err := s.load(ctx, teamID); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("team_id = ? AND user_id = ?", teamID, userID).Delete(&models.TeamMember{}).Error; err != nil {
			return fmt.Errorf("remove member: %w", err)
		}
		return touchTeam(tx, teamID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetByID(ctx, teamID)
}

func (s *TeamService) load(ctx context.Context, id string) (*models.Team, error) {
	var team models.Team
	if err := s.db.WithContext(ctx).First(&team, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, teamNotFound(id)
		}
		return nil, fmt.Errorf("load team: %w", err)
	}
	return &team, nil
}

func (s *TeamService) find(ctx context.Context, query *gorm.DB) ([]TeamResponse, error) {
	var teams []models.Team
	if err := query.Order("created_at ASC").Find(&teams).Error; err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	return s.render(ctx, teams)
}

// requireUsers returns NotFound naming the first id that does not resolve.
func (s *TeamService) requireUsers(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	missing, err := s.users.MissingIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return userNotFound(missing[0])
	}
	return nil
}

// render loads the member rows of every team and resolves all manager and
// member references with one user query.
func (s *TeamService) render(ctx context.Context, teams []models.Team) ([]TeamResponse, error) {
	items := make([]TeamResponse, 0, len(teams))
	if len(teams) == 0 {
		return items, nil
	}

	teamIDs := make([]string, 0, len(teams))
	for _, t := range teams {
		teamIDs = append(teamIDs, t.ID)
	}

	var rows []models.TeamMember
	if err := s.db.WithContext(ctx).
		Where("team_id IN ?", teamIDs).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}

	membersByTeam := make(map[string][]string, len(teams))
	userIDs := make([]string, 0, len(teams)+len(rows))
	for _, t := range teams {
		userIDs = append(userIDs, t.ManagerID)
	}
	for _, r := range rows {
		membersByTeam[r.TeamID] = append(membersByTeam[r.TeamID], r.UserID)
		userIDs = append(userIDs, r.UserID)
	}

	summaries, err := s.users.Summaries(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	summary := func(id string) UserSummary {
		if u, ok := summaries[id]; ok {
			return u
		}
		return UserSummary{ID: id}
	}

	for _, t := range teams {
		members := make([]UserSummary, 0, len(membersByTeam[t.ID]))
		for _, id := range membersByTeam[t.ID] {
			members = append(members, summary(id))
		}
		items = append(items, TeamResponse{
			ID:          t.ID,
			Name:        t.Name,
			Description: t.Description,
			Manager:     summary(t.ManagerID),
			Members:     members,
			IsActive:    t.IsActive,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.UpdatedAt,
		})
	}
	return items, nil
}

func insertMembers(tx *gorm.DB, teamID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]models.TeamMember, 0, len(userIDs))
	for _, id := range userIDs {
		rows = append(rows, models.TeamMember{TeamID: teamID, UserID: id})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert members: %w", err)
	}
	return nil
}

func touchTeam(tx *gorm.DB, teamID string) error {
	if err := tx.Model(&models.Team{}).Where("id = ?", teamID).Update("updated_at", time.Now().UTC()).Error; err != nil {
		return fmt.Errorf("touch team: %w", err)
	}
	return nil
}
