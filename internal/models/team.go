package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team groups users under one manager. ManagerID is a weak reference: no
// foreign key ties it to the users table.
type Team struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	Name        string    `gorm:"size:200;not null" json:"name"`
	Description string    `gorm:"size:1000" json:"description"`
	ManagerID   string    `gorm:"size:36;index;not null" json:"manager_id"`
	IsActive    bool      `gorm:"default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Team) TableName() string { return "teams" }

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// TeamMember is one element of a team's member set. The unique
// (team_id, user_id) index makes the set duplicate-free; ID preserves
// insertion order.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	TeamID    string    `gorm:"size:36;not null;uniqueIndex:idx_team_user" json:"team_id"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_team_user;index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeamMember) TableName() string { return "team_members" }
