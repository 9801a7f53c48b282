package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that logs in with its email address.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email       string     `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	FirstName   string     `gorm:"size:30;not null" json:"first_name"`
	LastName    string     `gorm:"size:30;not null" json:"last_name"`
	Address     string     `gorm:"size:255;not null" json:"address"`
	Phone       string     `gorm:"size:20;not null" json:"phone"`
	Image       *string    `gorm:"size:500" json:"image"`
	DateJoined  time.Time  `gorm:"autoCreateTime" json:"date_joined"`
	IsStaff     bool       `gorm:"not null" json:"-"`
	IsActive    bool       `gorm:"not null" json:"-"`
	IsSuperuser bool       `gorm:"not null" json:"-"`
	RoleID      *uuid.UUID `gorm:"type:uuid;index" json:"role_id"`
	Role        *Role      `gorm:"foreignKey:RoleID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL" json:"role,omitempty"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"-"`
}

// RoleKind resolves the capability tier of the user. Staff and superusers are
// administrators whatever role row they reference.
func (u *User) RoleKind() RoleKind {
	if u.IsStaff || u.IsSuperuser {
		return RoleAdmin
	}
	if u.Role == nil {
		return RoleCustomer
	}
	return u.Role.Kind()
}

// RefreshToken stores issued refresh tokens for rotation and revocation
type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	TokenID   string    `gorm:"uniqueIndex;not null"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Revoked   bool      `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Usable reports whether the token may still be exchanged.
func (rt *RefreshToken) Usable(now time.Time) bool {
	return !rt.Revoked && now.Before(rt.ExpiresAt)
}
