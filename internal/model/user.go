package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity record. Hidden fields never leave the service.
type User struct {
	ID                 string    `json:"id" gorm:"type:char(36);primaryKey"`
	Username           string    `json:"username" gorm:"uniqueIndex;size:64;not null"`
	Email              string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	FullName           string    `json:"fullName" gorm:"size:255;not null;index"`
	Password           string    `json:"-" gorm:"size:255;not null"`
	Avatar             string    `json:"avatar" gorm:"size:1024;not null"`
	AvatarPublicID     string    `json:"-" gorm:"size:255"`
	CoverImage         string    `json:"coverImage" gorm:"size:1024"`
	CoverImagePublicID string    `json:"-" gorm:"size:255"`
	RefreshToken       *string   `json:"-" gorm:"type:text"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// PublicUser is the subset of User safe to return externally.
type PublicUser struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FullName   string    `json:"fullName"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public projects the user onto its public fields.
func (u *User) Public() *PublicUser {
	if u == nil {
		return nil
	}
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		FullName:   u.FullName,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// HasRefreshToken reports whether token is the live refresh token for this user.
func (u *User) HasRefreshToken(token string) bool {
	return token != "" && u.RefreshToken != nil && *u.RefreshToken == token
}
