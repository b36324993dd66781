package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Identity providers.
const (
	ProviderPassword = "password"
	ProviderGoogle   = "google"
)

// AuthIdentity is a sign-in credential held by the identity store.
// UserID links it to the profile document in the users collection.
type AuthIdentity struct {
	ID              uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	UserID          string    `json:"user_id" gorm:"type:char(36);not null;index"`
	Email           string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash    string    `json:"-" gorm:"size:255"` // empty for federated identities
	Provider        string    `json:"provider" gorm:"size:20;not null;default:'password'"`
	ProviderSubject string    `json:"-" gorm:"size:255;index"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (a *AuthIdentity) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
