package model

import "time"

// User is the identity anchor. Deleting a user removes its tasks and categories.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:50;not null" json:"username"`
	Email        string     `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Tasks        []Task     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Categories   []Category `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
