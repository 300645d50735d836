package models

import "time"

// User is a human operator account.
type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"uniqueIndex;size:191;not null"`
	Email        string `gorm:"size:255"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:32;not null;default:user"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Contact is what a paired agent gets told about its owner.
func (u *User) Contact() string {
	if u.Email != "" {
		return u.Email
	}
	return u.Username
}
