package model

import "gorm.io/gorm"

// User struct
type User struct {
	gorm.Model
	Name      string `gorm:"not null" json:"name"`
	Email     string `gorm:"uniqueIndex;not null" json:"email"`
	Password  string `gorm:"not null" json:"-"`
	AvatarUrl string `json:"avatarUrl"`
	Role      string `json:"role"`

	Otp_enabled bool `gorm:"default:false;"`
	Otp_secret  string
}
