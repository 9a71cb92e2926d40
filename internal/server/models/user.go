package models

import "time"

type User struct {
	ID           string
	UserName     string
	FullName     string
	Email        string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}
