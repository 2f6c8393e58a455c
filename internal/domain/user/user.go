package user

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("user not found")
	ErrNameTaken = errors.New("user name already registered")
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Type         string    `json:"type"`
	Organization string    `json:"organization"`
	CreatedAt    time.Time `json:"createdAt"`
}

type CreateRequest struct {
	Name         string
	PasswordHash string
	Type         string
	Organization string
}
