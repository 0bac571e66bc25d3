package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrUserExists is returned when signing up an email that is already taken.
var ErrUserExists = errors.New("user already exists")

type User struct {
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
