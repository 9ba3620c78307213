package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrDuplicate    = errors.New("username already taken")
	ErrInvalidInput = errors.New("invalid input")
)

// Repo persists users with their own id counter.
type Repo interface {
	Create(ctx context.Context, in NewUser) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
}
