package users

import "time"

// User is an account that may own documents.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser holds the fields of a user to create. PasswordHash is already hashed.
type NewUser struct {
	Username     string
	PasswordHash string
}

// UserResponse is the outward-facing representation of a user. The password
// hash is never serialized.
type UserResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"createdAt"`
}

func toResponse(u User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt}
}
