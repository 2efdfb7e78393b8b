package auth

import "github.com/angelmondragon/sweetshop-backend/internal/users"

// RegisterRequest is the customer sign-up payload. Presence is checked by
// the service.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// LoginRequest captures the user credentials sent to either login endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and both logins.
type AuthResponse struct {
	User  *users.UserDTO `json:"user"`
	Token string         `json:"token"`
}
