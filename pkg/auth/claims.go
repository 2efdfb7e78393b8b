package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/sweetshop-backend/pkg/enums"
)

// AccessTokenPayload is what the caller decides when minting. An empty JTI is
// replaced with a random one.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.Role
	JTI    string
}

// AccessTokenClaims is the typed JWT issued to clients. The id and role claim
// names are what existing storefront clients decode.
type AccessTokenClaims struct {
	UserID uuid.UUID  `json:"id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Validate runs after the registered claims pass. The parser calls it.
func (c AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errors.New("missing id claim")
	case !c.Role.IsValid():
		return errors.New("unknown role claim")
	case c.ID == "":
		return errors.New("missing jti claim")
	}
	return nil
}
