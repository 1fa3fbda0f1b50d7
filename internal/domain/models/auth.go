package models

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims represents the JWT claims issued by the external identity provider.
// Only the fields the backend reads are declared.
type IdentityClaims struct {
	jwt.RegisteredClaims        // sub, iss, aud, exp, iat
	Email                string `json:"email"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	SessionID            string `json:"session_id"`
	UserMetadata         struct {
		FullName string `json:"full_name"`
	} `json:"user_metadata"`
}

// GetUserID returns the user ID from the JWT subject claim.
func (c *IdentityClaims) GetUserID() string {
	return c.Subject
}
