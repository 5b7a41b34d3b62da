package tokens

import "github.com/golang-jwt/jwt/v5"

const RoleAdmin = "admin"

// AccessClaims is the payload the auth service signs into access tokens.
// Subject carries the user id.
type AccessClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}
