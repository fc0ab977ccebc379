package models

import "github.com/golang-jwt/jwt/v5"

// SellerClaims is the JWT claims structure issued by the identity provider
// for seller accounts.
type SellerClaims struct {
	jwt.RegisteredClaims        // Standard JWT claims (sub, iss, aud, exp, iat, etc.)
	Email                string `json:"email"`
	FullName             string `json:"full_name"`
	Role                 string `json:"role"` // "authenticated" or "anon"
	IsSeller             bool   `json:"is_seller"`
	IsStaff              bool   `json:"is_staff"`
}

// SellerID returns the seller identifier from the JWT subject claim.
func (c *SellerClaims) SellerID() string {
	return c.Subject
}

// DisplayName returns the name shown next to wallet claims.
func (c *SellerClaims) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Email
}
