package models

import "github.com/golang-jwt/jwt/v5"

// Role is the access level carried in a session token
type Role string

const (
	RoleBorrower Role = "borrower"
	RoleStaff    Role = "staff"
)

// Claims are the JWT claims of a session; Subject is the user id
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}
