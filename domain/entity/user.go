package entity

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "ROLE_USER"
	RoleAdmin Role = "ROLE_ADMIN"
)

func RoleOf(s string) Role {
	if s == string(RoleAdmin) {
		return RoleAdmin
	}
	return RoleUser
}

// AccountKind distinguishes locally registered accounts from federated
// (OAuth) ones. Federated accounts have no local password.
type AccountKind string

const (
	AccountLocal AccountKind = "LOCAL"
	AccountOAuth AccountKind = "OAUTH"
)

func AccountKindOf(s string) AccountKind {
	if s == string(AccountOAuth) {
		return AccountOAuth
	}
	return AccountLocal
}

type User struct {
	ID          int64       `json:"id"`
	Email       string      `json:"email"`
	Password    string      `json:"-"`
	Role        Role        `json:"role"`
	AccountKind AccountKind `json:"account_kind"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func NewUser(email, hashedPassword string, role Role, kind AccountKind) *User {
	now := time.Now()
	return &User{
		Email:       email,
		Password:    hashedPassword,
		Role:        role,
		AccountKind: kind,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
