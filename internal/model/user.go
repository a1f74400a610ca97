package model

import "time"

type Role string

const (
	RoleMember   Role = "member"
	RoleMerchant Role = "merchant"
	RoleAdmin    Role = "admin"
	RoleDriver   Role = "driver"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleMember, RoleMerchant, RoleAdmin, RoleDriver:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Login        string    `json:"login"`
	PasswordHash []byte    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}
