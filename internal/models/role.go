package models

import "fmt"

// Role - роль подписчика realtime-канала. Набор закрытый.
type Role string

const (
	RoleDispatcher Role = "dispatcher"
	RoleResponder  Role = "responder"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// Roles возвращает полный набор ролей
func Roles() []Role {
	return []Role{RoleDispatcher, RoleResponder, RoleSupervisor, RoleAdmin}
}

// ParseRole проверяет, что строка является известной ролью
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleDispatcher, RoleResponder, RoleSupervisor, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown subscriber role %q", s)
}
