package domain

import (
	"slices"

	"github.com/google/uuid"
)

// UserRole представляет роль пользователя в системе
type UserRole string

const (
	RoleAdmin    UserRole = "ADMIN"    // Администратор системы
	RoleUser     UserRole = "USER"     // Владелец абонемента
	RoleSecurity UserRole = "SECURITY" // Охранник на въезде
)

// IsValid проверяет, что роль известна
func (r UserRole) IsValid() bool {
	return r == RoleAdmin || r == RoleUser || r == RoleSecurity
}

// Caller - идентичность вызывающего, полученная от провайдера идентификации.
// Пользователи хранятся вне сервиса, сюда попадают только роль и список секций.
type Caller struct {
	UserID            uuid.UUID `json:"user_id"`
	Role              UserRole  `json:"role"`
	AllowedSectionIDs []int64   `json:"allowed_section_ids"`
}

// IsAdmin проверяет, является ли вызывающий администратором
func (c *Caller) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// CanOperate проверяет, может ли вызывающий работать с секцией.
// Администратор может все, остальные только секции из своего списка.
func (c *Caller) CanOperate(sectionID int64) bool {
	if c == nil {
		return false
	}
	if c.IsAdmin() {
		return true
	}
	return slices.Contains(c.AllowedSectionIDs, sectionID)
}

// CanManageTicket проверяет, может ли вызывающий управлять билетом владельца
func (c *Caller) CanManageTicket(holder *UserTicket) bool {
	if c == nil {
		return false
	}
	if c.IsAdmin() {
		return true
	}
	return holder != nil && holder.UserID == c.UserID
}

// CanViewTicket проверяет, может ли вызывающий видеть билет
func (c *Caller) CanViewTicket(holder *UserTicket) bool {
	if c == nil {
		return false
	}
	if c.IsAdmin() || c.Role == RoleSecurity {
		return true
	}
	return holder != nil && holder.UserID == c.UserID
}
