package model

import (
	"time"

	"github.com/google/uuid"
)

type UserRole string

const (
	UserRolePatient UserRole = "patient"
	UserRoleDoctor  UserRole = "doctor"
	UserRoleAdmin   UserRole = "admin"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	UserID uuid.UUID
	Role   UserRole
}

func (a Actor) IsAdmin() bool   { return a.Role == UserRoleAdmin }
func (a Actor) IsDoctor() bool  { return a.Role == UserRoleDoctor }
func (a Actor) IsPatient() bool { return a.Role == UserRolePatient }

type User struct {
	Base
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         UserRole   `db:"role" json:"role"`
	Phone        string     `db:"phone" json:"phone"`
	Gender       string     `db:"gender" json:"gender,omitempty"`
	DateOfBirth  *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
}

type RegisterRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=50"`
	Email       string     `json:"email" binding:"required,email"`
	Password    string     `json:"password" binding:"required,min=6"`
	Role        UserRole   `json:"role" binding:"required,oneof=patient doctor"`
	Phone       string     `json:"phone" binding:"required"`
	Gender      string     `json:"gender" binding:"omitempty,oneof=male female other"`
	DateOfBirth *time.Time `json:"date_of_birth"`

	// Doctor profile fields, required when role is doctor.
	Specialization    string  `json:"specialization" binding:"required_if=Role doctor"`
	Qualification     string  `json:"qualification" binding:"required_if=Role doctor"`
	YearsOfExperience int     `json:"years_of_experience" binding:"omitempty,min=0"`
	ConsultationFee   float64 `json:"consultation_fee" binding:"omitempty,min=0"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}
