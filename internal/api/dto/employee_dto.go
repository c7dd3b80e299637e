package dto

import (
	"time"

	"github.com/plantops/finding-service/internal/domain"
)

// RegisterRequest is the body for employee registration.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmployeeResponse is the public shape of an employee.
type EmployeeResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Email         string  `json:"email"`
	ApprovalLevel int     `json:"approval_level"`
	Department    *string `json:"department,omitempty"`
	Active        bool    `json:"active"`
}

// FromEmployee converts the domain employee, dropping credentials.
func FromEmployee(e *domain.Employee) EmployeeResponse {
	return EmployeeResponse{
		ID:            e.ID,
		Name:          e.Name,
		Email:         e.Email,
		ApprovalLevel: e.ApprovalLevel,
		Department:    e.Department,
		Active:        e.Active,
	}
}

// FromEmployees converts a list.
func FromEmployees(employees []domain.Employee) []EmployeeResponse {
	result := make([]EmployeeResponse, 0, len(employees))
	for i := range employees {
		result = append(result, FromEmployee(&employees[i]))
	}
	return result
}

// AuthResponse carries a session token with its subject.
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Employee  EmployeeResponse `json:"employee"`
}

// ChangePasswordRequest is the body for rotating the caller's password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// PasswordResetRequest starts a reset flow.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// PasswordResetConfirmRequest completes a reset flow.
type PasswordResetConfirmRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}
