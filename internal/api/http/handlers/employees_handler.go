package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/plantops/finding-service/internal/api/dto"
	"github.com/plantops/finding-service/internal/auth"
	"github.com/plantops/finding-service/internal/service"
	"github.com/plantops/finding-service/pkg/util"
)

// EmployeesHandler serves registration, login and password flows.
type EmployeesHandler struct {
	auth *service.AuthService
}

// NewEmployeesHandler builds the handler.
func NewEmployeesHandler(authSvc *service.AuthService) *EmployeesHandler {
	return &EmployeesHandler{auth: authSvc}
}

// Register handles POST /auth/register.
func (h *EmployeesHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	var violations []util.FieldViolation
	if strings.TrimSpace(req.Name) == "" {
		violations = append(violations, util.FieldViolation{Field: "name", Reason: "required"})
	}
	if strings.TrimSpace(req.Email) == "" {
		violations = append(violations, util.FieldViolation{Field: "email", Reason: "required"})
	}
	if len(req.Password) < 8 {
		violations = append(violations, util.FieldViolation{Field: "password", Reason: "must be at least 8 characters"})
	}
	if len(violations) > 0 {
		return util.NewValidationFailed(violations)
	}

	employee, token, expiresAt, err := h.auth.Register(c.UserContext(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Employee:  dto.FromEmployee(employee),
	})
}

// Login handles POST /auth/login.
func (h *EmployeesHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	employee, token, expiresAt, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Employee:  dto.FromEmployee(employee),
	})
}

// Me handles GET /auth/me.
func (h *EmployeesHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}
	return c.JSON(dto.FromEmployee(principal.Employee))
}

// ChangePassword handles POST /auth/password/change.
func (h *EmployeesHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return util.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if len(req.NewPassword) < 8 {
		return util.NewValidationFailed([]util.FieldViolation{
			{Field: "new_password", Reason: "must be at least 8 characters"},
		})
	}

	if err := h.auth.ChangePassword(c.UserContext(), principal.Employee.ID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"changed": true})
}

// RequestPasswordReset handles POST /auth/password/reset/request. The
// response never reveals whether the email exists.
func (h *EmployeesHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}

	if _, err := h.auth.RequestPasswordReset(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"requested": true})
}

// ConfirmPasswordReset handles POST /auth/password/reset/confirm.
func (h *EmployeesHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := c.BodyParser(&req); err != nil {
		return util.NewValidationError("invalid request body", nil)
	}
	if len(req.NewPassword) < 8 {
		return util.NewValidationFailed([]util.FieldViolation{
			{Field: "new_password", Reason: "must be at least 8 characters"},
		})
	}

	if err := h.auth.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"reset": true})
}
