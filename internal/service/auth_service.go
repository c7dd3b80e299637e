package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/plantops/finding-service/internal/auth"
	"github.com/plantops/finding-service/internal/config"
	"github.com/plantops/finding-service/internal/domain"
	"github.com/plantops/finding-service/internal/repository"
	"github.com/plantops/finding-service/pkg/util"
)

// AuthService coordinates registration and login flows for plant employees.
type AuthService struct {
	directory  repository.Directory
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	Directory         repository.Directory
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		directory:  deps.Directory,
		resets:     deps.PasswordResetRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		bcryptCost: cfg.Auth.BcryptCost,
		resetTTL:   time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new employee account. New accounts start at approval
// level 1; level changes are an administrative concern outside this service.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.Employee, string, time.Time, error) {
	if _, err := s.directory.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, util.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, util.MapError(err)
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, util.MapError(err)
	}

	employee := &domain.Employee{
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		ApprovalLevel: domain.LevelOperator,
		Active:        true,
	}
	if err := s.directory.Create(ctx, employee); err != nil {
		return nil, "", time.Time{}, util.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(employee.ID, employee.ApprovalLevel)
	if err != nil {
		return nil, "", time.Time{}, util.MapError(err)
	}
	return employee, token, exp, nil
}

// Login authenticates an employee.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Employee, string, time.Time, error) {
	employee, err := s.directory.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, util.MapError(err)
	}
	if !employee.Active {
		return nil, "", time.Time{}, util.NewUnauthorized("account deactivated")
	}
	if err := auth.ComparePassword(employee.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, util.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(employee.ID, employee.ApprovalLevel)
	if err != nil {
		return nil, "", time.Time{}, util.MapError(err)
	}
	return employee, token, exp, nil
}

// ChangePassword rotates the caller's password after verifying the old one.
func (s *AuthService) ChangePassword(ctx context.Context, employeeID, oldPassword, newPassword string) error {
	employee, err := s.directory.GetByID(ctx, employeeID)
	if err != nil {
		return util.MapError(err)
	}
	if err := auth.ComparePassword(employee.PasswordHash, oldPassword); err != nil {
		return util.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return util.MapError(err)
	}
	employee.PasswordHash = hash
	return util.MapError(s.directory.Update(ctx, employee))
}

// RequestPasswordReset issues a reset token. The response is identical
// whether or not the email exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	employee, err := s.directory.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", util.MapError(err)
	}
	token := &repository.PasswordResetToken{
		EmployeeID: employee.ID,
		Token:      uuid.NewString(),
		ExpiresAt:  time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return "", util.MapError(err)
	}
	return token.Token, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return util.NewUnauthorized("invalid reset token")
		}
		return util.MapError(err)
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return util.NewUnauthorized("reset token expired")
	}
	employee, err := s.directory.GetByID(ctx, token.EmployeeID)
	if err != nil {
		return util.MapError(err)
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return util.MapError(err)
	}
	employee.PasswordHash = hash
	if err := s.directory.Update(ctx, employee); err != nil {
		return util.MapError(err)
	}
	return util.MapError(s.resets.MarkUsed(ctx, token.ID))
}
