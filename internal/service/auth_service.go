package service

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/config"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/events"
	"github.com/spec-kit/staff-assignment/internal/repository"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// AuthSubject identifies the caller when changing password.
type AuthSubject struct {
	Type domain.SubjectType
	ID   string
}

// ResetTokens stores pending password resets.
type ResetTokens interface {
	Save(ctx context.Context, reset domain.PasswordReset) error
	Consume(ctx context.Context, token string) (*domain.PasswordReset, error)
}

// RegisterUserInput describes a new booking account.
type RegisterUserInput struct {
	Name        string
	Email       string
	Password    string
	AccountType domain.AccountType
	BranchID    *string
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users        repository.UserRepository
	staff        repository.StaffRepository
	branches     repository.BranchRepository
	resets       ResetTokens
	dispatcher   events.Dispatcher
	tokenMgr     *auth.TokenManager
	logger       *zap.Logger
	bcryptCost   int
	resetTTL     time.Duration
	resetURLBase string
}

// AuthDependencies encapsulates requirements for auth service.
type AuthDependencies struct {
	UserRepo    repository.UserRepository
	StaffRepo   repository.StaffRepository
	BranchRepo  repository.BranchRepository
	ResetTokens ResetTokens
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

var errInvalidCredentials = apperrors.NewUnauthorized("invalid credentials")

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:        deps.UserRepo,
		staff:        deps.StaffRepo,
		branches:     deps.BranchRepo,
		resets:       deps.ResetTokens,
		dispatcher:   deps.Dispatcher,
		tokenMgr:     auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.App.Name, cfg.Auth.AccessTokenTTLMinutes),
		logger:       logger,
		bcryptCost:   cfg.Auth.BcryptCost,
		resetTTL:     time.Duration(cfg.Auth.PasswordResetTTLMinutes) * time.Minute,
		resetURLBase: cfg.Notification.ResetURLBase,
	}
}

// RegisterUser creates a new booking account.
func (s *AuthService) RegisterUser(ctx context.Context, input RegisterUserInput) (*domain.User, string, time.Time, error) {
	email := normalizeEmail(input.Email)
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	accountType := input.AccountType
	if accountType == "" {
		accountType = domain.AccountTypeCustomer
	}
	if accountType == domain.AccountTypeHotel {
		if input.BranchID == nil || *input.BranchID == "" {
			return nil, "", time.Time{}, apperrors.NewValidationError("validation failed", map[string]any{"branch_id": "is required for hotel accounts"})
		}
		if _, err := s.branches.GetByID(ctx, *input.BranchID); err != nil {
			return nil, "", time.Time{}, notFound(err, "branch", map[string]any{"branch_id": *input.BranchID})
		}
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Name:         input.Name,
		Email:        email,
		PasswordHash: hash,
		AccountType:  accountType,
		BranchID:     input.BranchID,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// LoginUser authenticates a booking account.
func (s *AuthService) LoginUser(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, errInvalidCredentials
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, s.credentialError(err)
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("account suspended")
	}
	if hash, ok := s.rehash(user.PasswordHash, password); ok {
		user.PasswordHash = hash
		if err := s.users.Update(ctx, user); err != nil {
			s.logger.Warn("password rehash not stored", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, domain.SubjectTypeUser, nil)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return user, token, exp, nil
}

// LoginStaff authenticates staff and returns role-bearing token.
func (s *AuthService) LoginStaff(ctx context.Context, email, password string) (*domain.StaffMember, string, time.Time, error) {
	staff, err := s.staff.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, errInvalidCredentials
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if err := auth.VerifyPassword(staff.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, s.credentialError(err)
	}
	if !staff.Active {
		return nil, "", time.Time{}, apperrors.NewForbidden("staff account inactive")
	}
	if hash, ok := s.rehash(staff.PasswordHash, password); ok {
		staff.PasswordHash = hash
		if err := s.staff.Update(ctx, staff); err != nil {
			s.logger.Warn("password rehash not stored", zap.String("staff_id", staff.ID), zap.Error(err))
		}
	}
	token, exp, err := s.tokenMgr.GenerateToken(staff.ID, domain.SubjectTypeStaff, &staff.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewInternalError(err)
	}
	return staff, token, exp, nil
}

// RequestPasswordReset issues a reset token for a user or staff email and
// emits a password_reset_requested event. Unknown emails are ignored so the
// endpoint does not reveal which addresses exist.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	reset := domain.PasswordReset{
		Token:     uuid.NewString(),
		Email:     email,
		ExpiresAt: time.Now().Add(s.resetTTL).UTC(),
	}

	if user, err := s.users.GetByEmail(ctx, email); err == nil {
		reset.SubjectType, reset.SubjectID = domain.SubjectTypeUser, user.ID
	} else if errors.Is(err, pgx.ErrNoRows) {
		staff, staffErr := s.staff.GetByEmail(ctx, email)
		if staffErr != nil {
			if errors.Is(staffErr, pgx.ErrNoRows) {
				s.logger.Info("password reset requested for unknown email")
				return nil
			}
			return apperrors.MapError(staffErr)
		}
		reset.SubjectType, reset.SubjectID = domain.SubjectTypeStaff, staff.ID
	} else {
		return apperrors.MapError(err)
	}

	if err := s.resets.Save(ctx, reset); err != nil {
		return apperrors.MapError(err)
	}
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:  events.EventPasswordResetRequested,
		Actor: events.Actor{Type: domain.SubjectTypeSystem},
		Payload: events.PasswordResetRequestedPayload{
			Email:     email,
			ResetURL:  s.resetURL(reset.Token),
			ExpiresAt: reset.ExpiresAt,
		},
	})
	return nil
}

// ConfirmPasswordReset consumes the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	reset, err := s.resets.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, auth.ErrResetTokenNotFound) {
			return apperrors.NewValidationError("reset token invalid or expired", nil)
		}
		return apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.setPassword(ctx, AuthSubject{Type: reset.SubjectType, ID: reset.SubjectID}, "", hash, false)
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, subject AuthSubject, currentPassword, newPassword string) error {
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	return s.setPassword(ctx, subject, currentPassword, hash, true)
}

func (s *AuthService) setPassword(ctx context.Context, subject AuthSubject, current, hash string, verify bool) error {
	switch subject.Type {
	case domain.SubjectTypeUser:
		user, err := s.users.GetByID(ctx, subject.ID)
		if err != nil {
			return notFound(err, "user", nil)
		}
		if verify {
			if err := auth.VerifyPassword(user.PasswordHash, current); err != nil {
				return s.credentialError(err)
			}
		}
		user.PasswordHash = hash
		return apperrors.MapError(s.users.Update(ctx, user))
	case domain.SubjectTypeStaff:
		staff, err := s.staff.GetByID(ctx, subject.ID)
		if err != nil {
			return notFound(err, "staff", nil)
		}
		if verify {
			if err := auth.VerifyPassword(staff.PasswordHash, current); err != nil {
				return s.credentialError(err)
			}
		}
		staff.PasswordHash = hash
		return apperrors.MapError(s.staff.Update(ctx, staff))
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}
}

func (s *AuthService) resetURL(token string) string {
	u, err := url.Parse(s.resetURLBase)
	if err != nil {
		return s.resetURLBase + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// credentialError hides a wrong password behind the generic credentials
// error. Anything else means a stored hash is unreadable.
func (s *AuthService) credentialError(err error) error {
	if errors.Is(err, auth.ErrPasswordMismatch) {
		return errInvalidCredentials
	}
	s.logger.Error("stored password hash unreadable", zap.Error(err))
	return apperrors.NewInternalError(err)
}

// rehash returns a fresh hash when the stored one predates the configured
// bcrypt cost. Failures keep the old hash.
func (s *AuthService) rehash(stored, password string) (string, bool) {
	if !auth.NeedsRehash(stored, s.bcryptCost) {
		return "", false
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.Error(err))
		return "", false
	}
	return hash, true
}
