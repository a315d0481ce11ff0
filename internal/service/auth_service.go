package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mediconnect/clinic-queue/internal/auth"
	"github.com/mediconnect/clinic-queue/internal/config"
	"github.com/mediconnect/clinic-queue/internal/domain"
	"github.com/mediconnect/clinic-queue/internal/repository"
	apperrors "github.com/mediconnect/clinic-queue/pkg/util"
)

// RegisterPatientInput carries registration fields for a patient account.
type RegisterPatientInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Password    string
	DateOfBirth *time.Time
	Gender      string
	City        string
	Address     string
}

// RegisterDoctorInput carries registration fields for a doctor account.
type RegisterDoctorInput struct {
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	Password       string
	DispensaryID   *string
	Qualification  string
	Specialization string
	LicenseNumber  string
	YearsExperience int
}

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	patients   repository.PatientRepository
	doctors    repository.DoctorRepository
	resets     repository.PasswordResetRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	resetTTL   time.Duration
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo          repository.UserRepository
	PatientRepo       repository.PatientRepository
	DoctorRepo        repository.DoctorRepository
	PasswordResetRepo repository.PasswordResetRepository
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		patients:   deps.PatientRepo,
		doctors:    deps.DoctorRepo,
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

// RegisterPatient creates a PATIENT account with its profile.
func (s *AuthService) RegisterPatient(ctx context.Context, input RegisterPatientInput) (*domain.User, *domain.Patient, string, time.Time, error) {
	user, err := s.createUser(ctx, input.FirstName, input.LastName, input.Email, input.PhoneNumber, input.Password, domain.RolePatient)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}

	patient := &domain.Patient{
		UserID:      user.ID,
		DateOfBirth: input.DateOfBirth,
		Gender:      input.Gender,
		City:        input.City,
		Address:     input.Address,
	}
	if err := s.patients.Create(ctx, patient); err != nil {
		return nil, nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}
	return user, patient, token, exp, nil
}

// RegisterDoctor creates a DOCTOR account with its profile.
func (s *AuthService) RegisterDoctor(ctx context.Context, input RegisterDoctorInput) (*domain.User, *domain.Doctor, string, time.Time, error) {
	user, err := s.createUser(ctx, input.FirstName, input.LastName, input.Email, input.PhoneNumber, input.Password, domain.RoleDoctor)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}

	doctor := &domain.Doctor{
		UserID:          user.ID,
		DispensaryID:    input.DispensaryID,
		Qualification:   input.Qualification,
		Specialization:  input.Specialization,
		LicenseNumber:   input.LicenseNumber,
		YearsExperience: input.YearsExperience,
		Availability:    domain.DoctorNotAvailable,
	}
	if err := s.doctors.Create(ctx, doctor); err != nil {
		return nil, nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, nil, "", time.Time{}, err
	}
	return user, doctor, token, exp, nil
}

// RegisterAdmin creates a DISPENSARY_ADMIN account.
func (s *AuthService) RegisterAdmin(ctx context.Context, firstName, lastName, email, phone, password string) (*domain.User, string, time.Time, error) {
	user, err := s.createUser(ctx, firstName, lastName, email, phone, password, domain.RoleDispensaryAdmin)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// Login authenticates any account by email.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, time.Time, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if user.Status != domain.UserStatusActive {
		return nil, "", time.Time{}, apperrors.NewForbidden("account suspended")
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return user, token, exp, nil
}

// RequestPasswordReset persists a reset token for the account email.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (*repository.PasswordResetToken, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	token := &repository.PasswordResetToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(s.resetTTL),
	}
	if err := s.resets.Create(ctx, token); err != nil {
		return nil, err
	}
	return token, nil
}

// ConfirmPasswordReset validates the reset token and updates password.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.resets.GetByToken(ctx, tokenStr)
	if err != nil {
		return err
	}
	if token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.NewUnauthorized("token expired or used")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, token.UserID)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return err
	}

	return s.resets.MarkUsed(ctx, token.ID)
}

// ChangePassword verifies current password before updating to new hash.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.users.Update(ctx, user)
}

// Logout currently no-ops for stateless JWT approach.
func (s *AuthService) Logout(_ context.Context, _ string) error {
	return nil
}

func (s *AuthService) createUser(ctx context.Context, firstName, lastName, email, phone, password string, role domain.UserRole) (*domain.User, error) {
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PhoneNumber:  phone,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.UserStatusActive,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
