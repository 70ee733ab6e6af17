package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/yukikurage/taskflow/internal/constants"
	"github.com/yukikurage/taskflow/internal/models"
	"github.com/yukikurage/taskflow/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrNameRequired         = errors.New("name is required")
	ErrEmailRequired        = errors.New("email is required")
	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrPasswordTooShort     = errors.New("password too short")
	ErrStaffNotFound        = errors.New("staff not found")
	ErrInvalidRole          = errors.New("role must be admin or staff")
	ErrFailedToHashPassword = errors.New("failed to hash password")
)

// AuthService handles staff accounts and login.
type AuthService struct {
	staffRepo repository.StaffRepository
}

// NewAuthService creates a new AuthService.
func NewAuthService(staffRepo repository.StaffRepository) *AuthService {
	return &AuthService{
		staffRepo: staffRepo,
	}
}

// CreateStaffInput represents the information needed to register staff.
type CreateStaffInput struct {
	Name     string
	Email    string
	Password string
	Role     models.StaffRole
}

// CreateStaff registers a staff member with a hashed password.
func (s *AuthService) CreateStaff(ctx context.Context, input CreateStaffInput) (*models.Staff, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, ErrEmailRequired
	}
	if len(input.Password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	role := input.Role
	if role == "" {
		role = models.RoleStaff
	}
	if role != models.RoleAdmin && role != models.RoleStaff {
		return nil, ErrInvalidRole
	}

	if _, err := s.staffRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, ErrFailedToHashPassword
	}

	staff := &models.Staff{
		Name:         name,
		Email:        email,
		PasswordHash: string(hashedPassword),
		Role:         role,
	}
	if err := s.staffRepo.Create(ctx, staff); err != nil {
		return nil, fmt.Errorf("failed to create staff: %w", err)
	}

	return staff, nil
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email    string
	Password string
}

// Login verifies credentials and returns the authenticated staff member.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*models.Staff, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	staff, err := s.staffRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find staff: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(staff.PasswordHash), []byte(input.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return staff, nil
}

// GetStaff retrieves a staff member by ID.
func (s *AuthService) GetStaff(ctx context.Context, id uuid.UUID) (*models.Staff, error) {
	staff, err := s.staffRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStaffNotFound
		}
		return nil, fmt.Errorf("failed to find staff: %w", err)
	}

	return staff, nil
}
