package user

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
)

var (
	ErrEmailRequired      = errors.New("email is required")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 5 characters")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const minPasswordLen = 5

// Store is the persistence surface the service needs.
type Store interface {
	Create(ctx context.Context, email, name, passwordHash string, isStaff, isSuperuser bool) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, name, email, passwordHash string) (*User, error)
}

// Service owns user identity: registration, credential verification, and
// profile management. Passwords exist in plaintext only inside these calls.
type Service struct {
	repo Store
}

func NewService(repo Store) *Service {
	return &Service{repo: repo}
}

// UpdateInput carries optional profile changes. Nil fields are left
// untouched; a non-nil password triggers a rehash.
type UpdateInput struct {
	Name     *string
	Email    *string
	Password *string
}

// Register creates a new active user.
func (s *Service) Register(ctx context.Context, email, password, name string) (*User, error) {
	return s.create(ctx, email, password, name, false, false)
}

// CreateSuperuser creates a user with staff and superuser flags set.
func (s *Service) CreateSuperuser(ctx context.Context, email, password string) (*User, error) {
	return s.create(ctx, email, password, "", true, true)
}

func (s *Service) create(ctx context.Context, email, password, name string, isStaff, isSuperuser bool) (*User, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmailFormat
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}
	if len(password) < minPasswordLen {
		return nil, ErrPasswordTooShort
	}

	passwordHash, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.repo.Create(ctx, NormalizeEmail(email), name, passwordHash, isStaff, isSuperuser)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Verify checks a credential pair. Unknown email, wrong password, and
// deactivated accounts are indistinguishable to the caller.
func (s *Service) Verify(ctx context.Context, email, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := s.repo.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !VerifyPassword(existing.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	if !existing.IsActive {
		return nil, ErrInvalidCredentials
	}

	return existing, nil
}

// Get returns the user with the given ID.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies profile changes to a user.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*User, error) {
	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := existing.Name
	if input.Name != nil {
		name = *input.Name
	}

	email := existing.Email
	if input.Email != nil {
		if *input.Email == "" {
			return nil, ErrEmailRequired
		}
		if _, err := mail.ParseAddress(*input.Email); err != nil {
			return nil, ErrInvalidEmailFormat
		}
		email = NormalizeEmail(*input.Email)
	}

	// Validate and hash the new password before touching anything, so a bad
	// password leaves the profile unchanged.
	var passwordHash string
	if input.Password != nil {
		if *input.Password == "" {
			return nil, ErrPasswordRequired
		}
		if len(*input.Password) < minPasswordLen {
			return nil, ErrPasswordTooShort
		}
		passwordHash, err = HashPassword(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	}

	// Profile and password land in one statement so a failure cannot leave
	// the account half-updated.
	return s.repo.UpdateAccount(ctx, id, name, email, passwordHash)
}
