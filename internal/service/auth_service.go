package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"backend/internal/apperr"
	"backend/internal/model"
	"backend/internal/repository"
)

const (
	tokenTTL = 24 * time.Hour
	codeTTL  = 5 * time.Minute
)

// --- DTOs ---

type RegisterRequest struct {
	Name       string     `json:"name" binding:"required"`
	Email      string     `json:"email" binding:"required,email"`
	NationalID string     `json:"national_id" binding:"required"`
	Role       model.Role `json:"role" binding:"required"`
}

type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// --- Interface ---

// AuthService resolves people into principals. Identity checking is
// deliberately shallow: email + national id, then a one-time code that is
// returned to the caller for popup display rather than delivered
// out-of-band.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, email, nationalID string) (code string, user *model.User, err error)
	VerifyCode(ctx context.Context, email, code string) (*AuthResult, error)
	Session(ctx context.Context, email string) (*model.User, error)
	Logout(ctx context.Context, email string) error
}

// pendingLogin holds a bcrypt hash of the issued one-time code; the clear
// code exists only in the login response.
type pendingLogin struct {
	codeHash  []byte
	expiresAt time.Time
}

type authService struct {
	users  *repository.UserStore
	secret []byte
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]pendingLogin // keyed by email
}

func NewAuthService(users *repository.UserStore, jwtSecret []byte) AuthService {
	return &authService{
		users:   users,
		secret:  jwtSecret,
		now:     time.Now,
		pending: make(map[string]pendingLogin),
	}
}

// --- Implementation ---

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.NationalID) == "" {
		return nil, fmt.Errorf("%w: all fields are required", apperr.ErrValidation)
	}
	if !req.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", apperr.ErrValidation, req.Role)
	}

	user := &model.User{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Email:         req.Email,
		NationalID:    req.NationalID,
		Role:          req.Role,
		SessionActive: true,
		RegisteredAt:  s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *authService) Login(ctx context.Context, email, nationalID string) (string, *model.User, error) {
	user, err := s.users.FindByCredentials(ctx, email, nationalID)
	if err != nil {
		return "", nil, err
	}

	code, err := generateCode()
	if err != nil {
		return "", nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, fmt.Errorf("auth: hash code: %w", err)
	}

	s.mu.Lock()
	s.pending[user.Email] = pendingLogin{codeHash: hash, expiresAt: s.now().Add(codeTTL)}
	s.mu.Unlock()

	return code, user, nil
}

func (s *authService) VerifyCode(ctx context.Context, email, code string) (*AuthResult, error) {
	s.mu.Lock()
	p, ok := s.pending[email]
	s.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: no login pending", apperr.ErrIllegalState)
	}
	if s.now().After(p.expiresAt) {
		s.clearPending(email)
		return nil, fmt.Errorf("%w: code expired", apperr.ErrValidation)
	}
	if bcrypt.CompareHashAndPassword(p.codeHash, []byte(code)) != nil {
		return nil, fmt.Errorf("%w: invalid code", apperr.ErrValidation)
	}
	s.clearPending(email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := s.users.SetSessionActive(ctx, email, true); err != nil {
		return nil, err
	}
	user.SessionActive = true

	token, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func (s *authService) Session(ctx context.Context, email string) (*model.User, error) {
	return s.users.FindByEmail(ctx, email)
}

func (s *authService) Logout(ctx context.Context, email string) error {
	return s.users.SetSessionActive(ctx, email, false)
}

func (s *authService) clearPending(email string) {
	s.mu.Lock()
	delete(s.pending, email)
	s.mu.Unlock()
}

func (s *authService) issueToken(user *model.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"identity": user.Email,
		"role":     string(user.Role),
		"iat":      now.Unix(),
		"exp":      now.Add(tokenTTL).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return token, nil
}

// generateCode returns a random 6-digit one-time code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("auth: generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
