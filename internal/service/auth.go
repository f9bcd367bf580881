package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/loan-ledger/internal/cache"
	"github.com/Dan9191/loan-ledger/internal/ledger"
	"github.com/Dan9191/loan-ledger/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const tokenTTL = 24 * time.Hour

// Register creates a new borrower with hashed password
func (s *Service) Register(ctx context.Context, phone, fullName, idNumber, address, password string) (models.User, error) {
	if len(password) < ledger.MinPasswordLength {
		return models.User{}, ledger.ErrWeakPassword
	}
	if strings.TrimSpace(phone) == s.staff.Phone {
		return models.User{}, ledger.ErrPhoneTaken
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	id := ledger.NewUserID(s.state, s.intn)
	s.mu.Unlock()

	state, err := s.Dispatch(ctx, ledger.Register{
		ID:           id,
		Phone:        phone,
		FullName:     fullName,
		IDNumber:     idNumber,
		Address:      address,
		PasswordHash: string(hashedPassword),
	})
	if err != nil {
		return models.User{}, err
	}
	user, _ := state.User(id)
	s.log.Infof("User registered: %s", user.ID)
	return user.Public(), nil
}

// Login authenticates a borrower or the staff account, returns a JWT token and
// makes the user the active session
func (s *Service) Login(phone, password string) (string, models.User, error) {
	phone = strings.TrimSpace(phone)
	user, role := s.staff, models.RoleStaff
	if phone != s.staff.Phone || s.staff.PasswordHash == "" {
		s.mu.Lock()
		u, ok := s.state.UserByPhone(phone)
		s.mu.Unlock()
		if !ok {
			return "", models.User{}, ledger.ErrIncorrectCredentials
		}
		user, role = u, models.RoleBorrower
		if u.IsAdmin {
			role = models.RoleStaff
		}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.User{}, ledger.ErrIncorrectCredentials
	}

	tokenString, err := s.issueToken(user.ID, role)
	if err != nil {
		return "", models.User{}, err
	}

	s.mu.Lock()
	s.session = &cache.Session{User: user.Public(), Token: tokenString}
	s.saveSession()
	s.mu.Unlock()

	s.log.Infof("User logged in: %s", user.ID)
	return tokenString, user.Public(), nil
}

func (s *Service) issueToken(userID string, role models.Role) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, models.Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// Logout forgets the active session
func (s *Service) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	if s.sessions != nil {
		if err := s.sessions.Clear(); err != nil {
			s.log.Warnf("Failed to clear session cache: %v", err)
		}
	}
}

// Session returns the active session, if any
func (s *Service) Session() (cache.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return cache.Session{}, false
	}
	return *s.session, true
}

// resumeSession restores the cached session against the loaded ledger. A user that
// no longer exists is dropped, except the staff account which is not stored.
func (s *Service) resumeSession() {
	if s.sessions == nil {
		return
	}
	cached, ok, err := s.sessions.Load()
	if err != nil {
		s.log.Warnf("Failed to load cached session: %v", err)
		return
	}
	if !ok {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if fresh, found := s.state.User(cached.User.ID); found {
		cached.User = fresh.Public()
	} else if !cached.User.IsAdmin {
		s.log.Infof("Cached session user %s is gone", cached.User.ID)
		if err := s.sessions.Clear(); err != nil {
			s.log.Warnf("Failed to clear session cache: %v", err)
		}
		return
	}
	s.session = &cached
	s.log.Infof("Resumed session of %s", cached.User.ID)
}

// saveSession must be called with mu held
func (s *Service) saveSession() {
	if s.sessions == nil || s.session == nil {
		return
	}
	s.session.User = s.session.User.Public()
	if err := s.sessions.Save(*s.session); err != nil {
		s.log.Warnf("Failed to cache session: %v", err)
	}
}

// ParseToken validates a session token and returns its claims
func ParseToken(secret, tokenString string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
