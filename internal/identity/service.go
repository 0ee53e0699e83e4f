package identity

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"zipchat/internal/config"
	"zipchat/internal/models"
	"zipchat/internal/store"
	"zipchat/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Service is the identity collaborator: it issues stable (userId, username)
// pairs behind a token. The chat core consumes the pair and never sees
// credentials.
type Service struct {
	users store.UserStore
	cfg   *config.Config
}

func NewService(users store.UserStore, cfg *config.Config) *Service {
	return &Service{
		users: users,
		cfg:   cfg,
	}
}

type Credentials struct {
	Username string `json:"username"`
	Passcode string `json:"passcode"`
}

type TokenResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

func (s *Service) Register(ctx context.Context, creds *Credentials) (*TokenResponse, error) {
	if err := validateCredentials(creds); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Passcode), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash passcode: %w", err)
	}

	user, err := s.users.CreateUser(ctx, creds.Username, string(hash))
	if err != nil {
		return nil, err
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	user.PasscodeHash = ""
	return &TokenResponse{Token: token, User: *user}, nil
}

func (s *Service) Login(ctx context.Context, creds *Credentials) (*TokenResponse, error) {
	user, err := s.users.GetUserByUsername(ctx, creds.Username)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasscodeHash), []byte(creds.Passcode)); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	user.PasscodeHash = ""
	return &TokenResponse{Token: token, User: *user}, nil
}

// GetUserFromToken resolves a token to its user. This is the only identity
// operation the transport layer depends on.
func (s *Service) GetUserFromToken(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := s.validateToken(tokenString)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid token")
	}

	userID, ok := (*claims)["user_id"].(string)
	if !ok || userID == "" {
		return nil, apperrors.Unauthorized("invalid user ID in token")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.PasscodeHash = ""
	return user, nil
}

func (s *Service) validateToken(tokenString string) (*jwt.MapClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.cfg.JWT.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

func (s *Service) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      time.Now().Add(s.cfg.JWT.ExpiresIn).Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.cfg.JWT.Secret)
}

func validateCredentials(creds *Credentials) error {
	creds.Username = strings.TrimSpace(creds.Username)
	if creds.Username == "" || creds.Passcode == "" {
		return apperrors.InvalidArg("missing required fields")
	}
	if len(creds.Username) < 3 || len(creds.Username) > 30 {
		return apperrors.InvalidArg("username must be 3-30 characters long")
	}
	if !usernamePattern.MatchString(creds.Username) {
		return apperrors.InvalidArg("username contains invalid characters")
	}
	if len(creds.Passcode) < 6 {
		return apperrors.InvalidArg("passcode must be at least 6 characters long")
	}
	return nil
}
