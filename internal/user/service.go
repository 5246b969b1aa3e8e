package user

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"go-dm/internal/apperr"
)

// Presence reports whether a user currently holds a live connection.
// Implemented by the redis tracker; nil means "always offline".
type Presence interface {
	IsOnline(ctx context.Context, userID int) bool
}

type Service struct {
	repo      *Repository
	presence  Presence
	jwtSecret string
	tokenTTL  time.Duration
}

type MyJWTClaims struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(repo *Repository, presence Presence, secret string, ttl time.Duration) *Service {
	return &Service{
		repo:      repo,
		presence:  presence,
		jwtSecret: secret,
		tokenTTL:  ttl,
	}
}

func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: username, email and password are required", apperr.ErrInvalidArgument)
	}

	hashedPwd, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	u := &User{
		Username: req.Username,
		Email:    req.Email,
		Password: string(hashedPwd),
	}

	return s.repo.CreateUser(ctx, u)
}

func (s *Service) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	u, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthenticated)
	}

	ss, err := s.signToken(u.ID, u.Username)
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken: ss,
		ID:          u.ID,
		Username:    u.Username,
	}, nil
}

func (s *Service) signToken(id int, username string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, MyJWTClaims{
		ID:       id,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "go-dm",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenTTL)),
		},
	})
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) ValidateToken(tokenString string) (int, string, error) {
	claims := &MyJWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return 0, "", fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
	}

	return claims.ID, claims.Username, nil
}

func (s *Service) SearchUsers(ctx context.Context, query string) ([]Summary, error) {
	users, err := s.repo.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}
	s.markOnline(ctx, users)
	return users, nil
}

// GetProfile returns a user with their friends list populated.
func (s *Service) GetProfile(ctx context.Context, id int) (*Profile, error) {
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	friends, err := s.repo.ListFriends(ctx, id)
	if err != nil {
		return nil, err
	}
	s.markOnline(ctx, friends)

	return &Profile{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Friends:  friends,
	}, nil
}

func (s *Service) markOnline(ctx context.Context, users []Summary) {
	if s.presence == nil {
		return
	}
	for i := range users {
		users[i].Online = s.presence.IsOnline(ctx, users[i].ID)
	}
}
