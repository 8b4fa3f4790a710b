package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yungbote/recall-backend/internal/platform/logger"
	"github.com/yungbote/recall-backend/internal/repos"
	"github.com/yungbote/recall-backend/internal/types"
)

var (
	ErrEmailTaken         = fmt.Errorf("email already in use")
	ErrInvalidCredentials = fmt.Errorf("invalid email or password")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")
	ErrUnknownUser        = fmt.Errorf("user not found")
)

type AuthService interface {
	RegisterUser(ctx context.Context, firstName, lastName, email, password string) (*types.User, string, error)
	LoginUser(ctx context.Context, email, password string) (*types.User, string, error)
	// ResolveIdentity verifies the token signature and expiry and resolves
	// the subject to an existing user. Used once per HTTP request and once
	// per socket handshake; the resolved user is cached briefly.
	ResolveIdentity(ctx context.Context, tokenString string) (*types.User, error)
	TokenTTL() time.Duration
}

type authService struct {
	log       *logger.Logger
	userRepo  repos.UserRepo
	jwtSecret []byte
	tokenTTL  time.Duration
	idCache   *ristretto.Cache
}

func NewAuthService(log *logger.Logger, userRepo repos.UserRepo, jwtSecret string, tokenTTL time.Duration) (AuthService, error) {
	if strings.TrimSpace(jwtSecret) == "" {
		return nil, fmt.Errorf("missing JWT secret")
	}
	if tokenTTL <= 0 {
		tokenTTL = 7 * 24 * time.Hour
	}

	idCache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10_000,
		MaxCost:     1_000,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("identity cache: %w", err)
	}

	return &authService{
		log:       log.With("service", "AuthService"),
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  tokenTTL,
		idCache:   idCache,
	}, nil
}

func (as *authService) RegisterUser(ctx context.Context, firstName, lastName, email, password string) (*types.User, string, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	email = strings.ToLower(strings.TrimSpace(email))

	if email == "" || password == "" {
		return nil, "", fmt.Errorf("email and password are required")
	}
	if firstName == "" || lastName == "" {
		return nil, "", fmt.Errorf("first and last name are required")
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, "", ErrEmailTaken
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &types.User{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hashed),
		FirstName: firstName,
		LastName:  lastName,
	}
	if _, err := as.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := as.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*types.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, "", fmt.Errorf("fetch user: %w", err)
	}
	if len(users) == 0 {
		return nil, "", ErrInvalidCredentials
	}
	user := users[0]

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := as.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (as *authService) ResolveIdentity(ctx context.Context, tokenString string) (*types.User, error) {
	userID, err := as.verifyToken(tokenString)
	if err != nil {
		return nil, err
	}

	if cached, ok := as.idCache.Get(userID.String()); ok {
		if user, ok := cached.(*types.User); ok {
			return user, nil
		}
	}

	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if len(users) == 0 {
		return nil, ErrUnknownUser
	}

	as.idCache.SetWithTTL(userID.String(), users[0], 1, time.Minute)
	return users[0], nil
}

func (as *authService) TokenTTL() time.Duration {
	return as.tokenTTL
}

func (as *authService) generateToken(user *types.User) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(as.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(as.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (as *authService) verifyToken(tokenString string) (uuid.UUID, error) {
	if strings.TrimSpace(tokenString) == "" {
		return uuid.Nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return as.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
