package service

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/driftvault/driftvault/shared/domain"
	"github.com/driftvault/driftvault/shared/errors"
	"github.com/driftvault/driftvault/shared/jwt"
	"github.com/driftvault/driftvault/shared/logger"
)

// AuthStorage is the user persistence surface the auth service needs.
type AuthStorage interface {
	CreateUser(creds *domain.Credentials) error
	GetUserByEmail(email string) (*domain.Credentials, error)
	GetUser(id domain.UserId) (*domain.User, error)
}

type Auth struct {
	storage    AuthStorage
	jwt        jwt.TokenService
	bcryptCost int
}

func NewAuth(storage AuthStorage, jwt jwt.TokenService, bcryptCost int) *Auth {
	return &Auth{storage: storage, jwt: jwt, bcryptCost: bcryptCost}
}

func (a *Auth) Register(email, name, password string) (*domain.User, error) {
	email = strings.ToLower(email)

	passHash, err := bcrypt.GenerateFromPassword([]byte(password), a.bcryptCost)
	if err != nil {
		logger.Log.Error("failed to hash password", "error", err)
		return nil, err
	}

	// v7 ids are time-ordered, which keeps user listings naturally sorted.
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}

	creds := &domain.Credentials{
		User:     domain.User{Id: id.String(), Email: email, Name: name},
		Password: string(passHash),
	}
	if err := a.storage.CreateUser(creds); err != nil {
		return nil, err
	}

	logger.Log.Info("user registered", "user_id", creds.Id)
	return &creds.User, nil
}

// Login checks the credentials and returns a fresh token pair. Unknown emails
// and wrong passwords produce the same error, to not leak existing users.
func (a *Auth) Login(email, password string) (*jwt.TokenPair, *domain.User, error) {
	email = strings.ToLower(email)

	creds, err := a.storage.GetUserByEmail(email)
	if err != nil {
		if e, ok := err.(*errors.ErrorWithStatusCode); ok && e.StatusCode == http.StatusNotFound {
			return nil, nil, &errors.ErrorWithStatusCode{Message: "Invalid credentials", StatusCode: http.StatusUnauthorized}
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.Password), []byte(password)); err != nil {
		logger.Log.Warn("password verification failed", "user_id", creds.Id)
		return nil, nil, &errors.ErrorWithStatusCode{Message: "Invalid credentials", StatusCode: http.StatusUnauthorized}
	}

	pair, err := a.jwt.NewTokenPair(creds.User)
	if err != nil {
		logger.Log.Error("failed to create token pair", "user_id", creds.Id, "error", err)
		return nil, nil, err
	}
	return pair, &creds.User, nil
}

// Refresh exchanges a valid refresh token for a new token pair. The user is
// re-read from storage so a deleted account cannot keep refreshing.
func (a *Auth) Refresh(refreshToken string) (*jwt.TokenPair, error) {
	claims, err := a.jwt.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	user, err := a.storage.GetUser(claims.Id)
	if err != nil {
		return nil, &errors.ErrorWithStatusCode{Message: "invalid token", StatusCode: http.StatusUnauthorized}
	}

	return a.jwt.NewTokenPair(*user)
}
