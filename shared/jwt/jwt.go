package jwt

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/driftvault/driftvault/shared/domain"
	internal_errors "github.com/driftvault/driftvault/shared/errors"
	"github.com/driftvault/driftvault/shared/logger"
)

type TokenService interface {
	NewTokenPair(user domain.User) (*TokenPair, error)
	DecodeAccess(tokenStr string) (*domain.User, error)
	DecodeRefresh(tokenStr string) (*domain.User, error)
}

// TokenPair is an access/refresh token set with the access TTL in seconds,
// matching the shape clients persist.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

type Jwt struct {
	accessKey  string
	refreshKey string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func New(accessKey, refreshKey string, accessTTL, refreshTTL time.Duration) TokenService {
	return &Jwt{accessKey, refreshKey, accessTTL, refreshTTL}
}

func (j *Jwt) NewTokenPair(user domain.User) (*TokenPair, error) {
	access, err := j.sign(user, j.accessKey, j.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := j.sign(user, j.refreshKey, j.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(j.accessTTL.Seconds()),
	}, nil
}

func (j *Jwt) DecodeAccess(tokenStr string) (*domain.User, error) {
	return j.decode(tokenStr, j.accessKey)
}

func (j *Jwt) DecodeRefresh(tokenStr string) (*domain.User, error) {
	return j.decode(tokenStr, j.refreshKey)
}

func (j *Jwt) sign(user domain.User, key string, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"id":    user.Id,
		"email": user.Email,
		"name":  user.Name,
		"exp":   time.Now().Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(key))
	if err != nil {
		logger.Log.Error("signing token", "err", err)
		return "", fmt.Errorf("can't create token")
	}
	return tokenString, nil
}

func (j *Jwt) decode(tokenStr, key string) (*domain.User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		// Verify signing algorithm
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, &internal_errors.ErrorWithStatusCode{Message: fmt.Sprintf("unexpected signing method: %v", token.Header["alg"]), StatusCode: http.StatusUnauthorized}
		}
		return []byte(key), nil
	})
	if err != nil {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "invalid token", StatusCode: http.StatusUnauthorized}
	}
	if !token.Valid {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "invalid token", StatusCode: http.StatusUnauthorized}
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "invalid claims", StatusCode: http.StatusUnauthorized}
	}

	id, _ := claims["id"].(string)
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	if id == "" {
		return nil, &internal_errors.ErrorWithStatusCode{Message: "invalid claims", StatusCode: http.StatusUnauthorized}
	}

	return &domain.User{Id: id, Email: email, Name: name}, nil
}
