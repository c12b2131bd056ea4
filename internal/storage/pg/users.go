package pg

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/driftvault/driftvault/shared/domain"
	internal_errors "github.com/driftvault/driftvault/shared/errors"
)

const uniqueViolation = "23505"

func (s *Storage) CreateUser(creds *domain.Credentials) error {
	_, err := s.db.Exec(`
	INSERT INTO users(id, email, name, password)
	VALUES($1, $2, $3, $4)`,
		creds.Id, creds.Email, creds.Name, creds.Password)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			if pqErr.Constraint == "users_name_key" {
				return internal_errors.InvalidArgument("username is already taken")
			}
			return internal_errors.InvalidArgument("user already exists")
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (s *Storage) GetUserByEmail(email string) (*domain.Credentials, error) {
	var creds domain.Credentials
	err := s.db.QueryRow(`
	SELECT id, email, name, password
	FROM users
	WHERE email = $1`, email).Scan(&creds.Id, &creds.Email, &creds.Name, &creds.Password)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal_errors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &creds, nil
}

func (s *Storage) GetUser(id domain.UserId) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRow(`
	SELECT id, email, name
	FROM users
	WHERE id = $1`, id).Scan(&user.Id, &user.Email, &user.Name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, internal_errors.NotFound("user not found")
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *Storage) UpdateUserName(id domain.UserId, name string) error {
	result, err := s.db.Exec("UPDATE users SET name = $1 WHERE id = $2", name, id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return internal_errors.InvalidArgument("username is already taken")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows for user update: %w", err)
	}
	if affected == 0 {
		return internal_errors.NotFound("user not found")
	}
	return nil
}
