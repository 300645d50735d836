package services

import (
	"fmt"

	"growlink/backend/app/apperr"
	"growlink/backend/app/models"
	"growlink/backend/app/repo"

	"golang.org/x/crypto/bcrypt"
)

type UserService struct{ users *repo.UserRepository }

func NewUserService(users *repo.UserRepository) *UserService { return &UserService{users: users} }

func (s *UserService) EnsureAdmin(username, password string) error {
	count, err := s.users.CountByUsername(username)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Create(&models.User{Username: username, PasswordHash: string(hash), Role: "admin"})
}

func (s *UserService) CreateUser(username, email, password, role string) error {
	if role == "" {
		role = "user"
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.users.Create(&models.User{Username: username, Email: email, PasswordHash: string(hash), Role: role})
}

func (s *UserService) ValidateCredentials(username, password string) (*models.User, error) {
	u, err := s.users.FindByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("invalid credentials: %w", apperr.ErrUnauthenticated)
	}
	return u, nil
}
