// user.go — сервис профилей пользователей.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/manupedia/manupedia-backend/internal/domain/model"
	"github.com/manupedia/manupedia-backend/internal/repository"
)

// UserService — чтение профилей пользователей.
// Учётные записи создаются внешним Identity Provider,
// сервис их только читает.
type UserService struct {
	users repository.UserRepository
}

// NewUserService создаёт сервис пользователей.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// Profile возвращает профиль пользователя по id.
func (s *UserService) Profile(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь %d", ErrNotFound, id)
		}
		return nil, err
	}
	return u, nil
}
