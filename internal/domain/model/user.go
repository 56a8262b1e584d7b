package model

import "time"

// Роли пользователей. Аутентификация выполняется внешним IdP,
// таблица users хранит только данные для ownership и отображаемых имён.
const (
	// RoleUser — обычный пользователь.
	RoleUser = "user"
	// RoleAdmin — администратор (модерация, управление записями).
	RoleAdmin = "admin"
)

// User — запись пользователя в таблице users.
type User struct {
	// ID — уникальный идентификатор (sub из JWT)
	ID int64
	// Email — электронная почта
	Email string
	// Name — отображаемое имя (единственное поле, попадающее в ответы API)
	Name string
	// Role — роль (user, admin)
	Role string
	// CreatedAt — время регистрации
	CreatedAt time.Time
}
