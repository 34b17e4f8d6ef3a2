package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	UID          string    // Уникальный идентификатор пользователя
	Email        string    // Электронная почта
	Username     string    // Имя пользователя (уникальное)
	PasswordHash string    // Хэш пароля пользователя
	Role         string    // Роль пользователя, admin или user
	CreatedAt    time.Time // Дата регистрации
}

// IsAdmin сообщает, является ли пользователь администратором.
// Администраторы всегда получают максимальный тариф.
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}
