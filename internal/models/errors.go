package models

import "errors"

var (
	// ErrUserNotFound пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrPaymentNotFound платёж не найден.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrEmailTaken email уже зарегистрирован.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken username уже занят.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrForbidden ресурс принадлежит другому пользователю.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials неверный логин или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
