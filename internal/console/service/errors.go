package service

import "errors"

// ErrInvalidCredentials неверный логин или пароль (не уточняем, что именно).
var ErrInvalidCredentials = errors.New("invalid credentials")
