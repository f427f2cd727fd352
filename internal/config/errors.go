package config

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrInvalidConfig   = errors.New("invalid config")
	ErrLoadConfig      = errors.New("load config failed")
	ErrSettingNotFound = errors.New("setting not found")
	ErrSettingType     = errors.New("setting has wrong type")
)
