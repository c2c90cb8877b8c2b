package provider

import "errors"

var (
	ErrAllInstancesExhausted = errors.New("provider: all api instances failed")
	ErrStreamUnresolved      = errors.New("provider: failed to resolve a playable stream url")
	ErrNotFound              = errors.New("provider: not found")
	ErrRateLimited           = errors.New("provider: rate limited")
	ErrTemporary             = errors.New("provider: temporary failure")
	ErrInvalidConfig         = errors.New("provider: invalid config")
)

func IsExhausted(err error) bool     { return errors.Is(err, ErrAllInstancesExhausted) }
func IsUnresolved(err error) bool    { return errors.Is(err, ErrStreamUnresolved) }
func IsNotFound(err error) bool      { return errors.Is(err, ErrNotFound) }
func IsRateLimited(err error) bool   { return errors.Is(err, ErrRateLimited) }
func IsTemporary(err error) bool     { return errors.Is(err, ErrTemporary) }
func IsInvalidConfig(err error) bool { return errors.Is(err, ErrInvalidConfig) }
