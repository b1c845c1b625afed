package util

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrUserNotFound    = fmt.Errorf("user: %w", ErrNotFound)
	ErrSessionNotFound = fmt.Errorf("session: %w", ErrNotFound)
	ErrInvalidMetric   = errors.New("invalid leaderboard metric")
)
