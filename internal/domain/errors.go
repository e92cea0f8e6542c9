package domain

import "errors"

var (
	ErrPlayerNotFound = errors.New("player not found")
	ErrMatchNotFound  = errors.New("match not found")
	ErrInvalidResult  = errors.New("invalid match result")
	ErrSlotConflict   = errors.New("time slot already booked")
	ErrNotEligible    = errors.New("opponent outside rank window")
	ErrNameRequired   = errors.New("player name is required")
	ErrRosterNotEmpty = errors.New("roster is not empty")
)
