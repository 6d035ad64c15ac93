package httpapi

import (
	"errors"
	"regexp"
	"strings"

	"sketchguess/internal/game"
)

var (
	roomIDPattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	namePattern   = regexp.MustCompile(`^[a-zA-Z0-9_\- ]+$`)
)

func validRoomID(id string) bool {
	return roomIDPattern.MatchString(id)
}

func validateName(name string) error {
	trimmed := strings.TrimSpace(name)
	switch {
	case trimmed == "":
		return errors.New("player name is required")
	case len(trimmed) < 2:
		return errors.New("player name must be at least 2 characters")
	case len(trimmed) > 20:
		return errors.New("player name must be at most 20 characters")
	case !namePattern.MatchString(trimmed):
		return errors.New("player name may only contain letters, numbers, spaces, hyphens and underscores")
	}
	return nil
}

func validateSettings(s game.Settings) error {
	switch {
	case s.Rounds < 2 || s.Rounds > 10:
		return errors.New("rounds must be between 2 and 10")
	case s.TimePerRound < 30 || s.TimePerRound > 300:
		return errors.New("time per round must be between 30 and 300 seconds")
	case !s.Difficulty.Valid():
		return errors.New("difficulty must be easy, medium or hard")
	}
	return nil
}
