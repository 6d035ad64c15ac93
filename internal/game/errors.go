package game

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrPlayerNotFound = errors.New("player not found")

	// join failures
	ErrGameInProgress = errors.New("game already in progress")
	ErrRoomFull       = errors.New("room is full")
	ErrNameTaken      = errors.New("player name already taken")

	// authorization failures
	ErrNotHost   = errors.New("only the host can start the game")
	ErrNotDrawer = errors.New("only the current drawer can do that")
	ErrIsDrawer  = errors.New("the drawer cannot guess")

	// phase / argument failures
	ErrWrongPhase        = errors.New("action not allowed in current phase")
	ErrNotEnoughPlayers  = errors.New("need at least 2 players to start")
	ErrBadWordIndex      = errors.New("word index out of range")
	ErrAlreadyGuessed    = errors.New("already guessed correctly this turn")
	ErrStaleSnapshot     = errors.New("drawing snapshot older than stored one")
	ErrUnknownUpdateKind = errors.New("unknown drawing update kind")
)
