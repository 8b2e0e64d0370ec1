package services

import "errors"

// Shared errors used across services and the HTTP error mapping.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed    = errors.New("validation failed")
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrDisplayNameRequired = errors.New("display name is required")
	ErrLeagueNameRequired  = errors.New("league name is required")
	ErrLeagueTypeInvalid   = errors.New("league type must be event or season")
	ErrMatchTeamsRequired  = errors.New("both teams must have at least one player")
	ErrMatchTeamsOverlap   = errors.New("a player cannot appear on both teams")
	ErrMatchTeamDuplicate  = errors.New("a player cannot appear twice on the same team")
	ErrMatchWinnerInvalid  = errors.New("winner must be side A or B")
	ErrTournamentFinished  = errors.New("tournament is finished")
	ErrCreatorRequired     = errors.New("exactly one creator identity is required")

	// Conflicts
	ErrUserEmailConflict        = errors.New("email address is already in use")
	ErrPlayerAlreadyInLeague    = errors.New("identity is already a player in this league")
	ErrTournamentMemberConflict = errors.New("identity is already registered for this tournament")

	// Authentication
	ErrAuthInvalidCredentials = errors.New("invalid email or password")

	// Entity-specific not-found (more context than the generic ErrNotFound)
	ErrUserNotFound          = errors.New("user not found")
	ErrAnonymousUserNotFound = errors.New("anonymous user not found")
	ErrLeagueNotFound        = errors.New("league not found")
	ErrTournamentNotFound    = errors.New("tournament not found")
	ErrPlayerNotFound        = errors.New("player not found")

	// Identity reconciliation
	ErrAlreadyMergedElsewhere = errors.New("anonymous identity already merged into a different account")
)
