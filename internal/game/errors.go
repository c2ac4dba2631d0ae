package game

import "errors"

var (
	// ErrMalformedDie is returned when a die does not have exactly six faces in 1..6.
	ErrMalformedDie = errors.New("malformed die")

	// ErrInvalidBankSelection is returned when a bank request names an insult
	// that the latest detection did not offer. Player state is left unchanged.
	ErrInvalidBankSelection = errors.New("invalid bank selection")

	// ErrIllegalReroll is returned by RoundResolver.Reroll when no live dice remain.
	// The turn loop converts it into a forced commit.
	ErrIllegalReroll = errors.New("illegal reroll: no live dice")

	// ErrUnknownArchetype is returned when an archetype name is not in the catalog.
	ErrUnknownArchetype = errors.New("unknown archetype")

	// ErrUnknownTrigger is returned when a trigger name is not registered.
	ErrUnknownTrigger = errors.New("unknown trigger")

	// ErrUnknownStrategy is returned when a strategy name is not registered.
	ErrUnknownStrategy = errors.New("unknown strategy")

	// ErrInvalidRules is returned by Rules.Validate.
	ErrInvalidRules = errors.New("invalid rules")
)
