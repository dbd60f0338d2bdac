package models

import "errors"

var (
	// ErrSeasonNotFound is returned when a season id does not exist.
	ErrSeasonNotFound = errors.New("breeding season not found")
	// ErrCoverageNotFound is returned when a coverage id does not exist in its season.
	ErrCoverageNotFound = errors.New("coverage not found")
	// ErrAnimalNotFound is returned when an animal addressed directly does not exist.
	ErrAnimalNotFound = errors.New("animal not found")
	// ErrInvalidInput flags malformed caller payloads.
	ErrInvalidInput = errors.New("invalid input")
)
