package services

import (
	"errors"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/security"
)

var (
	// ErrPageViewNotFound is returned for unknown, expired or ended page views.
	ErrPageViewNotFound = errors.New("page view not found")
	// ErrInvalidToken is returned when the beacon token does not match the page view.
	ErrInvalidToken = security.ErrInvalidToken
	// ErrUnknownObservation is returned for observation payloads that cannot be decoded.
	ErrUnknownObservation = errors.New("unknown observation")
	// ErrStreamDisabled is returned when a live stream is requested for a page view without debug enabled.
	ErrStreamDisabled = errors.New("live stream requires enableDebug")
)
