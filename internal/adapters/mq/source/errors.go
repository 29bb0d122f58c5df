package source

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrNoBroker = errors.New("broker address required")
	ErrNoQueue  = errors.New("queue required")
	ErrNoVenue  = errors.New("payload missing venue id")
	ErrNoDevice = errors.New("payload missing device id")
)
