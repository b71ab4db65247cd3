package server

import "errors"

var (
	ErrStatusInvalidPayload string = "INVALID_PAYLOAD"
	ErrStatusInvalidAction  string = "INVALID_ACTION"
	ErrStatusInvalidCell    string = "INVALID_CELL"
	ErrStatusInternal       string = "INTERNAL_ERROR"
	ErrStatusNotInRoom      string = "NOT_IN_ROOM"
)

var (
	ErrNoAuthorization = errors.New("no authorization")
	ErrUnknownBackend  = errors.New("unknown storage backend")
)
