package storage

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrEmailAuthNotFound    = errors.New("email auth not found")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRoomNotFound         = errors.New("challenge room not found")
	ErrMemberNotFound       = errors.New("challenge member not found")
	ErrMemberExists         = errors.New("already joined challenge")
	ErrRecordNotFound       = errors.New("challenge record not found")
)
