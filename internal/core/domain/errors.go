package domain

import "errors"

var (
	ErrAuthentication   = errors.New("authentication rejected")
	ErrConnectTimeout   = errors.New("connection handshake timed out")
	ErrRoomJoinTimeout  = errors.New("room join timed out")
	ErrRoomLeaveTimeout = errors.New("room leave timed out")
	ErrReconnectFailed  = errors.New("reconnection attempts exhausted")
	ErrTransportClosed  = errors.New("transport closed")

	ErrInvalidListID   = errors.New("invalid list id")
	ErrListNotFound    = errors.New("list not found")
	ErrArticleNotFound = errors.New("article not found")
	ErrInvalidUserID   = errors.New("invalid user id")
)
