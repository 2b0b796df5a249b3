package websocket

import (
	"strconv"
	"strings"
)

// RoomKind is the namespace part of a room key.
type RoomKind string

const (
	RoomPersonal RoomKind = "user"
	RoomMatch    RoomKind = "match"
	RoomEvent    RoomKind = "event"
)

// Every room key in the process is built here. Handlers, the emitter and the
// hub must never format room names themselves.

func PersonalRoom(identityID int64) string {
	return roomKey(RoomPersonal, identityID)
}

func MatchRoom(matchID int64) string {
	return roomKey(RoomMatch, matchID)
}

func EventRoom(eventID int64) string {
	return roomKey(RoomEvent, eventID)
}

func roomKey(kind RoomKind, id int64) string {
	return string(kind) + ":" + strconv.FormatInt(id, 10)
}

// ParseRoom splits a room key into its namespace and id.
func ParseRoom(room string) (RoomKind, int64, bool) {
	prefix, rawID, ok := strings.Cut(room, ":")
	if !ok {
		return "", 0, false
	}

	kind := RoomKind(prefix)
	switch kind {
	case RoomPersonal, RoomMatch, RoomEvent:
	default:
		return "", 0, false
	}

	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return "", 0, false
	}
	return kind, id, true
}
