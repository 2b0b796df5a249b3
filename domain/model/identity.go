package model

import "fmt"

type IdentityKind string

const (
	KindUser      IdentityKind = "user"
	KindOrganizer IdentityKind = "organizer"
)

func (k IdentityKind) Valid() bool {
	return k == KindUser || k == KindOrganizer
}

// Identity is the authenticated subject of a live connection. It is fixed at
// handshake time and never rebuilt from client payloads.
type Identity struct {
	ID   int64        `json:"id"`
	Kind IdentityKind `json:"kind"`
}

func (i Identity) String() string {
	return fmt.Sprintf("%s:%d", i.Kind, i.ID)
}
