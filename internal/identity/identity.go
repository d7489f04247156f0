// Package identity maps sender ids to conversation role labels.
package identity

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	RoleOwner = "assistant"
	RoleOther = "user"
)

// participantNamespace seeds hashed participant names so they are stable across runs.
var participantNamespace = uuid.MustParse("6f1d2c3e-3a0b-5d7e-9b84-5a2e1c0f4d21")

// Mode selects how other-party participants are labelled.
type Mode string

const (
	ModeBinary Mode = "binary"
	ModeHashed Mode = "hashed"
)

// Pseudonymizer distinguishes the pipeline owner from everyone else.
type Pseudonymizer struct {
	Owner string
	Mode  Mode
}

// New returns a binary pseudonymizer for owner.
func New(owner string) Pseudonymizer {
	return Pseudonymizer{Owner: owner, Mode: ModeBinary}
}

// Role returns RoleOwner when senderID is the owner and RoleOther otherwise.
func (p Pseudonymizer) Role(senderID string) string {
	if p.Owner != "" && senderID == p.Owner {
		return RoleOwner
	}
	return RoleOther
}

// Name returns a stable per-participant pseudonym in hashed mode and "" in
// binary mode or for the owner.
func (p Pseudonymizer) Name(senderID string) string {
	if p.Mode != ModeHashed || p.Role(senderID) == RoleOwner || senderID == "" {
		return ""
	}
	id := uuid.NewSHA1(participantNamespace, []byte(senderID))
	return fmt.Sprintf("participant-%s", id.String()[:8])
}

// ParseMode parses a mode name, defaulting to binary.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeBinary:
		return ModeBinary, nil
	case ModeHashed:
		return ModeHashed, nil
	default:
		return "", fmt.Errorf("unknown pseudonym mode %q", s)
	}
}
