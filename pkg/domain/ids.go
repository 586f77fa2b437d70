// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "cpcaisse/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing an AuditEventID where a DeclarationID is expected.
type (
	DeclarationID uuid.UUID
	AuditEventID  uuid.UUID
)

// NewDeclarationID returns a fresh random declaration identifier.
func NewDeclarationID() DeclarationID { return DeclarationID(uuid.New()) }

// NewAuditEventID returns a fresh random audit event identifier.
func NewAuditEventID() AuditEventID { return AuditEventID(uuid.New()) }

// Parse functions - use at trust boundaries (handlers, API inputs).

func ParseDeclarationID(s string) (DeclarationID, error) {
	id, err := parseUUID(s, "declaration ID")
	return DeclarationID(id), err
}

func ParseAuditEventID(s string) (AuditEventID, error) {
	id, err := parseUUID(s, "audit event ID")
	return AuditEventID(id), err
}

// String methods - for logging and debugging.

func (id DeclarationID) String() string { return uuid.UUID(id).String() }
func (id AuditEventID) String() string  { return uuid.UUID(id).String() }

// MarshalText encodes the identifier as its canonical uuid string.
func (id DeclarationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *DeclarationID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = DeclarationID(u)
	return nil
}

// IsNil checks - used for service-layer validation.

func (id DeclarationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id AuditEventID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. Nil UUIDs are rejected: no
// declaration or audit event is ever stored under the zero identifier.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, label+" cannot be nil")
	}
	return id, nil
}
