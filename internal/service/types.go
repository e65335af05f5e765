package service

import (
	"encoding/json"

	"github.com/google/uuid"
)

// CreateRequest holds parameters for creating a template.
type CreateRequest struct {
	Title       string
	Description string
	Config      json.RawMessage
	Tags        []string
	IsPublic    bool
}

// PatchRequest holds a partial update. Nil fields are left unchanged;
// owner, id, timestamps and counters are not representable here and so
// can never be patched.
type PatchRequest struct {
	Title       *string
	Description *string
	Config      json.RawMessage // nil = unchanged
	Tags        *[]string       // nil = unchanged, empty = clear
	IsPublic    *bool
}

// CloneRequest holds field-by-field overrides applied on top of the
// origin's content; absent fields inherit from the origin.
type CloneRequest struct {
	Title       *string
	Description *string
	Config      json.RawMessage // merged over the origin config, override keys win
}

// ReadOptions controls visibility of soft-deleted templates on read.
type ReadOptions struct {
	Requester      *uuid.UUID
	RequesterAdmin bool
	IncludeDeleted bool
}
