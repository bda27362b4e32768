package api

import (
	"fmt"
	"strings"
)

const (
	// CodeOK is the platform's success result code. Only an exact zero makes
	// a result eligible for cache synchronization; positive warning codes
	// carry a usable payload but are never written to the cache.
	CodeOK = 0

	// CodeLocalError is reserved for faults raised on the client side before
	// a valid server response was obtained: transport failures, undecodable
	// response bodies and the like. It sits well below the platform's
	// documented business-error range so it can never collide with a
	// server-origin code.
	CodeLocalError = -1000
)

// Descriptions used for statuses synthesized locally rather than decoded off
// the wire.
const (
	descLocalError  = "local_error"
	descUndecodable = "undecodable_response"
	descCacheHit    = "cached"
)

type payloadKind int

const (
	payloadEmpty payloadKind = iota
	payloadOne
	payloadMany
)

// Payload is the typed result of a request: exactly one entity, an ordered
// sequence of entities, or nothing. The variant is resolved once at decode
// time and never re-inferred later.
type Payload[T any] struct {
	kind payloadKind
	one  *T
	many []*T
}

func onePayload[T any](item *T) Payload[T] {
	return Payload[T]{kind: payloadOne, one: item}
}

func manyPayload[T any](items []*T) Payload[T] {
	return Payload[T]{kind: payloadMany, many: items}
}

// Empty reports whether the response carried no payload.
func (p Payload[T]) Empty() bool {
	return p.kind == payloadEmpty
}

// One returns the single decoded entity, if the response carried one.
func (p Payload[T]) One() (*T, bool) {
	return p.one, p.kind == payloadOne
}

// Many returns the decoded entity sequence, in server order, if the response
// carried one.
func (p Payload[T]) Many() ([]*T, bool) {
	return p.many, p.kind == payloadMany
}

// Status is the normalized outcome of one logical request. Every outcome is
// representable as a Status, up to and including total network
// unavailability; the client never surfaces transport faults as raised
// errors.
//
// A Status is created fresh per request and owned by the caller; it is never
// mutated after being returned.
type Status[T any] struct {
	// Code is the platform result code: zero on success, positive for
	// warnings, negative for business errors, CodeLocalError for client-side
	// faults.
	Code int

	// Description is the symbolic result identifier reported by the server.
	Description string

	// Notes carries free-form diagnostic text: server notes, or the failure
	// reason for locally synthesized statuses.
	Notes string

	// HttpStatus is the transport-level status of the final attempt. Zero
	// when the request never produced an HTTP response.
	HttpStatus int

	// Payload is the decoded result, if any.
	Payload Payload[T]
}

// Ok reports full success.
func (s *Status[T]) Ok() bool {
	return s.Code == CodeOK
}

// Usable reports whether the payload may be used: success, or a warning code
// signaling a successful-but-noteworthy outcome such as "still updating".
func (s *Status[T]) Usable() bool {
	return s.Code >= CodeOK
}

// cacheable is deliberately narrower than Usable: warning results are not
// synchronized to the cache.
func (s *Status[T]) cacheable() bool {
	return s.Code == CodeOK
}

// Err converts a non-usable status into an error assembled from the
// description and notes, for callers that prefer failures raised rather than
// returned as data. Usable statuses yield nil.
func (s *Status[T]) Err() error {
	if s.Usable() {
		return nil
	}
	msg := s.Description
	if msg == "" {
		msg = fmt.Sprintf("result code %d", s.Code)
	}
	if notes := strings.TrimSpace(s.Notes); notes != "" {
		msg = msg + ": " + notes
	}
	return fmt.Errorf("nest: %s", msg)
}

// localStatus builds the Status used for any client-side fault.
func localStatus[T any](httpStatus int, notes string) *Status[T] {
	return &Status[T]{
		Code:        CodeLocalError,
		Description: descLocalError,
		Notes:       notes,
		HttpStatus:  httpStatus,
	}
}
