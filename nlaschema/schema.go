// Package nlaschema binds a user-declared set of attribute variants into a
// single Schema, the Go analogue of the corpus's derive-macro-generated
// Serialize/Deserialize pair. Go has no compile-time way to reject a
// duplicate type-id or a missing wildcard the way a derive macro can, so
// those checks run at construction time instead -- schemas are built once,
// typically from a package-level var initializer, and Build's error return
// (or MustBuild's panic) surfaces a malformed schema immediately at
// package-init time rather than on first use.
package nlaschema

import (
	"bytes"
	"fmt"

	"github.com/gluxon/nldl/nlenc"
)

// Case describes one variant of a schema. Exactly one of NoPayload,
// (Encode/DecodePart set with Wildcard false), or Wildcard true applies to
// any given Case.
type Case[V any] struct {
	// TypeID is the wire type this case is dispatched on. Ignored when
	// Wildcard is true.
	TypeID uint16

	// Wildcard marks this case as the catch-all sink for any TypeID not
	// claimed by another case. At most one case may set this.
	Wildcard bool

	// NoPayload marks a case whose variant carries no value -- only its
	// presence (the TypeID firing at all) is meaningful.
	NoPayload bool

	// Encode writes v's payload body. Required unless NoPayload.
	Encode func(v V, buf *bytes.Buffer)

	// DecodePart reconstructs v from the attribute's payload bytes (for a
	// Wildcard case, from the raw payload under the unmatched type-id).
	// Decode calls it for NoPayload cases too (with their empty payload),
	// so every case that Decode can dispatch to needs one.
	DecodePart func(payload []byte) (V, error)

	// WildcardTypeID recovers the dynamic type-id to encode a wildcard
	// value under. Required (and only used) when Wildcard is true --
	// unlike the other cases, a wildcard's wire type isn't fixed, so it
	// has to be read back out of the value itself (e.g. an UnknownAttribute
	// shape's own Type field).
	WildcardTypeID func(v V) uint16
}

// ErrDuplicateTypeID is returned by Build when two non-wildcard cases
// declare the same TypeID.
type ErrDuplicateTypeID struct {
	Schema string
	TypeID uint16
}

func (e ErrDuplicateTypeID) Error() string {
	return fmt.Sprintf("nlaschema: schema %q: duplicate type id %d across cases", e.Schema, e.TypeID)
}

// ErrMultipleWildcards is returned by Build when more than one case sets
// Wildcard.
type ErrMultipleWildcards struct {
	Schema string
}

func (e ErrMultipleWildcards) Error() string {
	return fmt.Sprintf("nlaschema: schema %q: more than one wildcard case declared", e.Schema)
}

// ErrMissingWildcard is returned by Build when no case sets Wildcard. A
// wildcard is mandatory: without one, Decode would have no defined
// behavior for an unrecognized type-id, so Build rejects the schema
// outright rather than deferring the failure to first decode.
type ErrMissingWildcard struct {
	Schema string
}

func (e ErrMissingWildcard) Error() string {
	return fmt.Sprintf("nlaschema: schema %q: no wildcard case declared, Decode would be unreachable for unknown type ids", e.Schema)
}

// ErrUnknownTypeID is returned by Schema.Decode for a type-id no
// non-wildcard case claims when the schema's wildcard case has no
// DecodePart. Build guarantees a wildcard case exists, but not that it has
// a DecodePart.
type ErrUnknownTypeID struct {
	Schema string
	TypeID uint16
}

func (e ErrUnknownTypeID) Error() string {
	return fmt.Sprintf("nlaschema: schema %q: unrecognized type id %d and no wildcard case", e.Schema, e.TypeID)
}

// Schema is the bound, validated form of a set of Cases: the Go rendition
// of a derive-macro-generated Serialize/Deserialize pair for one
// user-declared attribute sum type.
type Schema[V any] struct {
	name       string
	cases      []Case[V] // declaration order, wildcard included
	byTypeID   map[uint16]int
	wildcardAt int
}

// Name returns the schema name passed to Build, used in decode error
// messages.
func (s *Schema[V]) Name() string { return s.name }

// Build partitions cases into no_payload, simple, and wildcard sets and
// validates them. It returns an error rather than panicking so callers
// that want a recoverable path (e.g. a schema built from external,
// attacker-influenced configuration) have one; MustBuild is the usual
// package-init-time entry point for statically-declared schemas.
func Build[V any](schemaName string, cases ...Case[V]) (*Schema[V], error) {
	s := &Schema[V]{
		name:       schemaName,
		cases:      cases,
		byTypeID:   make(map[uint16]int, len(cases)),
		wildcardAt: -1,
	}

	for i, c := range cases {
		if c.Wildcard {
			if s.wildcardAt != -1 {
				return nil, ErrMultipleWildcards{Schema: schemaName}
			}
			s.wildcardAt = i
			continue
		}
		if _, dup := s.byTypeID[c.TypeID]; dup {
			return nil, ErrDuplicateTypeID{Schema: schemaName, TypeID: c.TypeID}
		}
		s.byTypeID[c.TypeID] = i
	}

	if s.wildcardAt == -1 {
		return nil, ErrMissingWildcard{Schema: schemaName}
	}

	return s, nil
}

// MustBuild is Build, panicking on error. It is meant to be called from a
// package-level var initializer, so a malformed schema fails loudly at
// package-init time rather than silently at first use -- the Go analogue
// of the corpus's compile-time derive-macro rejection.
func MustBuild[V any](schemaName string, cases ...Case[V]) *Schema[V] {
	s, err := Build(schemaName, cases...)
	if err != nil {
		panic(err)
	}
	return s
}

// TypeIDOf returns the wire type-id v would be encoded under. which(v)
// picks out the index of the Case that produced v -- Go has no
// reflection-free way to recover "which case produced this value" from a
// plain value without a marker method, so the caller (normally a
// hand-written dispatcher declared alongside the schema, see nlctrl)
// supplies it.
func (s *Schema[V]) TypeIDOf(v V, which func(V) int) uint16 {
	c := s.cases[which(v)]
	if c.Wildcard {
		return c.WildcardTypeID(v)
	}
	return c.TypeID
}

// EncodePayload writes v's payload body only, with no length-prefix or
// type-id framing. This lets a V that embeds a Schema implement
// nla.Encoder's EncodePayload directly, so it can be used anywhere an
// nla.Encoder is expected (nla.Encode, nla.EncodeAll, nla.Nested) without
// an extra encode-then-reframe step.
func (s *Schema[V]) EncodePayload(buf *bytes.Buffer, v V, which func(V) int) {
	c := s.cases[which(v)]
	if !c.NoPayload && c.Encode != nil {
		c.Encode(v, buf)
	}
}

// Encode writes v as a complete attribute: a 2-byte length prefix, the
// type-id, then the payload.
func (s *Schema[V]) Encode(buf *bytes.Buffer, v V, which func(V) int) error {
	return nlenc.WithPrefixedLen16(buf, func(b *bytes.Buffer) {
		nlenc.PutUint16(b, s.TypeIDOf(v, which))
		s.EncodePayload(b, v, which)
	})
}

// Decode reconstructs a V from an attribute's type-id and payload. A
// type-id not claimed by any non-wildcard case falls through to the
// wildcard, per P4. ErrUnknownTypeID is returned only when the wildcard
// case has no DecodePart.
func (s *Schema[V]) Decode(typeID uint16, payload []byte) (V, error) {
	if i, ok := s.byTypeID[typeID]; ok {
		c := s.cases[i]
		return c.DecodePart(payload)
	}

	wc := s.cases[s.wildcardAt]
	if wc.DecodePart != nil {
		return wc.DecodePart(payload)
	}
	var zero V
	return zero, ErrUnknownTypeID{Schema: s.name, TypeID: typeID}
}
