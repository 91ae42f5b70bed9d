// Package nlctrl is a concrete, non-core domain adapter built on top of
// nla/nlaschema/nlmsg/genl/nlsock: it models the "nlctrl" Generic Netlink
// controller family (GENL_ID_CTRL), the bootstrap family every other genl
// family is resolved through by name. It is deliberately kept separate
// from the core codec packages -- nothing here is needed to decode an
// arbitrary Netlink stream, only to talk to this one specific family.
package nlctrl

import (
	"bytes"

	"github.com/gluxon/nldl/nla"
	"github.com/gluxon/nldl/nlaschema"
)

// Controller attribute type ids, from linux/genetlink.h.
const (
	ctrlAttrUnspec      uint16 = 0
	ctrlAttrFamilyID    uint16 = 1
	ctrlAttrFamilyName  uint16 = 2
	ctrlAttrVersion     uint16 = 3
	ctrlAttrHeaderSize  uint16 = 4
	ctrlAttrMaxAttr     uint16 = 5
	ctrlAttrOps         uint16 = 6
	ctrlAttrMcastGroups uint16 = 7
)

// Operation attribute type ids nested under CTRL_ATTR_OPS.
const (
	ctrlAttrOpUnspec uint16 = 0
	ctrlAttrOpID     uint16 = 1
	ctrlAttrOpFlags  uint16 = 2
)

// Multicast group attribute type ids nested under CTRL_ATTR_MCAST_GROUPS.
const (
	ctrlAttrMcastGrpUnspec uint16 = 0
	ctrlAttrMcastGrpName   uint16 = 1
	ctrlAttrMcastGrpID     uint16 = 2
)

// controllerAttributeKind tags which field of ControllerAttribute is
// meaningful. Go has no sum types, so this is the Go rendition of the
// Rust enum's discriminant.
type controllerAttributeKind int

const (
	ctrlKindUnspec controllerAttributeKind = iota
	ctrlKindFamilyID
	ctrlKindFamilyName
	ctrlKindVersion
	ctrlKindHeaderSize
	ctrlKindMaxAttr
	ctrlKindOperations
	ctrlKindMulticastGroups
	ctrlKindUnknown
)

// ControllerAttribute is one attribute of the nlctrl family's top-level
// schema, covering CTRL_ATTR_* as seen in "genl ctrl list"/"genl ctrl get".
type ControllerAttribute struct {
	kind controllerAttributeKind

	FamilyID        uint16
	FamilyName      string
	Version         uint32
	HeaderSize      uint32
	MaxAttr         uint32
	Operations      []nla.Nested[ControllerAttributeOperation]
	MulticastGroups []nla.Nested[ControllerAttributeMulticastGroup]
	Unknown         nla.Unknown
}

func controllerAttributeWhich(v ControllerAttribute) int { return int(v.kind) }

// TypeID implements nla.Encoder via the bound schema.
func (v ControllerAttribute) TypeID() uint16 {
	return controllerAttributeSchema.TypeIDOf(v, controllerAttributeWhich)
}

// EncodePayload implements nla.Encoder via the bound schema.
func (v ControllerAttribute) EncodePayload(buf *bytes.Buffer) {
	controllerAttributeSchema.EncodePayload(buf, v, controllerAttributeWhich)
}

var controllerAttributeSchema = nlaschema.MustBuild[ControllerAttribute]("ControllerAttribute",
	nlaschema.Case[ControllerAttribute]{
		TypeID:    ctrlAttrUnspec,
		NoPayload: true,
		DecodePart: func([]byte) (ControllerAttribute, error) {
			return ControllerAttribute{kind: ctrlKindUnspec}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		TypeID: ctrlAttrFamilyID,
		Encode: func(v ControllerAttribute, buf *bytes.Buffer) { nla.PutUint16(buf, v.FamilyID) },
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			v, err := nla.DecodeUint16(ctrlAttrFamilyID, payload)
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindFamilyID, FamilyID: v}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		TypeID: ctrlAttrFamilyName,
		Encode: func(v ControllerAttribute, buf *bytes.Buffer) { nla.PutString(buf, v.FamilyName) },
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			v, err := nla.DecodeString(ctrlAttrFamilyName, payload)
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindFamilyName, FamilyName: v}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		TypeID: ctrlAttrVersion,
		Encode: func(v ControllerAttribute, buf *bytes.Buffer) { nla.PutUint32(buf, v.Version) },
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			v, err := nla.DecodeUint32(ctrlAttrVersion, payload)
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindVersion, Version: v}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		TypeID: ctrlAttrHeaderSize,
		Encode: func(v ControllerAttribute, buf *bytes.Buffer) { nla.PutUint32(buf, v.HeaderSize) },
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			v, err := nla.DecodeUint32(ctrlAttrHeaderSize, payload)
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindHeaderSize, HeaderSize: v}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		TypeID: ctrlAttrMaxAttr,
		Encode: func(v ControllerAttribute, buf *bytes.Buffer) { nla.PutUint32(buf, v.MaxAttr) },
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			v, err := nla.DecodeUint32(ctrlAttrMaxAttr, payload)
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindMaxAttr, MaxAttr: v}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		TypeID: ctrlAttrOps,
		Encode: func(v ControllerAttribute, buf *bytes.Buffer) {
			_ = nla.EncodeAll(buf, v.Operations)
		},
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			ops, err := nla.DecodeAll(payload, nla.DecodeNested(decodeControllerAttributeOperation))
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindOperations, Operations: ops}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		TypeID: ctrlAttrMcastGroups,
		Encode: func(v ControllerAttribute, buf *bytes.Buffer) {
			_ = nla.EncodeAll(buf, v.MulticastGroups)
		},
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			groups, err := nla.DecodeAll(payload, nla.DecodeNested(decodeControllerAttributeMulticastGroup))
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindMulticastGroups, MulticastGroups: groups}, nil
		},
	},
	nlaschema.Case[ControllerAttribute]{
		Wildcard:       true,
		WildcardTypeID: func(v ControllerAttribute) uint16 { return v.Unknown.Type },
		Encode:         func(v ControllerAttribute, buf *bytes.Buffer) { buf.Write(v.Unknown.Payload) },
		DecodePart: func(payload []byte) (ControllerAttribute, error) {
			u, err := nla.DecodeUnknown(0, payload)
			if err != nil {
				return ControllerAttribute{}, err
			}
			return ControllerAttribute{kind: ctrlKindUnknown, Unknown: u}, nil
		},
	},
)

// DecodeControllerAttribute is a nla.Decoder[ControllerAttribute] bound to
// controllerAttributeSchema.
func DecodeControllerAttribute(typeID uint16, payload []byte) (ControllerAttribute, error) {
	return controllerAttributeSchema.Decode(typeID, payload)
}

// NewFamilyNameAttribute builds the ControllerAttribute value used as the
// request payload for GetFamily: CTRL_ATTR_FAMILY_NAME carrying the target
// family's name.
func NewFamilyNameAttribute(name string) ControllerAttribute {
	return ControllerAttribute{kind: ctrlKindFamilyName, FamilyName: name}
}

// NewFamilyIDAttribute builds a CTRL_ATTR_FAMILY_ID attribute value.
func NewFamilyIDAttribute(id uint16) ControllerAttribute {
	return ControllerAttribute{kind: ctrlKindFamilyID, FamilyID: id}
}

// NewVersionAttribute builds a CTRL_ATTR_VERSION attribute value.
func NewVersionAttribute(version uint32) ControllerAttribute {
	return ControllerAttribute{kind: ctrlKindVersion, Version: version}
}

// NewHeaderSizeAttribute builds a CTRL_ATTR_HDRSIZE attribute value.
func NewHeaderSizeAttribute(size uint32) ControllerAttribute {
	return ControllerAttribute{kind: ctrlKindHeaderSize, HeaderSize: size}
}

// NewMaxAttrAttribute builds a CTRL_ATTR_MAXATTR attribute value.
func NewMaxAttrAttribute(maxAttr uint32) ControllerAttribute {
	return ControllerAttribute{kind: ctrlKindMaxAttr, MaxAttr: maxAttr}
}

// --- ControllerAttributeOperation -------------------------------------

type controllerAttributeOperationKind int

const (
	ctrlOpKindUnspec controllerAttributeOperationKind = iota
	ctrlOpKindID
	ctrlOpKindFlags
	ctrlOpKindUnknown
)

// ControllerAttributeOperation is one attribute inside a CTRL_ATTR_OPS
// nested entry.
type ControllerAttributeOperation struct {
	kind controllerAttributeOperationKind

	ID      uint32
	Flags   uint32
	Unknown nla.Unknown
}

func controllerAttributeOperationWhich(v ControllerAttributeOperation) int { return int(v.kind) }

func (v ControllerAttributeOperation) TypeID() uint16 {
	return controllerAttributeOperationSchema.TypeIDOf(v, controllerAttributeOperationWhich)
}

func (v ControllerAttributeOperation) EncodePayload(buf *bytes.Buffer) {
	controllerAttributeOperationSchema.EncodePayload(buf, v, controllerAttributeOperationWhich)
}

var controllerAttributeOperationSchema = nlaschema.MustBuild[ControllerAttributeOperation]("ControllerAttributeOperation",
	nlaschema.Case[ControllerAttributeOperation]{
		TypeID:    ctrlAttrOpUnspec,
		NoPayload: true,
		DecodePart: func([]byte) (ControllerAttributeOperation, error) {
			return ControllerAttributeOperation{kind: ctrlOpKindUnspec}, nil
		},
	},
	nlaschema.Case[ControllerAttributeOperation]{
		TypeID: ctrlAttrOpID,
		Encode: func(v ControllerAttributeOperation, buf *bytes.Buffer) { nla.PutUint32(buf, v.ID) },
		DecodePart: func(payload []byte) (ControllerAttributeOperation, error) {
			v, err := nla.DecodeUint32(ctrlAttrOpID, payload)
			if err != nil {
				return ControllerAttributeOperation{}, err
			}
			return ControllerAttributeOperation{kind: ctrlOpKindID, ID: v}, nil
		},
	},
	nlaschema.Case[ControllerAttributeOperation]{
		TypeID: ctrlAttrOpFlags,
		Encode: func(v ControllerAttributeOperation, buf *bytes.Buffer) { nla.PutUint32(buf, v.Flags) },
		DecodePart: func(payload []byte) (ControllerAttributeOperation, error) {
			v, err := nla.DecodeUint32(ctrlAttrOpFlags, payload)
			if err != nil {
				return ControllerAttributeOperation{}, err
			}
			return ControllerAttributeOperation{kind: ctrlOpKindFlags, Flags: v}, nil
		},
	},
	nlaschema.Case[ControllerAttributeOperation]{
		Wildcard:       true,
		WildcardTypeID: func(v ControllerAttributeOperation) uint16 { return v.Unknown.Type },
		Encode:         func(v ControllerAttributeOperation, buf *bytes.Buffer) { buf.Write(v.Unknown.Payload) },
		DecodePart: func(payload []byte) (ControllerAttributeOperation, error) {
			u, err := nla.DecodeUnknown(0, payload)
			if err != nil {
				return ControllerAttributeOperation{}, err
			}
			return ControllerAttributeOperation{kind: ctrlOpKindUnknown, Unknown: u}, nil
		},
	},
)

func decodeControllerAttributeOperation(typeID uint16, payload []byte) (ControllerAttributeOperation, error) {
	return controllerAttributeOperationSchema.Decode(typeID, payload)
}

// --- ControllerAttributeMulticastGroup --------------------------------

type controllerAttributeMulticastGroupKind int

const (
	ctrlMcastKindUnspec controllerAttributeMulticastGroupKind = iota
	ctrlMcastKindName
	ctrlMcastKindID
	ctrlMcastKindUnknown
)

// ControllerAttributeMulticastGroup is one attribute inside a
// CTRL_ATTR_MCAST_GROUPS nested entry.
type ControllerAttributeMulticastGroup struct {
	kind controllerAttributeMulticastGroupKind

	Name    string
	ID      uint32
	Unknown nla.Unknown
}

func controllerAttributeMulticastGroupWhich(v ControllerAttributeMulticastGroup) int { return int(v.kind) }

func (v ControllerAttributeMulticastGroup) TypeID() uint16 {
	return controllerAttributeMulticastGroupSchema.TypeIDOf(v, controllerAttributeMulticastGroupWhich)
}

func (v ControllerAttributeMulticastGroup) EncodePayload(buf *bytes.Buffer) {
	controllerAttributeMulticastGroupSchema.EncodePayload(buf, v, controllerAttributeMulticastGroupWhich)
}

var controllerAttributeMulticastGroupSchema = nlaschema.MustBuild[ControllerAttributeMulticastGroup]("ControllerAttributeMulticastGroup",
	nlaschema.Case[ControllerAttributeMulticastGroup]{
		TypeID:    ctrlAttrMcastGrpUnspec,
		NoPayload: true,
		DecodePart: func([]byte) (ControllerAttributeMulticastGroup, error) {
			return ControllerAttributeMulticastGroup{kind: ctrlMcastKindUnspec}, nil
		},
	},
	nlaschema.Case[ControllerAttributeMulticastGroup]{
		TypeID: ctrlAttrMcastGrpName,
		Encode: func(v ControllerAttributeMulticastGroup, buf *bytes.Buffer) { nla.PutString(buf, v.Name) },
		DecodePart: func(payload []byte) (ControllerAttributeMulticastGroup, error) {
			v, err := nla.DecodeString(ctrlAttrMcastGrpName, payload)
			if err != nil {
				return ControllerAttributeMulticastGroup{}, err
			}
			return ControllerAttributeMulticastGroup{kind: ctrlMcastKindName, Name: v}, nil
		},
	},
	nlaschema.Case[ControllerAttributeMulticastGroup]{
		TypeID: ctrlAttrMcastGrpID,
		Encode: func(v ControllerAttributeMulticastGroup, buf *bytes.Buffer) { nla.PutUint32(buf, v.ID) },
		DecodePart: func(payload []byte) (ControllerAttributeMulticastGroup, error) {
			v, err := nla.DecodeUint32(ctrlAttrMcastGrpID, payload)
			if err != nil {
				return ControllerAttributeMulticastGroup{}, err
			}
			return ControllerAttributeMulticastGroup{kind: ctrlMcastKindID, ID: v}, nil
		},
	},
	nlaschema.Case[ControllerAttributeMulticastGroup]{
		Wildcard:       true,
		WildcardTypeID: func(v ControllerAttributeMulticastGroup) uint16 { return v.Unknown.Type },
		Encode:         func(v ControllerAttributeMulticastGroup, buf *bytes.Buffer) { buf.Write(v.Unknown.Payload) },
		DecodePart: func(payload []byte) (ControllerAttributeMulticastGroup, error) {
			u, err := nla.DecodeUnknown(0, payload)
			if err != nil {
				return ControllerAttributeMulticastGroup{}, err
			}
			return ControllerAttributeMulticastGroup{kind: ctrlMcastKindUnknown, Unknown: u}, nil
		},
	},
)

func decodeControllerAttributeMulticastGroup(typeID uint16, payload []byte) (ControllerAttributeMulticastGroup, error) {
	return controllerAttributeMulticastGroupSchema.Decode(typeID, payload)
}
