package nlctrl

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/gluxon/nldl/genl"
	"github.com/gluxon/nldl/nla"
	"github.com/gluxon/nldl/nlsock"
)

// ctrlCmdGetFamily is CTRL_CMD_GETFAMILY.
const ctrlCmdGetFamily uint8 = 3

// Family is the assembled view of one Generic Netlink family, built by
// folding a decoded []ControllerAttribute down to its required fields.
// CSV tags let this be exported directly via gocarina/gocsv, the same
// library the wider corpus uses to flatten decoded records to CSV.
type Family struct {
	FamilyID        uint16                  `csv:"family_id"`
	FamilyName      string                  `csv:"family_name"`
	Version         uint32                  `csv:"version"`
	HeaderSize      uint32                  `csv:"header_size"`
	MaxAttr         uint32                  `csv:"max_attr"`
	Operations      []FamilyOperation       `csv:"-"`
	MulticastGroups []FamilyMulticastGroup  `csv:"-"`
}

// FamilyOperation is one operation a family supports.
type FamilyOperation struct {
	ID    uint32 `csv:"id"`
	Flags uint32 `csv:"flags"`
}

// FamilyMulticastGroup is one multicast group a family exposes.
type FamilyMulticastGroup struct {
	Name string `csv:"name"`
	ID   uint32 `csv:"id"`
}

// ErrMissingFamilyAttribute is returned by NewFamily when a required
// CTRL_ATTR_* field never appeared in the decoded attribute list.
type ErrMissingFamilyAttribute struct {
	Field string
}

func (e ErrMissingFamilyAttribute) Error() string {
	return fmt.Sprintf("nlctrl: response missing required family attribute %q", e.Field)
}

// NewFamily folds a decoded attribute list down into a Family, the Go
// rendition of the original TryFrom<Vec<ControllerAttribute>> conversion:
// required fields (family id/name/version/header size/max attr) must all
// be present, while operations and multicast groups default to empty.
func NewFamily(attrs []ControllerAttribute) (Family, error) {
	var f Family
	var haveID, haveName, haveVersion, haveHeaderSize, haveMaxAttr bool

	for _, a := range attrs {
		switch a.kind {
		case ctrlKindFamilyID:
			f.FamilyID = a.FamilyID
			haveID = true
		case ctrlKindFamilyName:
			f.FamilyName = a.FamilyName
			haveName = true
		case ctrlKindVersion:
			f.Version = a.Version
			haveVersion = true
		case ctrlKindHeaderSize:
			f.HeaderSize = a.HeaderSize
			haveHeaderSize = true
		case ctrlKindMaxAttr:
			f.MaxAttr = a.MaxAttr
			haveMaxAttr = true
		case ctrlKindOperations:
			for _, nested := range a.Operations {
				op, err := newFamilyOperation(nested.Children)
				if err != nil {
					return Family{}, err
				}
				f.Operations = append(f.Operations, op)
			}
		case ctrlKindMulticastGroups:
			for _, nested := range a.MulticastGroups {
				g, err := newFamilyMulticastGroup(nested.Children)
				if err != nil {
					return Family{}, err
				}
				f.MulticastGroups = append(f.MulticastGroups, g)
			}
		}
	}

	if !haveID {
		return Family{}, ErrMissingFamilyAttribute{Field: "family_id"}
	}
	if !haveName {
		return Family{}, ErrMissingFamilyAttribute{Field: "family_name"}
	}
	if !haveVersion {
		return Family{}, ErrMissingFamilyAttribute{Field: "version"}
	}
	if !haveHeaderSize {
		return Family{}, ErrMissingFamilyAttribute{Field: "header_size"}
	}
	if !haveMaxAttr {
		return Family{}, ErrMissingFamilyAttribute{Field: "max_attr"}
	}
	return f, nil
}

func newFamilyOperation(attrs []ControllerAttributeOperation) (FamilyOperation, error) {
	var op FamilyOperation
	var haveID, haveFlags bool
	for _, a := range attrs {
		switch a.kind {
		case ctrlOpKindID:
			op.ID = a.ID
			haveID = true
		case ctrlOpKindFlags:
			op.Flags = a.Flags
			haveFlags = true
		}
	}
	if !haveID {
		return FamilyOperation{}, ErrMissingFamilyAttribute{Field: "operation.id"}
	}
	if !haveFlags {
		return FamilyOperation{}, ErrMissingFamilyAttribute{Field: "operation.flags"}
	}
	return op, nil
}

func newFamilyMulticastGroup(attrs []ControllerAttributeMulticastGroup) (FamilyMulticastGroup, error) {
	var g FamilyMulticastGroup
	var haveName, haveID bool
	for _, a := range attrs {
		switch a.kind {
		case ctrlMcastKindName:
			g.Name = a.Name
			haveName = true
		case ctrlMcastKindID:
			g.ID = a.ID
			haveID = true
		}
	}
	if !haveName {
		return FamilyMulticastGroup{}, ErrMissingFamilyAttribute{Field: "multicast_group.name"}
	}
	if !haveID {
		return FamilyMulticastGroup{}, ErrMissingFamilyAttribute{Field: "multicast_group.id"}
	}
	return g, nil
}

func decodeControllerAttributeList(payload []byte) ([]ControllerAttribute, error) {
	return nla.DecodeAll(payload, DecodeControllerAttribute)
}

// GetFamily resolves one family by name against the bootstrap nlctrl
// family, sending a CTRL_CMD_GETFAMILY request and decoding the response
// into a Family.
func GetFamily(sock *nlsock.Socket, name string) (Family, error) {
	attrs := []ControllerAttribute{NewFamilyNameAttribute(name)}
	payload := genlAttrsPayload{genlHeader: genl.Header{Cmd: ctrlCmdGetFamily, Version: 0}, attrs: attrs}
	if err := sock.Send(payload, genl.FlagRequest); err != nil {
		return Family{}, err
	}

	msg, err := nlsock.Recv(sock, decodeGenlControllerAttributes)
	if err != nil {
		return Family{}, err
	}
	return NewFamily(msg.Body.Protocol)
}

// List dumps every registered family, sending a CTRL_CMD_GETFAMILY
// request with the DUMP flag and draining the multipart response.
func List(sock *nlsock.Socket) ([]Family, error) {
	if err := sock.Send(genlAttrsPayload{genlHeader: genl.Header{Cmd: ctrlCmdGetFamily, Version: 0}}, genl.FlagDump); err != nil {
		return nil, err
	}

	perMessage, err := nlsock.RecvUntilDone(sock, decodeGenlControllerAttributes)
	if err != nil {
		return nil, err
	}

	families := make([]Family, 0, len(perMessage))
	for _, attrs := range perMessage {
		f, err := NewFamily(attrs)
		if err != nil {
			return nil, err
		}
		families = append(families, f)
	}
	return families, nil
}

// genlAttrsPayload adapts a genl header plus attribute sequence into an
// nlmsg.Payload, for use with nlsock.Socket.Send.
type genlAttrsPayload struct {
	genlHeader genl.Header
	attrs      []ControllerAttribute
}

func (p genlAttrsPayload) EncodeMessage(buf *bytes.Buffer) {
	genl.EncodeHeader(buf, p.genlHeader)
	_ = nla.EncodeAll(buf, p.attrs)
}

func decodeGenlControllerAttributes(b []byte) ([]ControllerAttribute, error) {
	_, attrs, err := genl.DecodePayload(b, DecodeControllerAttribute)
	return attrs, err
}

// WriteCSV exports families as CSV, flattening the nested operation and
// multicast-group lists out of scope (csv:"-") since gocsv only flattens
// scalar fields by default.
func WriteCSV(families []Family, w io.Writer) error {
	return gocsv.Marshal(families, w)
}
