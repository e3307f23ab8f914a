package msgs

import (
	"errors"
	"fmt"

	"github.com/golang/protobuf/proto"
)

// TypeID masks
const (
	TypeIDMaskKind  uint32 = 0x80000000
	TypeIDMaskGroup uint32 = 0x7fff0000
	TypeIDMaskID    uint32 = 0x0000ffff
	TypeIDMaskReply uint32 = 0x00008000
)

// Message Kinds
const (
	TypeIDKindCommand uint32 = 0x00000000
	TypeIDKindEvent   uint32 = 0x80000000
)

// TypeID Groups
const (
	GroupCommand uint32 = 0x00000000
	GroupMAC     uint32 = 0x004b0000
)

// TypeIDs
const (
	CommandErrTypeID   uint32 = GroupCommand | TypeIDMaskReply | 0x0001
	AppEventTypeID     uint32 = GroupMAC | 0x0001
	ServiceEventTypeID uint32 = TypeIDKindEvent | GroupMAC | 0x0001
)

// ErrUnknownType indicates unknown type id.
type ErrUnknownType struct {
	TypeID uint32
}

// Error implements error.
func (e *ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown type: %x", e.TypeID)
}

var (
	// ErrNotSerializable indicates the message has no type id.
	ErrNotSerializable = errors.New("not serializable message")
)

// Message is a proto message with a wire type id.
type Message interface {
	proto.Message
	TypeID() uint32
}

// TypeID implements Message.
func (m *AppEventMsg) TypeID() uint32 { return AppEventTypeID }

// TypeID implements Message.
func (m *ServiceEventMsg) TypeID() uint32 { return ServiceEventTypeID }

// TypeID implements Message.
func (m *CommandErr) TypeID() uint32 { return CommandErrTypeID }

// Error implements error.
func (m *CommandErr) Error() string { return m.Message }

// NewCommandErr creates a CommandErr from an error.
func NewCommandErr(err error) *CommandErr {
	return &CommandErr{Message: err.Error()}
}

// MessageTypes maps type ids to message constructors.
var MessageTypes = map[uint32]func() Message{
	CommandErrTypeID:   func() Message { return &CommandErr{} },
	AppEventTypeID:     func() Message { return &AppEventMsg{} },
	ServiceEventTypeID: func() Message { return &ServiceEventMsg{} },
}

// TypedFrom wraps msg.
func TypedFrom(msg proto.Message) (*Typed, error) {
	m, ok := msg.(Message)
	if !ok {
		return nil, ErrNotSerializable
	}
	data, err := proto.Marshal(m)
	if err != nil {
		return nil, err
	}
	return &Typed{TypeId: m.TypeID(), Message: data}, nil
}

// Decode decodes the wrapped message.
func (m *Typed) Decode() (Message, error) {
	newMsg, ok := MessageTypes[m.TypeId]
	if !ok {
		return nil, &ErrUnknownType{TypeID: m.TypeId}
	}
	msg := newMsg()
	if err := proto.Unmarshal(m.Message, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// Encode encodes the Typed to bytes.
func (m *Typed) Encode() ([]byte, error) {
	return proto.Marshal(m)
}

// Kind gets message kind from type ID.
func (m *Typed) Kind() uint32 {
	return m.TypeId & TypeIDMaskKind
}

// IsCommand determines if the message is a command.
func (m *Typed) IsCommand() bool {
	return m.Kind() == TypeIDKindCommand
}

// IsEvent determines if the message is an event.
func (m *Typed) IsEvent() bool {
	return m.Kind() == TypeIDKindEvent
}

// DecodeTyped decodes bytes into Typed.
func DecodeTyped(data []byte) (*Typed, error) {
	var typed Typed
	if err := proto.Unmarshal(data, &typed); err != nil {
		return nil, err
	}
	return &typed, nil
}
