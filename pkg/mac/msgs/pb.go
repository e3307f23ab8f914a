package msgs

import "github.com/golang/protobuf/proto"

// Typed wraps a message with type information.
type Typed struct {
	TypeId   uint32 `protobuf:"varint,1,opt,name=type_id,json=typeId,proto3" json:"type_id,omitempty"`
	Sequence uint32 `protobuf:"varint,2,opt,name=sequence,proto3" json:"sequence,omitempty"`
	Message  []byte `protobuf:"bytes,3,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *Typed) Reset()         { *m = Typed{} }
func (m *Typed) String() string { return proto.CompactTextString(m) }
func (*Typed) ProtoMessage()    {}

// AppEventMsg carries an application event.
type AppEventMsg struct {
	Id          uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	Flag        uint32 `protobuf:"varint,2,opt,name=flag,proto3" json:"flag,omitempty"`
	BitLen      uint32 `protobuf:"varint,3,opt,name=bit_len,json=bitLen,proto3" json:"bit_len,omitempty"`
	Data        []byte `protobuf:"bytes,4,opt,name=data,proto3" json:"data,omitempty"`
	Profile     uint32 `protobuf:"varint,5,opt,name=profile,proto3" json:"profile,omitempty"`
	RetxNb      int32  `protobuf:"varint,6,opt,name=retx_nb,json=retxNb,proto3" json:"retx_nb,omitempty"`
	NbParallel  uint32 `protobuf:"varint,7,opt,name=nb_parallel,json=nbParallel,proto3" json:"nb_parallel,omitempty"`
	RetxPeriodS uint32 `protobuf:"varint,8,opt,name=retx_period_s,json=retxPeriodS,proto3" json:"retx_period_s,omitempty"`
}

func (m *AppEventMsg) Reset()         { *m = AppEventMsg{} }
func (m *AppEventMsg) String() string { return proto.CompactTextString(m) }
func (*AppEventMsg) ProtoMessage()    {}

// ServiceEventMsg carries a service event.
type ServiceEventMsg struct {
	Id     uint32 `protobuf:"varint,1,opt,name=id,proto3" json:"id,omitempty"`
	AppEvt uint32 `protobuf:"varint,2,opt,name=app_evt,json=appEvt,proto3" json:"app_evt,omitempty"`
	BitLen uint32 `protobuf:"varint,3,opt,name=bit_len,json=bitLen,proto3" json:"bit_len,omitempty"`
	BcMc   uint32 `protobuf:"varint,4,opt,name=bc_mc,json=bcMc,proto3" json:"bc_mc,omitempty"`
	Data   []byte `protobuf:"bytes,5,opt,name=data,proto3" json:"data,omitempty"`
}

func (m *ServiceEventMsg) Reset()         { *m = ServiceEventMsg{} }
func (m *ServiceEventMsg) String() string { return proto.CompactTextString(m) }
func (*ServiceEventMsg) ProtoMessage()    {}

// CommandErr reports a command the peer could not decode.
type CommandErr struct {
	Message string `protobuf:"bytes,1,opt,name=message,proto3" json:"message,omitempty"`
}

func (m *CommandErr) Reset()         { *m = CommandErr{} }
func (m *CommandErr) String() string { return proto.CompactTextString(m) }
func (*CommandErr) ProtoMessage()    {}
