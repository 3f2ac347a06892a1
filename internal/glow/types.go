package glow

// Kind is the closed set of element variants.
type Kind uint8

const (
	KindRoot Kind = iota
	KindNode
	KindParameter
	KindMatrix
	KindFunction
	KindTemplate
	KindCommand
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindNode:
		return "node"
	case KindParameter:
		return "parameter"
	case KindMatrix:
		return "matrix"
	case KindFunction:
		return "function"
	case KindTemplate:
		return "template"
	case KindCommand:
		return "command"
	default:
		return "unknown"
	}
}

type ParameterType int32

const (
	ParameterNull    ParameterType = 0
	ParameterInteger ParameterType = 1
	ParameterReal    ParameterType = 2
	ParameterString  ParameterType = 3
	ParameterBoolean ParameterType = 4
	ParameterTrigger ParameterType = 5
	ParameterEnum    ParameterType = 6
	ParameterOctets  ParameterType = 7
)

var parameterTypeNames = map[ParameterType]string{
	ParameterNull:    "null",
	ParameterInteger: "integer",
	ParameterReal:    "real",
	ParameterString:  "string",
	ParameterBoolean: "boolean",
	ParameterTrigger: "trigger",
	ParameterEnum:    "enum",
	ParameterOctets:  "octets",
}

func (t ParameterType) String() string {
	if s, ok := parameterTypeNames[t]; ok {
		return s
	}
	return "unknown"
}

// ParseParameterType maps a lower-case name to its type.
func ParseParameterType(s string) (ParameterType, bool) {
	for k, v := range parameterTypeNames {
		if v == s {
			return k, true
		}
	}
	return 0, false
}

type ParameterAccess int32

const (
	AccessNone      ParameterAccess = 0
	AccessRead      ParameterAccess = 1
	AccessWrite     ParameterAccess = 2
	AccessReadWrite ParameterAccess = 3
)

var accessNames = map[ParameterAccess]string{
	AccessNone:      "none",
	AccessRead:      "read",
	AccessWrite:     "write",
	AccessReadWrite: "readWrite",
}

func (a ParameterAccess) String() string {
	if s, ok := accessNames[a]; ok {
		return s
	}
	return "unknown"
}

func ParseParameterAccess(s string) (ParameterAccess, bool) {
	for k, v := range accessNames {
		if v == s {
			return k, true
		}
	}
	return 0, false
}

// CanWrite reports whether a consumer may set the value.
func (a ParameterAccess) CanWrite() bool {
	return a == AccessWrite || a == AccessReadWrite
}

type MatrixType int32

const (
	MatrixOneToN   MatrixType = 0
	MatrixOneToOne MatrixType = 1
	MatrixNToN     MatrixType = 2
)

func (t MatrixType) String() string {
	switch t {
	case MatrixOneToN:
		return "oneToN"
	case MatrixOneToOne:
		return "oneToOne"
	case MatrixNToN:
		return "nToN"
	default:
		return "unknown"
	}
}

func ParseMatrixType(s string) (MatrixType, bool) {
	switch s {
	case "oneToN":
		return MatrixOneToN, true
	case "oneToOne":
		return MatrixOneToOne, true
	case "nToN":
		return MatrixNToN, true
	}
	return 0, false
}

type MatrixMode int32

const (
	MatrixLinear    MatrixMode = 0
	MatrixNonLinear MatrixMode = 1
)

func (m MatrixMode) String() string {
	switch m {
	case MatrixLinear:
		return "linear"
	case MatrixNonLinear:
		return "nonLinear"
	default:
		return "unknown"
	}
}

func ParseMatrixMode(s string) (MatrixMode, bool) {
	switch s {
	case "linear":
		return MatrixLinear, true
	case "nonLinear":
		return MatrixNonLinear, true
	}
	return 0, false
}

// Operation is the requested change of a connection. Request only.
type Operation int32

const (
	OperationAbsolute   Operation = 0
	OperationConnect    Operation = 1
	OperationDisconnect Operation = 2
)

func (o Operation) String() string {
	switch o {
	case OperationAbsolute:
		return "absolute"
	case OperationConnect:
		return "connect"
	case OperationDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Disposition is the provider verdict on a connection. Response only.
type Disposition int32

const (
	DispositionTally    Disposition = 0
	DispositionModified Disposition = 1
	DispositionPending  Disposition = 2
	DispositionLocked   Disposition = 3
)

func (d Disposition) String() string {
	switch d {
	case DispositionTally:
		return "tally"
	case DispositionModified:
		return "modified"
	case DispositionPending:
		return "pending"
	case DispositionLocked:
		return "locked"
	default:
		return "unknown"
	}
}

type CommandType int32

const (
	CommandSubscribe    CommandType = 30
	CommandUnsubscribe  CommandType = 31
	CommandGetDirectory CommandType = 32
	CommandInvoke       CommandType = 33
)

func (c CommandType) String() string {
	switch c {
	case CommandSubscribe:
		return "subscribe"
	case CommandUnsubscribe:
		return "unsubscribe"
	case CommandGetDirectory:
		return "getDirectory"
	case CommandInvoke:
		return "invoke"
	default:
		return "unknown"
	}
}

func (c CommandType) valid() bool {
	return c >= CommandSubscribe && c <= CommandInvoke
}

// FieldFlags selects which contents fields a GetDirectory returns.
type FieldFlags int32

const (
	FieldsSparse      FieldFlags = -2
	FieldsAll         FieldFlags = -1
	FieldsDefault     FieldFlags = 0
	FieldsIdentifier  FieldFlags = 1
	FieldsDescription FieldFlags = 2
	FieldsTree        FieldFlags = 3
	FieldsValue       FieldFlags = 4
	FieldsConnections FieldFlags = 5
)

// Ptr returns a pointer to v, for optional contents fields.
func Ptr[T any](v T) *T {
	return &v
}
