package glow

import (
	"slices"

	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// Nil pointers and nil slices mark fields the sender did not include.

type NodeContents struct {
	Identifier        *string
	Description       *string
	IsRoot            *bool
	IsOnline          *bool
	SchemaIdentifiers *string
	TemplateReference []int32
}

func (c *NodeContents) encode(w *ber.Writer) error {
	return writeContentsSet(w, func(f *fieldWriter) {
		f.str(nodeIdentifier, c.Identifier)
		f.str(nodeDescription, c.Description)
		f.boolean(nodeIsRoot, c.IsRoot)
		f.boolean(nodeIsOnline, c.IsOnline)
		f.str(nodeSchemaIdentifiers, c.SchemaIdentifiers)
		f.oid(nodeTemplateReference, c.TemplateReference)
	})
}

func decodeNodeContents(r *ber.Reader) (*NodeContents, error) {
	c := &NodeContents{}
	err := decodeContentsSet(r, "node contents", func(n int, r *ber.Reader) (err error) {
		switch n {
		case nodeIdentifier:
			c.Identifier, err = readString(r)
		case nodeDescription:
			c.Description, err = readString(r)
		case nodeIsRoot:
			c.IsRoot, err = readBool(r)
		case nodeIsOnline:
			c.IsOnline, err = readBool(r)
		case nodeSchemaIdentifiers:
			c.SchemaIdentifiers, err = readString(r)
		case nodeTemplateReference:
			c.TemplateReference, err = r.ReadRelativeOID()
		default:
			err = FieldError{Element: "node contents", Tag: ctx(n)}
		}
		return err
	})
	return c, err
}

func (c *NodeContents) merge(o *NodeContents) bool {
	m := mergePtr(&c.Identifier, o.Identifier)
	m = mergePtr(&c.Description, o.Description) || m
	m = mergePtr(&c.IsRoot, o.IsRoot) || m
	m = mergePtr(&c.IsOnline, o.IsOnline) || m
	m = mergePtr(&c.SchemaIdentifiers, o.SchemaIdentifiers) || m
	m = mergeSlice(&c.TemplateReference, o.TemplateReference) || m
	return m
}

// EnumEntry is one key of a parameter enumeration map.
type EnumEntry struct {
	Key   string
	Value int32
}

type StreamDescription struct {
	Format int32
	Offset int32
}

type ParameterContents struct {
	Identifier        *string
	Description       *string
	Value             ber.Value
	Minimum           ber.Value
	Maximum           ber.Value
	Access            *ParameterAccess
	Format            *string
	Enumeration       *string
	Factor            *int32
	IsOnline          *bool
	Formula           *string
	Step              *int32
	Default           ber.Value
	Type              *ParameterType
	StreamIdentifier  *int32
	EnumMap           []EnumEntry
	StreamDescriptor  *StreamDescription
	SchemaIdentifiers *string
	TemplateReference []int32
}

// AccessOrDefault returns the declared access, read when absent.
func (c *ParameterContents) AccessOrDefault() ParameterAccess {
	if c == nil || c.Access == nil {
		return AccessRead
	}
	return *c.Access
}

func (c *ParameterContents) encode(w *ber.Writer) error {
	return writeContentsSet(w, func(f *fieldWriter) {
		f.str(paramIdentifier, c.Identifier)
		f.str(paramDescription, c.Description)
		f.value(paramValue, c.Value)
		f.value(paramMinimum, c.Minimum)
		f.value(paramMaximum, c.Maximum)
		writeIntField(f, paramAccess, c.Access)
		f.str(paramFormat, c.Format)
		f.str(paramEnumeration, c.Enumeration)
		writeIntField(f, paramFactor, c.Factor)
		f.boolean(paramIsOnline, c.IsOnline)
		f.str(paramFormula, c.Formula)
		writeIntField(f, paramStep, c.Step)
		f.value(paramDefault, c.Default)
		writeIntField(f, paramType, c.Type)
		writeIntField(f, paramStreamIdentifier, c.StreamIdentifier)
		if c.EnumMap != nil {
			f.nested(paramEnumMap, func(w *ber.Writer) error { return encodeEnumMap(w, c.EnumMap) })
		}
		if c.StreamDescriptor != nil {
			f.nested(paramStreamDescriptor, func(w *ber.Writer) error { return c.StreamDescriptor.encode(w) })
		}
		f.str(paramSchemaIdentifiers, c.SchemaIdentifiers)
		f.oid(paramTemplateReference, c.TemplateReference)
	})
}

func decodeParameterContents(r *ber.Reader) (*ParameterContents, error) {
	c := &ParameterContents{}
	err := decodeContentsSet(r, "parameter contents", func(n int, r *ber.Reader) (err error) {
		switch n {
		case paramIdentifier:
			c.Identifier, err = readString(r)
		case paramDescription:
			c.Description, err = readString(r)
		case paramValue:
			c.Value, err = r.ReadValue()
		case paramMinimum:
			c.Minimum, err = r.ReadValue()
		case paramMaximum:
			c.Maximum, err = r.ReadValue()
		case paramAccess:
			c.Access, err = readInt[ParameterAccess](r)
		case paramFormat:
			c.Format, err = readString(r)
		case paramEnumeration:
			c.Enumeration, err = readString(r)
		case paramFactor:
			c.Factor, err = readInt[int32](r)
		case paramIsOnline:
			c.IsOnline, err = readBool(r)
		case paramFormula:
			c.Formula, err = readString(r)
		case paramStep:
			c.Step, err = readInt[int32](r)
		case paramDefault:
			c.Default, err = r.ReadValue()
		case paramType:
			c.Type, err = readInt[ParameterType](r)
		case paramStreamIdentifier:
			c.StreamIdentifier, err = readInt[int32](r)
		case paramEnumMap:
			c.EnumMap, err = decodeEnumMap(r)
		case paramStreamDescriptor:
			c.StreamDescriptor, err = decodeStreamDescription(r)
		case paramSchemaIdentifiers:
			c.SchemaIdentifiers, err = readString(r)
		case paramTemplateReference:
			c.TemplateReference, err = r.ReadRelativeOID()
		default:
			err = FieldError{Element: "parameter contents", Tag: ctx(n)}
		}
		return err
	})
	return c, err
}

func (c *ParameterContents) merge(o *ParameterContents) bool {
	m := mergePtr(&c.Identifier, o.Identifier)
	m = mergePtr(&c.Description, o.Description) || m
	m = mergeValue(&c.Value, o.Value) || m
	m = mergeValue(&c.Minimum, o.Minimum) || m
	m = mergeValue(&c.Maximum, o.Maximum) || m
	m = mergePtr(&c.Access, o.Access) || m
	m = mergePtr(&c.Format, o.Format) || m
	m = mergePtr(&c.Enumeration, o.Enumeration) || m
	m = mergePtr(&c.Factor, o.Factor) || m
	m = mergePtr(&c.IsOnline, o.IsOnline) || m
	m = mergePtr(&c.Formula, o.Formula) || m
	m = mergePtr(&c.Step, o.Step) || m
	m = mergeValue(&c.Default, o.Default) || m
	m = mergePtr(&c.Type, o.Type) || m
	m = mergePtr(&c.StreamIdentifier, o.StreamIdentifier) || m
	m = mergeSlice(&c.EnumMap, o.EnumMap) || m
	m = mergePtr(&c.StreamDescriptor, o.StreamDescriptor) || m
	m = mergePtr(&c.SchemaIdentifiers, o.SchemaIdentifiers) || m
	m = mergeSlice(&c.TemplateReference, o.TemplateReference) || m
	return m
}

func encodeEnumMap(w *ber.Writer, entries []EnumEntry) error {
	w.StartSequence(app(appStringIntegerCollection))
	for _, e := range entries {
		w.StartSequence(ctx(0))
		w.StartSequence(app(appStringIntegerPair))
		w.StartSequence(ctx(pairKey))
		w.WriteString(e.Key)
		if err := w.EndSequence(); err != nil {
			return err
		}
		w.StartSequence(ctx(pairValue))
		w.WriteInt(int64(e.Value))
		if err := w.EndSequence(); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

func decodeEnumMap(r *ber.Reader) ([]EnumEntry, error) {
	coll, err := r.GetSequence(app(appStringIntegerCollection))
	if err != nil {
		return nil, err
	}
	out := []EnumEntry{}
	for coll.Remaining() > 0 {
		entry, err := coll.GetSequence(ctx(0))
		if err != nil {
			return nil, err
		}
		pair, err := entry.GetSequence(app(appStringIntegerPair))
		if err != nil {
			return nil, err
		}
		var e EnumEntry
		for pair.Remaining() > 0 {
			tag, err := pair.Peek()
			if err != nil {
				return nil, err
			}
			seq, err := pair.GetSequence(tag)
			if err != nil {
				return nil, err
			}
			switch tag {
			case ctx(pairKey):
				if e.Key, err = seq.ReadString(); err != nil {
					return nil, err
				}
			case ctx(pairValue):
				n, err := seq.ReadInt()
				if err != nil {
					return nil, err
				}
				e.Value = int32(n)
			default:
				return nil, FieldError{Element: "enum entry", Tag: tag}
			}
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *StreamDescription) encode(w *ber.Writer) error {
	w.StartSequence(app(appStreamDescription))
	w.StartSequence(ctx(streamFormat))
	w.WriteInt(int64(s.Format))
	if err := w.EndSequence(); err != nil {
		return err
	}
	w.StartSequence(ctx(streamOffset))
	w.WriteInt(int64(s.Offset))
	if err := w.EndSequence(); err != nil {
		return err
	}
	return w.EndSequence()
}

func decodeStreamDescription(r *ber.Reader) (*StreamDescription, error) {
	seq, err := r.GetSequence(app(appStreamDescription))
	if err != nil {
		return nil, err
	}
	s := &StreamDescription{}
	for seq.Remaining() > 0 {
		tag, err := seq.Peek()
		if err != nil {
			return nil, err
		}
		field, err := seq.GetSequence(tag)
		if err != nil {
			return nil, err
		}
		n, err := field.ReadInt()
		if err != nil {
			return nil, err
		}
		switch tag {
		case ctx(streamFormat):
			s.Format = int32(n)
		case ctx(streamOffset):
			s.Offset = int32(n)
		default:
			return nil, FieldError{Element: "stream description", Tag: tag}
		}
	}
	return s, nil
}

// Label points at the node holding the labels of a matrix.
type Label struct {
	BasePath    []int32
	Description string
}

func (l Label) equal(o Label) bool {
	return l.Description == o.Description && slices.Equal(l.BasePath, o.BasePath)
}

func (l Label) encode(w *ber.Writer) error {
	w.StartSequence(app(appLabel))
	w.StartSequence(ctx(labelBasePath))
	if err := w.WriteRelativeOID(l.BasePath); err != nil {
		return err
	}
	if err := w.EndSequence(); err != nil {
		return err
	}
	w.StartSequence(ctx(labelDescription))
	w.WriteString(l.Description)
	if err := w.EndSequence(); err != nil {
		return err
	}
	return w.EndSequence()
}

func decodeLabel(r *ber.Reader) (Label, error) {
	var l Label
	seq, err := r.GetSequence(app(appLabel))
	if err != nil {
		return l, err
	}
	for seq.Remaining() > 0 {
		tag, err := seq.Peek()
		if err != nil {
			return l, err
		}
		field, err := seq.GetSequence(tag)
		if err != nil {
			return l, err
		}
		switch tag {
		case ctx(labelBasePath):
			l.BasePath, err = field.ReadRelativeOID()
		case ctx(labelDescription):
			l.Description, err = field.ReadString()
		default:
			err = FieldError{Element: "label", Tag: tag}
		}
		if err != nil {
			return l, err
		}
	}
	return l, nil
}

type MatrixContents struct {
	Identifier               *string
	Description              *string
	Type                     *MatrixType
	Mode                     *MatrixMode
	TargetCount              *int32
	SourceCount              *int32
	MaximumTotalConnects     *int32
	MaximumConnectsPerTarget *int32
	// ParametersLocation is a base path or an inline node number.
	ParametersLocation  ber.Value
	GainParameterNumber *int32
	Labels              []Label
	SchemaIdentifiers   *string
	TemplateReference   []int32
}

func (c *MatrixContents) encode(w *ber.Writer) error {
	return writeContentsSet(w, func(f *fieldWriter) {
		f.str(matrixIdentifier, c.Identifier)
		f.str(matrixDescription, c.Description)
		writeIntField(f, matrixType, c.Type)
		writeIntField(f, matrixMode, c.Mode)
		writeIntField(f, matrixTargetCount, c.TargetCount)
		writeIntField(f, matrixSourceCount, c.SourceCount)
		writeIntField(f, matrixMaximumTotalConnects, c.MaximumTotalConnects)
		writeIntField(f, matrixMaximumConnectsPerTarget, c.MaximumConnectsPerTarget)
		f.value(matrixParametersLocation, c.ParametersLocation)
		writeIntField(f, matrixGainParameterNumber, c.GainParameterNumber)
		if c.Labels != nil {
			f.nested(matrixLabels, func(w *ber.Writer) error {
				return writeList(w, len(c.Labels), func(i int) error { return c.Labels[i].encode(w) })
			})
		}
		f.str(matrixSchemaIdentifiers, c.SchemaIdentifiers)
		f.oid(matrixTemplateReference, c.TemplateReference)
	})
}

func decodeMatrixContents(r *ber.Reader) (*MatrixContents, error) {
	c := &MatrixContents{}
	err := decodeContentsSet(r, "matrix contents", func(n int, r *ber.Reader) (err error) {
		switch n {
		case matrixIdentifier:
			c.Identifier, err = readString(r)
		case matrixDescription:
			c.Description, err = readString(r)
		case matrixType:
			c.Type, err = readInt[MatrixType](r)
		case matrixMode:
			c.Mode, err = readInt[MatrixMode](r)
		case matrixTargetCount:
			c.TargetCount, err = readInt[int32](r)
		case matrixSourceCount:
			c.SourceCount, err = readInt[int32](r)
		case matrixMaximumTotalConnects:
			c.MaximumTotalConnects, err = readInt[int32](r)
		case matrixMaximumConnectsPerTarget:
			c.MaximumConnectsPerTarget, err = readInt[int32](r)
		case matrixParametersLocation:
			c.ParametersLocation, err = r.ReadValue()
		case matrixGainParameterNumber:
			c.GainParameterNumber, err = readInt[int32](r)
		case matrixLabels:
			c.Labels = []Label{}
			err = readList(r, func(r *ber.Reader) error {
				l, err := decodeLabel(r)
				if err != nil {
					return err
				}
				c.Labels = append(c.Labels, l)
				return nil
			})
		case matrixSchemaIdentifiers:
			c.SchemaIdentifiers, err = readString(r)
		case matrixTemplateReference:
			c.TemplateReference, err = r.ReadRelativeOID()
		default:
			err = FieldError{Element: "matrix contents", Tag: ctx(n)}
		}
		return err
	})
	return c, err
}

func (c *MatrixContents) merge(o *MatrixContents) bool {
	m := mergePtr(&c.Identifier, o.Identifier)
	m = mergePtr(&c.Description, o.Description) || m
	m = mergePtr(&c.Type, o.Type) || m
	m = mergePtr(&c.Mode, o.Mode) || m
	m = mergePtr(&c.TargetCount, o.TargetCount) || m
	m = mergePtr(&c.SourceCount, o.SourceCount) || m
	m = mergePtr(&c.MaximumTotalConnects, o.MaximumTotalConnects) || m
	m = mergePtr(&c.MaximumConnectsPerTarget, o.MaximumConnectsPerTarget) || m
	m = mergeValue(&c.ParametersLocation, o.ParametersLocation) || m
	m = mergePtr(&c.GainParameterNumber, o.GainParameterNumber) || m
	if o.Labels != nil && (c.Labels == nil || !slices.EqualFunc(c.Labels, o.Labels, Label.equal)) {
		c.Labels = slices.Clone(o.Labels)
		m = true
	}
	m = mergePtr(&c.SchemaIdentifiers, o.SchemaIdentifiers) || m
	m = mergeSlice(&c.TemplateReference, o.TemplateReference) || m
	return m
}

// FunctionArgument describes one argument or result slot of a function.
type FunctionArgument struct {
	Type ParameterType
	Name string
}

func (a FunctionArgument) encode(w *ber.Writer) error {
	w.StartSequence(app(appFunctionArgument))
	w.StartSequence(ctx(argumentType))
	w.WriteInt(int64(a.Type))
	if err := w.EndSequence(); err != nil {
		return err
	}
	if a.Name != "" {
		w.StartSequence(ctx(argumentName))
		w.WriteString(a.Name)
		if err := w.EndSequence(); err != nil {
			return err
		}
	}
	return w.EndSequence()
}

func decodeFunctionArgument(r *ber.Reader) (FunctionArgument, error) {
	var a FunctionArgument
	seq, err := r.GetSequence(app(appFunctionArgument))
	if err != nil {
		return a, err
	}
	for seq.Remaining() > 0 {
		tag, err := seq.Peek()
		if err != nil {
			return a, err
		}
		field, err := seq.GetSequence(tag)
		if err != nil {
			return a, err
		}
		switch tag {
		case ctx(argumentType):
			var n int64
			n, err = field.ReadInt()
			a.Type = ParameterType(n)
		case ctx(argumentName):
			a.Name, err = field.ReadString()
		default:
			err = FieldError{Element: "function argument", Tag: tag}
		}
		if err != nil {
			return a, err
		}
	}
	return a, nil
}

type FunctionContents struct {
	Identifier        *string
	Description       *string
	Arguments         []FunctionArgument
	Result            []FunctionArgument
	TemplateReference []int32
}

func encodeArguments(w *ber.Writer, args []FunctionArgument) error {
	return writeList(w, len(args), func(i int) error { return args[i].encode(w) })
}

func decodeArguments(r *ber.Reader) ([]FunctionArgument, error) {
	out := []FunctionArgument{}
	err := readList(r, func(r *ber.Reader) error {
		a, err := decodeFunctionArgument(r)
		if err != nil {
			return err
		}
		out = append(out, a)
		return nil
	})
	return out, err
}

func (c *FunctionContents) encode(w *ber.Writer) error {
	return writeContentsSet(w, func(f *fieldWriter) {
		f.str(functionIdentifier, c.Identifier)
		f.str(functionDescription, c.Description)
		if c.Arguments != nil {
			f.nested(functionArguments, func(w *ber.Writer) error { return encodeArguments(w, c.Arguments) })
		}
		if c.Result != nil {
			f.nested(functionResult, func(w *ber.Writer) error { return encodeArguments(w, c.Result) })
		}
		f.oid(functionTemplateReference, c.TemplateReference)
	})
}

func decodeFunctionContents(r *ber.Reader) (*FunctionContents, error) {
	c := &FunctionContents{}
	err := decodeContentsSet(r, "function contents", func(n int, r *ber.Reader) (err error) {
		switch n {
		case functionIdentifier:
			c.Identifier, err = readString(r)
		case functionDescription:
			c.Description, err = readString(r)
		case functionArguments:
			c.Arguments, err = decodeArguments(r)
		case functionResult:
			c.Result, err = decodeArguments(r)
		case functionTemplateReference:
			c.TemplateReference, err = r.ReadRelativeOID()
		default:
			err = FieldError{Element: "function contents", Tag: ctx(n)}
		}
		return err
	})
	return c, err
}

func (c *FunctionContents) merge(o *FunctionContents) bool {
	m := mergePtr(&c.Identifier, o.Identifier)
	m = mergePtr(&c.Description, o.Description) || m
	m = mergeSlice(&c.Arguments, o.Arguments) || m
	m = mergeSlice(&c.Result, o.Result) || m
	m = mergeSlice(&c.TemplateReference, o.TemplateReference) || m
	return m
}
