package loader

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/protocol/ber"
	"gopkg.in/yaml.v3"
)

var ErrInvalidDescription = errors.New("loader: invalid description")

// LoadFile reads a YAML or JSON tree file.
func LoadFile(path string) (*glow.Root, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	root, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return root, nil
}

// Parse accepts either a bare list of elements or a document with a
// children list. JSON input is read through the YAML decoder.
func Parse(data []byte) (*glow.Root, error) {
	var doc Document
	trimmed := bytes.TrimSpace(data)
	if bytes.HasPrefix(trimmed, []byte("[")) || bytes.HasPrefix(trimmed, []byte("- ")) {
		if err := yaml.Unmarshal(data, &doc.Children); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
		}
	} else if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescription, err)
	}
	return Build(doc.Children)
}

// Build turns descriptions into a tree. Elements without a number take their
// position in the list.
func Build(children []Description) (*glow.Root, error) {
	root := glow.NewRoot()
	if err := addChildren(root, nil, children); err != nil {
		return nil, err
	}
	return root, nil
}

func addChildren(parent glow.Element, prefix []int32, children []Description) error {
	seen := make(map[int32]bool, len(children))
	for i, d := range children {
		number := int32(i)
		if d.Number != nil {
			number = *d.Number
		}
		path := append(append([]int32{}, prefix...), number)
		if seen[number] {
			return descriptionError(path, "duplicate number")
		}
		seen[number] = true
		el, err := build(d, number, path)
		if err != nil {
			return err
		}
		parent.AddChild(el)
		if len(d.Children) == 0 {
			continue
		}
		if el.Kind() != glow.KindNode {
			return descriptionError(path, "only nodes carry children")
		}
		if err := addChildren(el, path, d.Children); err != nil {
			return err
		}
	}
	return nil
}

func descriptionError(path []int32, reason string) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidDescription, glow.FormatPath(path), reason)
}

func kindOf(d Description) string {
	if d.Kind != "" {
		return d.Kind
	}
	if _, ok := glow.ParseMatrixType(d.Type); ok {
		return KindMatrix
	}
	switch {
	case d.TargetCount != nil || d.SourceCount != nil || d.Mode != "" ||
		d.Targets != nil || d.Sources != nil || d.Connections != nil:
		return KindMatrix
	case d.Arguments != nil || d.Result != nil:
		return KindFunction
	case d.Value != nil || d.Type != "" || d.Access != "" || d.StreamIdentifier != nil:
		return KindParameter
	}
	return KindNode
}

func build(d Description, number int32, path []int32) (glow.Element, error) {
	switch kindOf(d) {
	case KindNode:
		n := glow.NewNode(number)
		n.Contents = &glow.NodeContents{
			Identifier:  optString(d.Identifier),
			Description: optString(d.Description),
			IsOnline:    d.IsOnline,
		}
		return n, nil
	case KindParameter:
		p := glow.NewParameter(number)
		c, err := parameterContents(d)
		if err != nil {
			return nil, descriptionError(path, err.Error())
		}
		p.Contents = c
		return p, nil
	case KindMatrix:
		m, err := buildMatrix(d, number)
		if err != nil {
			return nil, descriptionError(path, err.Error())
		}
		return m, nil
	case KindFunction:
		f := glow.NewFunction(number)
		args, err := arguments(d.Arguments)
		if err != nil {
			return nil, descriptionError(path, err.Error())
		}
		result, err := arguments(d.Result)
		if err != nil {
			return nil, descriptionError(path, err.Error())
		}
		f.Contents = &glow.FunctionContents{
			Identifier:  optString(d.Identifier),
			Description: optString(d.Description),
			Arguments:   args,
			Result:      result,
		}
		return f, nil
	default:
		return nil, descriptionError(path, "unknown kind "+strconv.Quote(d.Kind))
	}
}

func parameterContents(d Description) (*glow.ParameterContents, error) {
	c := &glow.ParameterContents{
		Identifier:       optString(d.Identifier),
		Description:      optString(d.Description),
		Format:           optString(d.Format),
		Formula:          optString(d.Formula),
		Enumeration:      optString(d.Enumeration),
		Factor:           d.Factor,
		Step:             d.Step,
		IsOnline:         d.IsOnline,
		StreamIdentifier: d.StreamIdentifier,
	}
	var ptype *glow.ParameterType
	if d.Type != "" {
		t, ok := glow.ParseParameterType(d.Type)
		if !ok {
			return nil, fmt.Errorf("unknown parameter type %q", d.Type)
		}
		ptype = &t
		c.Type = ptype
	}
	if d.Access != "" {
		a, ok := glow.ParseParameterAccess(d.Access)
		if !ok {
			return nil, fmt.Errorf("unknown access %q", d.Access)
		}
		c.Access = &a
	}
	var err error
	if c.Value, err = toValue(d.Value, ptype); err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}
	if c.Minimum, err = toValue(d.Minimum, ptype); err != nil {
		return nil, fmt.Errorf("minimum: %w", err)
	}
	if c.Maximum, err = toValue(d.Maximum, ptype); err != nil {
		return nil, fmt.Errorf("maximum: %w", err)
	}
	if c.Default, err = toValue(d.Default, ptype); err != nil {
		return nil, fmt.Errorf("default: %w", err)
	}
	for _, e := range d.EnumMap {
		c.EnumMap = append(c.EnumMap, glow.EnumEntry{Key: e.Key, Value: e.Value})
	}
	if d.StreamDescriptor != nil {
		c.StreamDescriptor = &glow.StreamDescription{
			Format: d.StreamDescriptor.Format,
			Offset: d.StreamDescriptor.Offset,
		}
	}
	return c, nil
}

func buildMatrix(d Description, number int32) (*glow.Matrix, error) {
	m := glow.NewMatrix(number)
	c := &glow.MatrixContents{
		Identifier:               optString(d.Identifier),
		Description:              optString(d.Description),
		TargetCount:              d.TargetCount,
		SourceCount:              d.SourceCount,
		MaximumTotalConnects:     d.MaximumTotalConnects,
		MaximumConnectsPerTarget: d.MaximumConnectsPerTarget,
	}
	if d.Type != "" {
		t, ok := glow.ParseMatrixType(d.Type)
		if !ok {
			return nil, fmt.Errorf("unknown matrix type %q", d.Type)
		}
		c.Type = &t
	}
	if d.Mode != "" {
		mode, ok := glow.ParseMatrixMode(d.Mode)
		if !ok {
			return nil, fmt.Errorf("unknown matrix mode %q", d.Mode)
		}
		c.Mode = &mode
	}
	for _, l := range d.Labels {
		base, err := glow.ParsePath(l.BasePath)
		if err != nil {
			return nil, fmt.Errorf("label base path: %w", err)
		}
		c.Labels = append(c.Labels, glow.Label{BasePath: base, Description: l.Description})
	}
	m.Contents = c
	if m.Mode() == glow.MatrixNonLinear {
		m.Targets = d.Targets
		m.Sources = d.Sources
		if c.TargetCount == nil {
			c.TargetCount = glow.Ptr(int32(len(d.Targets)))
		}
		if c.SourceCount == nil {
			c.SourceCount = glow.Ptr(int32(len(d.Sources)))
		}
	}
	if d.DefaultSources != nil {
		m.DefaultSources = make(map[int32]int32, len(d.DefaultSources))
		for k, v := range d.DefaultSources {
			t, err := signalKey(k)
			if err != nil {
				return nil, err
			}
			m.DefaultSources[t] = v
		}
	}
	keys := make([]string, 0, len(d.Connections))
	for k := range d.Connections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t, err := signalKey(k)
		if err != nil {
			return nil, err
		}
		if err := m.ValidateConnection(t, d.Connections[k]); err != nil {
			return nil, err
		}
		m.SetSources(t, d.Connections[k])
	}
	for _, t := range d.Locked {
		m.Lock(t)
	}
	return m, nil
}

func signalKey(k string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(k), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("signal id %q: %w", k, err)
	}
	return int32(n), nil
}

func arguments(in []Argument) ([]glow.FunctionArgument, error) {
	if in == nil {
		return nil, nil
	}
	out := make([]glow.FunctionArgument, 0, len(in))
	for _, a := range in {
		t, ok := glow.ParseParameterType(a.Type)
		if !ok {
			return nil, fmt.Errorf("unknown argument type %q", a.Type)
		}
		out = append(out, glow.FunctionArgument{Type: t, Name: a.Name})
	}
	return out, nil
}

// toValue converts a decoded scalar, coerced towards the declared type.
func toValue(raw any, t *glow.ParameterType) (ber.Value, error) {
	if raw == nil {
		return ber.Value{}, nil
	}
	declared := glow.ParameterNull
	if t != nil {
		declared = *t
	}
	switch v := raw.(type) {
	case int:
		if declared == glow.ParameterReal {
			return ber.RealValue(float64(v)), nil
		}
		return ber.IntegerValue(int64(v)), nil
	case float64:
		integral := v == math.Trunc(v) && math.Abs(v) < math.MaxInt64
		if integral && (declared == glow.ParameterInteger || declared == glow.ParameterEnum) {
			return ber.IntegerValue(int64(v)), nil
		}
		return ber.RealValue(v), nil
	case string:
		if declared == glow.ParameterOctets {
			b, err := hex.DecodeString(v)
			if err != nil {
				return ber.Value{}, err
			}
			return ber.OctetsValue(b), nil
		}
		return ber.StringValue(v), nil
	default:
		return ber.ValueOf(v)
	}
}

func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
