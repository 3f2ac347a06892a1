package loader

import (
	"encoding/hex"
	"strconv"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/protocol/ber"
)

// ExportRoot describes every element below root.
func ExportRoot(root *glow.Root) Document {
	return Document{Children: exportChildren(root)}
}

// Export describes e and its subtree. Commands are skipped.
func Export(e glow.Element) Description {
	d := Description{Number: glow.Ptr(e.Number())}
	switch el := e.(type) {
	case *glow.Node:
		d.Kind = KindNode
		if c := el.Contents; c != nil {
			d.Identifier = deref(c.Identifier)
			d.Description = deref(c.Description)
			d.IsOnline = c.IsOnline
		}
	case *glow.Parameter:
		d.Kind = KindParameter
		exportParameter(&d, el.Contents)
	case *glow.Matrix:
		d.Kind = KindMatrix
		exportMatrix(&d, el)
	case *glow.Function:
		d.Kind = KindFunction
		if c := el.Contents; c != nil {
			d.Identifier = deref(c.Identifier)
			d.Description = deref(c.Description)
			d.Arguments = exportArguments(c.Arguments)
			d.Result = exportArguments(c.Result)
		}
	}
	d.Children = exportChildren(e)
	return d
}

func exportChildren(e glow.Element) []Description {
	var out []Description
	for _, child := range e.Children() {
		if child.Kind() == glow.KindCommand || child.Kind() == glow.KindTemplate {
			continue
		}
		out = append(out, Export(child))
	}
	return out
}

func exportParameter(d *Description, c *glow.ParameterContents) {
	if c == nil {
		return
	}
	d.Identifier = deref(c.Identifier)
	d.Description = deref(c.Description)
	d.IsOnline = c.IsOnline
	if c.Type != nil {
		d.Type = c.Type.String()
	}
	if c.Access != nil {
		d.Access = c.Access.String()
	}
	d.Value = fromValue(c.Value)
	d.Minimum = fromValue(c.Minimum)
	d.Maximum = fromValue(c.Maximum)
	d.Default = fromValue(c.Default)
	d.Format = deref(c.Format)
	d.Formula = deref(c.Formula)
	d.Enumeration = deref(c.Enumeration)
	d.Factor = c.Factor
	d.Step = c.Step
	d.StreamIdentifier = c.StreamIdentifier
	for _, e := range c.EnumMap {
		d.EnumMap = append(d.EnumMap, EnumPair{Key: e.Key, Value: e.Value})
	}
	if c.StreamDescriptor != nil {
		d.StreamDescriptor = &StreamDescriptor{
			Format: c.StreamDescriptor.Format,
			Offset: c.StreamDescriptor.Offset,
		}
	}
}

func exportMatrix(d *Description, m *glow.Matrix) {
	if c := m.Contents; c != nil {
		d.Identifier = deref(c.Identifier)
		d.Description = deref(c.Description)
		d.TargetCount = c.TargetCount
		d.SourceCount = c.SourceCount
		d.MaximumTotalConnects = c.MaximumTotalConnects
		d.MaximumConnectsPerTarget = c.MaximumConnectsPerTarget
		if c.Type != nil {
			d.Type = c.Type.String()
		}
		if c.Mode != nil {
			d.Mode = c.Mode.String()
		}
		for _, l := range c.Labels {
			d.Labels = append(d.Labels, LabelDescription{
				BasePath:    glow.FormatPath(l.BasePath),
				Description: l.Description,
			})
		}
	}
	d.Targets = m.Targets
	d.Sources = m.Sources
	for _, conn := range m.Connections() {
		if conn.IsLocked() {
			d.Locked = append(d.Locked, conn.Target)
		}
		if len(conn.Sources) == 0 {
			continue
		}
		if d.Connections == nil {
			d.Connections = make(map[string][]int32)
		}
		d.Connections[strconv.Itoa(int(conn.Target))] = conn.Sources
	}
	if m.DefaultSources != nil {
		d.DefaultSources = make(map[string]int32, len(m.DefaultSources))
		for t, s := range m.DefaultSources {
			d.DefaultSources[strconv.Itoa(int(t))] = s
		}
	}
}

func exportArguments(in []glow.FunctionArgument) []Argument {
	if in == nil {
		return nil
	}
	out := make([]Argument, 0, len(in))
	for _, a := range in {
		out = append(out, Argument{Type: a.Type.String(), Name: a.Name})
	}
	return out
}

func fromValue(v ber.Value) any {
	if v.Type == ber.ValueOctets {
		return hex.EncodeToString(v.Octets)
	}
	return v.Interface()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
