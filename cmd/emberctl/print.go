package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/danmuck/emberctl/internal/glow"
	"github.com/danmuck/emberctl/internal/loader"
	"github.com/danmuck/emberctl/internal/protocol/ber"
	"gopkg.in/yaml.v3"
)

// writeMessage prints every element, result and stream entry of msg.
func writeMessage(w io.Writer, msg *glow.Root) {
	for _, child := range msg.Children() {
		writeTree(w, child, 0)
	}
	if res := msg.GetResult(); res != nil {
		fmt.Fprintf(w, "result %d success=%t %s\n", res.ID, res.Succeeded(), formatValues(res.Result))
	}
	for _, s := range msg.Streams {
		fmt.Fprintf(w, "stream %d = %s\n", s.Identifier, s.Value.Format())
	}
}

func writeTree(w io.Writer, e glow.Element, depth int) {
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s\n", indent, describe(e))
	if m, ok := e.(*glow.Matrix); ok {
		for _, c := range m.Connections() {
			line := fmt.Sprintf("%s  target %d <- %v", indent, c.Target, c.Sources)
			if c.Operation != nil {
				line += " op=" + c.Operation.String()
			}
			if c.Disposition != nil {
				line += " " + c.Disposition.String()
			}
			if c.IsLocked() {
				line += " locked"
			}
			fmt.Fprintln(w, line)
		}
	}
	for _, child := range e.Children() {
		writeTree(w, child, depth+1)
	}
}

func describe(e glow.Element) string {
	switch v := e.(type) {
	case *glow.Command:
		return "command " + v.Type.String()
	case *glow.Node:
		return fmt.Sprintf("%s node %s", e.PathString(), v.Identifier())
	case *glow.Parameter:
		out := fmt.Sprintf("%s parameter %s", e.PathString(), v.Identifier())
		if v.Contents == nil {
			return out
		}
		if val := v.Value(); val.IsSet() {
			out += " = " + val.Format()
		}
		var attrs []string
		if v.Contents.Type != nil {
			attrs = append(attrs, v.Contents.Type.String())
		}
		if v.Contents.Access != nil {
			attrs = append(attrs, v.Contents.Access.String())
		}
		if v.Contents.StreamIdentifier != nil {
			attrs = append(attrs, fmt.Sprintf("stream %d", *v.Contents.StreamIdentifier))
		}
		if len(attrs) > 0 {
			out += " [" + strings.Join(attrs, ", ") + "]"
		}
		return out
	case *glow.Matrix:
		return fmt.Sprintf("%s matrix %s [%s, %s, %dx%d]",
			e.PathString(), v.Identifier(), v.Type(), v.Mode(), v.TargetCount(), v.SourceCount())
	case *glow.Function:
		out := fmt.Sprintf("%s function %s", e.PathString(), v.Identifier())
		if v.Contents != nil {
			out += fmt.Sprintf(" (%s) -> (%s)", formatArgs(v.Contents.Arguments), formatArgs(v.Contents.Result))
		}
		return out
	default:
		return fmt.Sprintf("%s %s", e.PathString(), e.Kind())
	}
}

func formatArgs(args []glow.FunctionArgument) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		parts = append(parts, a.Name+" "+a.Type.String())
	}
	return strings.Join(parts, ", ")
}

func formatValues(values []ber.Value) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, v.Format())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// writeExport prints e in the declarative loader shape.
func writeExport(w io.Writer, e glow.Element, format string) error {
	var doc any
	if root, ok := e.(*glow.Root); ok {
		doc = loader.ExportRoot(root)
	} else {
		doc = loader.Export(e)
	}
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		if root, ok := e.(*glow.Root); ok {
			writeMessage(w, root)
		} else {
			writeTree(w, e, 0)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (text, yaml or json)", format)
	}
}
