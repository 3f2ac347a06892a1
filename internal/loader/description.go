// Package loader reads declarative provider trees from YAML or JSON files
// and exports live trees back into the same shape.
package loader

// Description declares one element. The element kind is taken from Kind when
// set, otherwise inferred from the fields present.
type Description struct {
	Kind        string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Number      *int32 `json:"number,omitempty" yaml:"number,omitempty"`
	Identifier  string `json:"identifier,omitempty" yaml:"identifier,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	IsOnline    *bool  `json:"isOnline,omitempty" yaml:"isOnline,omitempty"`

	// Type names the parameter type, or the topology of a matrix.
	Type             string            `json:"type,omitempty" yaml:"type,omitempty"`
	Value            any               `json:"value,omitempty" yaml:"value,omitempty"`
	Access           string            `json:"access,omitempty" yaml:"access,omitempty"`
	Minimum          any               `json:"minimum,omitempty" yaml:"minimum,omitempty"`
	Maximum          any               `json:"maximum,omitempty" yaml:"maximum,omitempty"`
	Default          any               `json:"default,omitempty" yaml:"default,omitempty"`
	Format           string            `json:"format,omitempty" yaml:"format,omitempty"`
	Formula          string            `json:"formula,omitempty" yaml:"formula,omitempty"`
	Enumeration      string            `json:"enumeration,omitempty" yaml:"enumeration,omitempty"`
	Factor           *int32            `json:"factor,omitempty" yaml:"factor,omitempty"`
	Step             *int32            `json:"step,omitempty" yaml:"step,omitempty"`
	EnumMap          []EnumPair        `json:"enumMap,omitempty" yaml:"enumMap,omitempty"`
	StreamIdentifier *int32            `json:"streamIdentifier,omitempty" yaml:"streamIdentifier,omitempty"`
	StreamDescriptor *StreamDescriptor `json:"streamDescriptor,omitempty" yaml:"streamDescriptor,omitempty"`

	Mode                     string             `json:"mode,omitempty" yaml:"mode,omitempty"`
	TargetCount              *int32             `json:"targetCount,omitempty" yaml:"targetCount,omitempty"`
	SourceCount              *int32             `json:"sourceCount,omitempty" yaml:"sourceCount,omitempty"`
	MaximumTotalConnects     *int32             `json:"maximumTotalConnects,omitempty" yaml:"maximumTotalConnects,omitempty"`
	MaximumConnectsPerTarget *int32             `json:"maximumConnectsPerTarget,omitempty" yaml:"maximumConnectsPerTarget,omitempty"`
	Targets                  []int32            `json:"targets,omitempty" yaml:"targets,omitempty"`
	Sources                  []int32            `json:"sources,omitempty" yaml:"sources,omitempty"`
	Connections              map[string][]int32 `json:"connections,omitempty" yaml:"connections,omitempty"`
	Locked                   []int32            `json:"locked,omitempty" yaml:"locked,omitempty"`
	Labels                   []LabelDescription `json:"labels,omitempty" yaml:"labels,omitempty"`
	DefaultSources           map[string]int32   `json:"defaultSources,omitempty" yaml:"defaultSources,omitempty"`

	Arguments []Argument `json:"arguments,omitempty" yaml:"arguments,omitempty"`
	Result    []Argument `json:"result,omitempty" yaml:"result,omitempty"`

	Children []Description `json:"children,omitempty" yaml:"children,omitempty"`
}

type EnumPair struct {
	Key   string `json:"key" yaml:"key"`
	Value int32  `json:"value" yaml:"value"`
}

type StreamDescriptor struct {
	Format int32 `json:"format" yaml:"format"`
	Offset int32 `json:"offset" yaml:"offset"`
}

type LabelDescription struct {
	BasePath    string `json:"basePath" yaml:"basePath"`
	Description string `json:"description" yaml:"description"`
}

type Argument struct {
	Type string `json:"type" yaml:"type"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Document is the top level of a tree file.
type Document struct {
	Children []Description `json:"children" yaml:"children"`
}

const (
	KindNode      = "node"
	KindParameter = "parameter"
	KindMatrix    = "matrix"
	KindFunction  = "function"
)
