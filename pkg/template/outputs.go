package template

import "github.com/dukex/flowrun/pkg/models"

// Outputs holds the results of the nodes that already ran in a run, keyed by
// node id and remembering insertion order. It is owned by a single run and
// is not safe for concurrent use.
type Outputs struct {
	keys   []string
	values map[string]models.NodeOutput
}

func NewOutputs() *Outputs {
	return &Outputs{values: make(map[string]models.NodeOutput)}
}

// Set stores the output of nodeID. Overwriting keeps the original position.
func (o *Outputs) Set(nodeID string, output models.NodeOutput) {
	if _, exists := o.values[nodeID]; !exists {
		o.keys = append(o.keys, nodeID)
	}

	o.values[nodeID] = output
}

func (o *Outputs) Get(nodeID string) (models.NodeOutput, bool) {
	out, ok := o.values[nodeID]

	return out, ok
}

// Keys returns node ids in the order their outputs were recorded.
func (o *Outputs) Keys() []string {
	return o.keys
}

func (o *Outputs) Len() int {
	return len(o.keys)
}

// Map returns a plain map view suitable for serialisation.
func (o *Outputs) Map() map[string]any {
	m := make(map[string]any, len(o.values))
	for k, v := range o.values {
		m[k] = map[string]any(v)
	}

	return m
}
