package layer

import (
	"encoding/json"
	"fmt"
	"io"
)

func (r *Registry) declared() []*Layer {
	layers := []*Layer{}

	for _, l := range r.Layers() {
		if l == UnitTests || l == Empty {
			continue
		}
		layers = append(layers, l)
	}

	return layers
}

// WriteJSON writes the bases of every user defined layer as a JSON object.
func (r *Registry) WriteJSON(w io.Writer) error {
	graph := map[string][]string{}

	for _, l := range r.declared() {
		bases := make([]string, len(l.bases))
		for i, base := range l.bases {
			bases[i] = base.name
		}
		graph[l.name] = bases
	}

	data, err := json.MarshalIndent(graph, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to create json from layers: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write layers: %w", err)
	}

	return nil
}

// WriteDOT writes the layer graph in the DOT language. Edges point from a
// layer to its bases.
func (r *Registry) WriteDOT(w io.Writer) error {
	layers := r.declared()

	var err error
	write := func(format string, args ...any) {
		if err == nil {
			_, err = fmt.Fprintf(w, format, args...)
		}
	}

	write("digraph {\n")
	write("    compound = \"true\"\n")
	write("    newrank = \"true\"\n")
	write("    subgraph \"root\" {\n")

	for _, l := range layers {
		write("        %q\n", l.name)
	}

	for _, l := range layers {
		for _, base := range l.bases {
			write("        %q -> %q\n", l.name, base.name)
		}
	}

	write("    }\n")
	write("}\n")

	if err != nil {
		return fmt.Errorf("failed to write layer graph: %w", err)
	}

	return nil
}
