// ABOUTME: Renders a graph snapshot as structured YAML: a flat node list plus an edge list.
package export

import (
	"encoding/json"
	"fmt"

	"github.com/orbnauticus/angler/internal/store"
	"gopkg.in/yaml.v3"
)

// YamlNode is the serializable view of a stored node.
type YamlNode struct {
	URI    string `yaml:"uri"`
	Value  any    `yaml:"value"`
	Author string `yaml:"author,omitempty"`
}

// YamlEdge is the serializable view of a stored edge.
type YamlEdge struct {
	Source string `yaml:"source"`
	Sink   string `yaml:"sink"`
	Author string `yaml:"author,omitempty"`
}

// YamlManifest is the top-level document produced by YAML export.
type YamlManifest struct {
	Nodes []YamlNode `yaml:"nodes"`
	Edges []YamlEdge `yaml:"edges"`
}

// YAML renders nodes and edges as a YAML document, decoding each node's
// JSON value into a native YAML mapping rather than leaving it as an
// embedded JSON string.
func YAML(nodes []store.Node, edges []store.Edge) (string, error) {
	doc := YamlManifest{
		Nodes: make([]YamlNode, 0, len(nodes)),
		Edges: make([]YamlEdge, 0, len(edges)),
	}

	for _, n := range nodes {
		yn := YamlNode{URI: n.URI}
		if n.Author.Valid {
			yn.Author = n.Author.String
		}
		var decoded any
		if err := json.Unmarshal(n.Value, &decoded); err != nil {
			return "", fmt.Errorf("decode value for %s: %w", n.URI, err)
		}
		yn.Value = decoded
		doc.Nodes = append(doc.Nodes, yn)
	}

	for _, e := range edges {
		ye := YamlEdge{Source: e.Source, Sink: e.Sink}
		if e.Author.Valid {
			ye.Author = e.Author.String
		}
		doc.Edges = append(doc.Edges, ye)
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("yaml marshal: %w", err)
	}
	return string(data), nil
}
