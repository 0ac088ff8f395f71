package worksheet

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"ramstk/internal/analysis"
	"ramstk/internal/blob"
	"ramstk/pkg/domain"
)

// Format selects the archive encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts json, yaml or yml.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown worksheet format %q", raw)
	}
}

func (f Format) contentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// Document is the archived form of a built tree.
type Document struct {
	Hierarchy  string `json:"hierarchy" yaml:"hierarchy"`
	RevisionID int    `json:"revision_id" yaml:"revision_id"`
	HardwareID int    `json:"hardware_id" yaml:"hardware_id"`
	ModeID     int    `json:"mode_id,omitempty" yaml:"mode_id,omitempty"`
	Nodes      []Node `json:"nodes" yaml:"nodes"`
}

// Node is one archived tree node.
type Node struct {
	ID         string         `json:"id" yaml:"id"`
	Level      string         `json:"level" yaml:"level"`
	Attributes map[string]any `json:"attributes" yaml:"attributes"`
	Children   []Node         `json:"children,omitempty" yaml:"children,omitempty"`
}

// Count returns the number of nodes in the document.
func (d Document) Count() int {
	var count func([]Node) int
	count = func(nodes []Node) int {
		n := len(nodes)
		for _, c := range nodes {
			n += count(c.Children)
		}
		return n
	}
	return count(d.Nodes)
}

// NewDocument snapshots the manager's current tree.
func NewDocument(m *analysis.Manager) (Document, error) {
	scope := m.Scope()
	doc := Document{
		Hierarchy:  m.Hierarchy().String(),
		RevisionID: scope.RevisionID,
		HardwareID: scope.HardwareID,
	}
	if prefix := m.Prefix(); len(prefix) > 0 {
		doc.ModeID = prefix.ID()
	}
	nodes, err := documentNodes(m.Tree(), nil)
	if err != nil {
		return Document{}, err
	}
	doc.Nodes = nodes
	return doc, nil
}

func documentNodes(tree *analysis.Tree, parent analysis.Path) ([]Node, error) {
	children := tree.Children(parent)
	out := make([]Node, 0, len(children))
	for _, c := range children {
		attrs, err := domain.Attributes(c.Record)
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", c.ID(), err)
		}
		sub, err := documentNodes(tree, c.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, Node{ID: c.ID(), Level: c.Path.Level().String(), Attributes: attrs, Children: sub})
	}
	return out, nil
}

// Encode writes doc in the given format.
func Encode(w io.Writer, doc Document, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown worksheet format %q", f)
	}
}

// Decode reads a document previously written by Encode.
func Decode(r io.Reader, f Format) (Document, error) {
	var doc Document
	switch f {
	case FormatJSON:
		if err := json.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode json document: %w", err)
		}
	case FormatYAML:
		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			return Document{}, fmt.Errorf("decode yaml document: %w", err)
		}
	default:
		return Document{}, fmt.Errorf("unknown worksheet format %q", f)
	}
	return doc, nil
}

// ArchiveKey returns the blob key of a document:
// worksheets/<revision>/<hardware>/<hierarchy>.<ext>. PoF documents carry the
// mode id in the name, e.g. pof-6.json.
func ArchiveKey(doc Document, f Format) string {
	name := doc.Hierarchy
	if doc.ModeID != 0 {
		name += "-" + strconv.Itoa(doc.ModeID)
	}
	return fmt.Sprintf("worksheets/%d/%d/%s.%s", doc.RevisionID, doc.HardwareID, name, f)
}

// Export archives the manager's tree, replacing any previous archive.
func Export(ctx context.Context, store blob.Store, m *analysis.Manager, f Format) (blob.Info, error) {
	doc, err := NewDocument(m)
	if err != nil {
		return blob.Info{}, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc, f); err != nil {
		return blob.Info{}, fmt.Errorf("encode worksheet: %w", err)
	}
	key := ArchiveKey(doc, f)
	info, err := store.Put(ctx, key, bytes.NewReader(buf.Bytes()), blob.PutOptions{
		ContentType: f.contentType(),
		Metadata: map[string]string{
			"hierarchy": doc.Hierarchy,
			"nodes":     strconv.Itoa(doc.Count()),
		},
		Overwrite: true,
	})
	if err != nil {
		return blob.Info{}, fmt.Errorf("archive %s: %w", key, err)
	}
	return info, nil
}

// Fetch reads an archived document back from store.
func Fetch(ctx context.Context, store blob.Store, key string) (Document, error) {
	f := FormatJSON
	if strings.HasSuffix(key, ".yaml") || strings.HasSuffix(key, ".yml") {
		f = FormatYAML
	}
	_, rc, err := store.Get(ctx, key)
	if err != nil {
		return Document{}, err
	}
	defer func() { _ = rc.Close() }()
	return Decode(rc, f)
}
