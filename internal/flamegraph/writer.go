package flamegraph

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/dump-analysis/pkg/writer"
)

// Output formats understood by NewWriter.
const (
	FormatTree   = "tree"
	FormatFolded = "folded"
	FormatJSON   = "json"
)

// NewWriter returns the writer for the given format, or nil when unknown.
func NewWriter(format string) Writer {
	switch format {
	case FormatTree:
		return NewTreeWriter()
	case FormatFolded:
		return NewFoldedWriter()
	case FormatJSON:
		return NewPrettyJSONWriter()
	default:
		return nil
	}
}

// JSONWriter writes flame graph data as JSON.
type JSONWriter = writer.JSONWriter[*FlameGraph]

// NewJSONWriter creates a new JSON writer.
func NewJSONWriter() *JSONWriter {
	return writer.NewJSONWriter[*FlameGraph]()
}

// NewPrettyJSONWriter creates a JSON writer with pretty printing.
func NewPrettyJSONWriter() *JSONWriter {
	return writer.NewPrettyJSONWriter[*FlameGraph]()
}

// FoldedWriter writes flame graph data in collapsed/folded format.
// This format is compatible with flamegraph.pl script.
type FoldedWriter struct{}

// NewFoldedWriter creates a new folded format writer.
func NewFoldedWriter() *FoldedWriter {
	return &FoldedWriter{}
}

// Write writes the flame graph in folded format.
// Format: frame1;frame2;frame3 count
func (w *FoldedWriter) Write(fg *FlameGraph, out io.Writer) error {
	for _, child := range fg.Root.Children {
		if err := w.writeNode(child, "", out); err != nil {
			return err
		}
	}
	return nil
}

func (w *FoldedWriter) writeNode(node *Node, prefix string, out io.Writer) error {
	currentStack := node.Name()
	if prefix != "" {
		currentStack = prefix + ";" + currentStack
	}

	// Stacks that end here, including leaves.
	if self := node.SelfValue(); self > 0 {
		if _, err := fmt.Fprintf(out, "%s %d\n", currentStack, self); err != nil {
			return err
		}
	}

	for _, child := range node.Children {
		if err := w.writeNode(child, currentStack, out); err != nil {
			return err
		}
	}
	return nil
}

// WriteToFile writes the flame graph in folded format to a file.
func (w *FoldedWriter) WriteToFile(fg *FlameGraph, filepath string) error {
	file, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	return w.Write(fg, file)
}

// TreeWriter renders the flame graph as an indented text tree,
// heaviest children first.
type TreeWriter struct {
	// Indent is repeated once per depth level.
	Indent string
}

// NewTreeWriter creates a new tree writer.
func NewTreeWriter() *TreeWriter {
	return &TreeWriter{Indent: "  "}
}

// Write writes one "<value> <percent>% <name>" line per node.
func (w *TreeWriter) Write(fg *FlameGraph, out io.Writer) error {
	for _, child := range sortedChildren(fg.Root) {
		if err := w.writeNode(child, 0, fg.TotalSamples, out); err != nil {
			return err
		}
	}
	return nil
}

func (w *TreeWriter) writeNode(node *Node, depth int, total int64, out io.Writer) error {
	pct := 0.0
	if total > 0 {
		pct = float64(node.Value) / float64(total) * 100
	}
	if _, err := fmt.Fprintf(out, "%s%d %.1f%% %s\n", strings.Repeat(w.Indent, depth), node.Value, pct, node.Name()); err != nil {
		return err
	}
	for _, child := range sortedChildren(node) {
		if err := w.writeNode(child, depth+1, total, out); err != nil {
			return err
		}
	}
	return nil
}

func sortedChildren(node *Node) []*Node {
	children := make([]*Node, len(node.Children))
	copy(children, node.Children)
	sort.SliceStable(children, func(i, j int) bool {
		if children[i].Value != children[j].Value {
			return children[i].Value > children[j].Value
		}
		return children[i].Name() < children[j].Name()
	})
	return children
}
