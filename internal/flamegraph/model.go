// Package flamegraph merges thread stacks into a weighted call tree.
package flamegraph

// Node represents a node in the flame graph tree.
// A node is identified among its siblings by class and method; line numbers are ignored.
type Node struct {
	Class    string  `json:"class,omitempty"`
	Method   string  `json:"method"`
	Value    int64   `json:"value"`
	Children []*Node `json:"children,omitempty"`

	// Internal use only, not serialized
	childrenMap map[string]int `json:"-"`
}

// NewNode creates a new flame graph node.
func NewNode(class, method string, value int64) *Node {
	return &Node{
		Class:       class,
		Method:      method,
		Value:       value,
		Children:    make([]*Node, 0),
		childrenMap: make(map[string]int),
	}
}

// Name returns the qualified method name.
func (n *Node) Name() string {
	if n.Class == "" {
		return n.Method
	}
	return n.Class + "." + n.Method
}

// AddChild adds a child node and returns its index.
// An existing child with the same key is kept.
func (n *Node) AddChild(child *Node) int {
	if n.childrenMap == nil {
		n.childrenMap = make(map[string]int)
	}
	key := makeChildKey(child.Class, child.Method)
	if idx, exists := n.childrenMap[key]; exists {
		return idx
	}
	idx := len(n.Children)
	n.childrenMap[key] = idx
	n.Children = append(n.Children, child)
	return idx
}

// GetChild returns a child node by key, or nil if not found.
func (n *Node) GetChild(class, method string) *Node {
	if idx, exists := n.childrenMap[makeChildKey(class, method)]; exists {
		return n.Children[idx]
	}
	return nil
}

// SelfValue returns the stacks that end at this node.
func (n *Node) SelfValue() int64 {
	self := n.Value
	for _, c := range n.Children {
		self -= c.Value
	}
	if self < 0 {
		return 0
	}
	return self
}

// makeChildKey uses the record separator (\x1E) to avoid collisions with visible characters.
func makeChildKey(class, method string) string {
	return class + "\x1E" + method
}

// FlameGraph represents the complete flame graph structure.
type FlameGraph struct {
	Root         *Node `json:"root"`
	TotalSamples int64 `json:"totalSamples"`
	MaxDepth     int   `json:"maxDepth,omitempty"`
}

// NewFlameGraph creates a new flame graph with a root node.
func NewFlameGraph() *FlameGraph {
	return &FlameGraph{
		Root: NewNode("", "root", 0),
	}
}

// IsEmpty reports whether no stack was merged into the graph.
func (fg *FlameGraph) IsEmpty() bool {
	return fg == nil || fg.Root == nil || len(fg.Root.Children) == 0
}

// Cleanup removes internal maps and filters nodes below threshold.
// minPercent is the minimum percentage (0-100) of TotalSamples for a node to be kept.
func (fg *FlameGraph) Cleanup(minPercent float64) {
	if fg.Root == nil {
		return
	}
	threshold := float64(fg.TotalSamples) * minPercent / 100.0
	fg.cleanupNode(fg.Root, threshold)
}

func (fg *FlameGraph) cleanupNode(node *Node, threshold float64) {
	node.childrenMap = nil

	if len(node.Children) == 0 {
		node.Children = nil
		return
	}

	filtered := make([]*Node, 0, len(node.Children))
	for _, child := range node.Children {
		if float64(child.Value) >= threshold {
			fg.cleanupNode(child, threshold)
			filtered = append(filtered, child)
		}
	}

	if len(filtered) == 0 {
		node.Children = nil
	} else {
		node.Children = filtered
	}
}

// CalculateMaxDepth calculates the maximum depth of the flame graph.
func (fg *FlameGraph) CalculateMaxDepth() int {
	if fg.Root == nil {
		return 0
	}
	fg.MaxDepth = calculateDepth(fg.Root, 0)
	return fg.MaxDepth
}

func calculateDepth(node *Node, currentDepth int) int {
	maxChildDepth := currentDepth
	for _, child := range node.Children {
		if d := calculateDepth(child, currentDepth+1); d > maxChildDepth {
			maxChildDepth = d
		}
	}
	return maxChildDepth
}
