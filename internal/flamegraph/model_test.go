package flamegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNode(t *testing.T) {
	node := NewNode("com.a.B", "run", 100)

	assert.Equal(t, "com.a.B", node.Class)
	assert.Equal(t, "run", node.Method)
	assert.Equal(t, "com.a.B.run", node.Name())
	assert.Equal(t, int64(100), node.Value)
	assert.NotNil(t, node.Children)
	assert.NotNil(t, node.childrenMap)
}

func TestNode_AddChild(t *testing.T) {
	parent := NewNode("", "root", 0)
	child1 := NewNode("a.A", "f", 10)
	child2 := NewNode("a.A", "g", 20)
	child1Dup := NewNode("a.A", "f", 5)

	idx1 := parent.AddChild(child1)
	idx2 := parent.AddChild(child2)
	idx1Dup := parent.AddChild(child1Dup)

	assert.Equal(t, 0, idx1)
	assert.Equal(t, 1, idx2)
	assert.Equal(t, 0, idx1Dup)
	assert.Len(t, parent.Children, 2)
}

func TestNode_GetChild(t *testing.T) {
	parent := NewNode("", "root", 0)
	parent.AddChild(NewNode("a.A", "f", 10))

	found := parent.GetChild("a.A", "f")
	require.NotNil(t, found)
	assert.Equal(t, int64(10), found.Value)

	assert.Nil(t, parent.GetChild("a.A", "g"))
	assert.Nil(t, parent.GetChild("a.AF", ""))
}

func TestNode_SelfValue(t *testing.T) {
	parent := NewNode("a.A", "f", 10)
	parent.AddChild(NewNode("a.A", "g", 4))
	parent.AddChild(NewNode("a.A", "h", 3))

	assert.Equal(t, int64(3), parent.SelfValue())
	assert.Equal(t, int64(4), parent.Children[0].SelfValue())
}

func TestFlameGraph_Cleanup(t *testing.T) {
	fg := NewFlameGraph()
	fg.Root.Value = 100
	fg.TotalSamples = 100

	big := NewNode("a.A", "big", 90)
	small := NewNode("a.A", "small", 10)
	tiny := NewNode("a.A", "tiny", 1)
	big.AddChild(tiny)
	fg.Root.AddChild(big)
	fg.Root.AddChild(small)

	fg.Cleanup(5)

	require.Len(t, fg.Root.Children, 2)
	assert.Nil(t, big.Children)
	assert.Nil(t, fg.Root.childrenMap)
}

func TestFlameGraph_Cleanup_ZeroKeepsAll(t *testing.T) {
	fg := NewFlameGraph()
	fg.TotalSamples = 1000
	fg.Root.AddChild(NewNode("a.A", "f", 1))

	fg.Cleanup(0)

	assert.Len(t, fg.Root.Children, 1)
}

func TestFlameGraph_CalculateMaxDepth(t *testing.T) {
	fg := NewFlameGraph()
	a := NewNode("a.A", "f", 1)
	b := NewNode("a.A", "g", 1)
	a.AddChild(b)
	b.AddChild(NewNode("a.A", "h", 1))
	fg.Root.AddChild(a)

	assert.Equal(t, 3, fg.CalculateMaxDepth())
	assert.Equal(t, 3, fg.MaxDepth)
	assert.False(t, fg.IsEmpty())
	assert.True(t, NewFlameGraph().IsEmpty())
}
