package histogram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/dump-analysis/pkg/errors"
	"github.com/dump-analysis/pkg/model"
)

func strPtr(s string) *string {
	return &s
}

func TestParse_TwoEntries(t *testing.T) {
	input := "   1:       2438780      332349064  [B (java.base@21.0.9)\n" +
		"   2:        782447      233926064  [I (java.base@21.0.9)\n"

	h := Parse(input)

	require.Equal(t, 2, h.Len())
	assert.Equal(t, int64(332349064+233926064), h.TotalBytes())
	assert.Equal(t, int64(2438780+782447), h.TotalInstances())

	top := h.TopByBytes(1)
	require.Len(t, top, 1)
	assert.Equal(t, "[B", top[0].ClassName)
	require.NotNil(t, top[0].Module)
	assert.Equal(t, "java.base@21.0.9", *top[0].Module)
}

func TestParse_NoModule(t *testing.T) {
	h := Parse("  1:  10  20  java.lang.String\n")

	require.Equal(t, 1, h.Len())
	e := h.Entries[0]
	assert.Equal(t, 1, e.Rank)
	assert.Equal(t, int64(10), e.Instances)
	assert.Equal(t, int64(20), e.Bytes)
	assert.Equal(t, "java.lang.String", e.ClassName)
	assert.Nil(t, e.Module)
}

func TestParse_SkipsHeadersAndGarbage(t *testing.T) {
	input := `12345:
 num     #instances         #bytes  class name (module)
-------------------------------------------------------
   1:           100           4000  com.example.Order
this line is not a histogram row
   2:            50           1600  java.util.HashMap$Node (java.base@17)

   x:            1              2  bad.Rank
Total           150           5600
`
	h := Parse(input)

	require.Equal(t, 2, h.Len())
	assert.Equal(t, "com.example.Order", h.Entries[0].ClassName)
	assert.Equal(t, "java.util.HashMap$Node", h.Entries[1].ClassName)
	assert.Equal(t, "java.base@17", h.Entries[1].ModuleName())
}

func TestParse_ModuleEdgeCases(t *testing.T) {
	tests := []struct {
		name          string
		line          string
		expectedClass string
		expectedMod   *string
	}{
		{
			name:          "empty module group",
			line:          "  1:  1  16  com.example.Foo ()",
			expectedClass: "com.example.Foo",
			expectedMod:   nil,
		},
		{
			name:          "only last group is the module",
			line:          "  1:  1  16  com.example.Foo$$Lambda (0x0000000801001000) (app)",
			expectedClass: "com.example.Foo$$Lambda (0x0000000801001000)",
			expectedMod:   strPtr("app"),
		},
		{
			name:          "parenthesis not at the end",
			line:          "  1:  1  16  weird(name).Class",
			expectedClass: "weird(name).Class",
			expectedMod:   nil,
		},
		{
			name:          "carriage return",
			line:          "  1:  1  16  java.lang.Object (java.base@11)\r",
			expectedClass: "java.lang.Object",
			expectedMod:   strPtr("java.base@11"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Parse(tt.line)
			require.Equal(t, 1, h.Len())
			assert.Equal(t, tt.expectedClass, h.Entries[0].ClassName)
			assert.Equal(t, tt.expectedMod, h.Entries[0].Module)
		})
	}
}

func TestParse_EmptyClassNameDropped(t *testing.T) {
	h := Parse("  1:  1  16  (java.base)\n")
	assert.Equal(t, 0, h.Len())
}

func TestParse_RanksPreserved(t *testing.T) {
	h := Parse("   7:  1  99  a.A\n   3:  1  200  b.B\n")

	require.Equal(t, 2, h.Len())
	assert.Equal(t, 7, h.Entries[0].Rank)
	assert.Equal(t, 3, h.Entries[1].Rank)
	assert.Equal(t, "b.B", h.TopByBytes(1)[0].ClassName)
}

func TestParse_EmptyInput(t *testing.T) {
	h := Parse("")
	require.NotNil(t, h)
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, int64(0), h.TotalBytes())
}

func TestFormat_RoundTrip(t *testing.T) {
	entries := []model.ClassHistogramEntry{
		{Rank: 1, Instances: 2438780, Bytes: 332349064, ClassName: "[B", Module: strPtr("java.base@21.0.9")},
		{Rank: 2, Instances: 10, Bytes: 20, ClassName: "java.lang.String"},
		{Rank: 1234, Instances: 1, Bytes: 16, ClassName: "com.example.Foo$$Lambda (0x1)", Module: strPtr("app")},
	}

	for _, e := range entries {
		t.Run(e.ClassName, func(t *testing.T) {
			h := Parse(Format(e))
			require.Equal(t, 1, h.Len())
			assert.Equal(t, e, h.Entries[0])
		})
	}
}

func TestFormatHistogram_RoundTrip(t *testing.T) {
	original := model.NewClassHistogram([]model.ClassHistogramEntry{
		{Rank: 1, Instances: 5, Bytes: 500, ClassName: "a.A"},
		{Rank: 2, Instances: 3, Bytes: 300, ClassName: "b.B", Module: strPtr("mod")},
	})

	text := FormatHistogram(original)
	assert.Contains(t, text, "#instances")
	assert.Contains(t, text, "Total")

	assert.Equal(t, original, Parse(text))
}

func TestParser_Parse_Reader(t *testing.T) {
	input := "   1:  4  64  java.lang.Object (java.base@21)\n   2:  2  32  a.B\n"

	h, err := NewParser(nil).Parse(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	assert.Equal(t, 2, h.Len())
	assert.Equal(t, int64(96), h.TotalBytes())
}

func TestParser_Parse_SkipsOversizedLine(t *testing.T) {
	input := "   1:  10  20  java.lang.String\n" +
		strings.Repeat("x", 2*1024*1024) + "\n" +
		"   2:  5  8  [B\n"

	h, err := ParseReader(context.Background(), strings.NewReader(input))

	require.NoError(t, err)
	require.Equal(t, 2, h.Len())
	assert.Equal(t, Parse(input).Entries, h.Entries)
}

func TestParser_Parse_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ParseReader(ctx, strings.NewReader("   1:  4  64  a.A\n"))

	require.Error(t, err)
	assert.Equal(t, apperrors.CodeParseError, apperrors.GetErrorCode(err))
	assert.ErrorIs(t, err, context.Canceled)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestParser_Parse_ReaderError(t *testing.T) {
	_, err := NewParser(nil).Parse(context.Background(), failingReader{})

	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err))
	assert.Contains(t, err.Error(), "disk on fire")
}
