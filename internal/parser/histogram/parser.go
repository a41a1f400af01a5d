// Package histogram parses class histograms printed by `jmap -histo` and
// `jcmd <pid> GC.class_histogram`.
package histogram

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/dump-analysis/internal/parser"
	"github.com/dump-analysis/pkg/model"
	"github.com/dump-analysis/pkg/profiling"
)

var (
	// rowRegex matches " 1:  4153645  332349064  [B (java.base@21.0.9)".
	rowRegex = regexp.MustCompile(`^\s*(\d+):\s+(\d+)\s+(\d+)\s+(.*)$`)

	// bannerRegex matches the "<pid>:" line jcmd prints first.
	bannerRegex = regexp.MustCompile(`^\d+:$`)
)

// Parser parses class histogram text.
type Parser struct {
	opts *parser.ParseOptions
}

// NewParser creates a new histogram parser. Nil options use defaults.
func NewParser(opts *parser.ParseOptions) *Parser {
	return &Parser{opts: opts.Normalize()}
}

// Name returns the parser name.
func (p *Parser) Name() string {
	return "histogram"
}

// Parse reads a histogram. Unrecognized lines are skipped.
// Only reader failures and cancellation are errors.
func (p *Parser) Parse(ctx context.Context, reader io.Reader) (*model.ClassHistogram, error) {
	entries := make([]model.ClassHistogramEntry, 0)
	var stats parser.Stats

	err := parser.ReadLines(ctx, p.Name(), reader, p.opts.MaxLineSize, &stats, func(line string) {
		stats.Lines++
		entry, ok := parseLine(line)
		if !ok {
			stats.Skipped++
			return
		}
		stats.Parsed++
		entries = append(entries, entry)
	})
	if err != nil {
		return nil, err
	}

	stats.Log(p.opts.Logger, p.Name())
	return model.NewClassHistogram(entries), nil
}

// Parse parses histogram text with default options. It never fails.
func Parse(text string) *model.ClassHistogram {
	entries := make([]model.ClassHistogramEntry, 0)
	for _, line := range strings.Split(text, "\n") {
		if entry, ok := parseLine(line); ok {
			entries = append(entries, entry)
		}
	}
	return model.NewClassHistogram(entries)
}

// ParseReader parses histogram text from a reader with default options.
func ParseReader(ctx context.Context, reader io.Reader) (*model.ClassHistogram, error) {
	return NewParser(nil).Parse(ctx, reader)
}

func isHeader(trimmed string) bool {
	switch {
	case trimmed == "":
		return true
	case strings.HasPrefix(trimmed, "num"), strings.HasPrefix(trimmed, "Total"):
		return true
	case strings.HasPrefix(trimmed, "---"):
		return true
	case strings.Contains(trimmed, "#instances"), strings.Contains(trimmed, "#bytes"):
		return true
	case bannerRegex.MatchString(trimmed):
		return true
	}
	return false
}

func parseLine(line string) (model.ClassHistogramEntry, bool) {
	line = strings.TrimRight(line, "\r")
	if isHeader(strings.TrimSpace(line)) {
		return model.ClassHistogramEntry{}, false
	}

	m := rowRegex.FindStringSubmatch(line)
	if m == nil {
		return model.ClassHistogramEntry{}, false
	}

	rank, err := strconv.Atoi(m[1])
	if err != nil {
		return model.ClassHistogramEntry{}, false
	}
	instances, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return model.ClassHistogramEntry{}, false
	}
	bytes, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return model.ClassHistogramEntry{}, false
	}

	className, module := splitModule(m[4])
	if className == "" {
		return model.ClassHistogramEntry{}, false
	}

	return model.ClassHistogramEntry{
		Rank:      rank,
		Instances: instances,
		Bytes:     bytes,
		ClassName: className,
		Module:    module,
	}, true
}

// splitModule separates "java.lang.String (java.base@21)" into class and module.
// Only a trailing parenthesized group is treated as the module.
func splitModule(remainder string) (string, *string) {
	head, inner, ok := profiling.SplitTrailingGroup(remainder)
	if !ok {
		return head, nil
	}
	if inner == "" {
		return head, nil
	}
	return head, &inner
}

// Format renders an entry as a canonical histogram row.
// Parsing the result yields an equal entry.
func Format(entry model.ClassHistogramEntry) string {
	row := fmt.Sprintf("%4d: %14d %14d  %s", entry.Rank, entry.Instances, entry.Bytes, entry.ClassName)
	if entry.Module != nil {
		row += " (" + *entry.Module + ")"
	}
	return row
}

// FormatHistogram renders a full histogram table with header and total footer.
func FormatHistogram(h *model.ClassHistogram) string {
	var sb strings.Builder
	sb.WriteString(" num     #instances         #bytes  class name (module)\n")
	sb.WriteString("-------------------------------------------------------\n")
	if h != nil {
		for _, e := range h.Entries {
			sb.WriteString(Format(e))
			sb.WriteString("\n")
		}
	}
	fmt.Fprintf(&sb, "Total %14d %14d\n", h.TotalInstances(), h.TotalBytes())
	return sb.String()
}
