package parser

import (
	"bufio"
	"context"
	"io"
)

// ReadLines calls fn for every line of reader, without its line terminator.
// A line longer than maxLineSize is dropped and counted in stats as skipped;
// it never fails the parse. Only reader failures and cancellation are errors.
func ReadLines(ctx context.Context, name string, reader io.Reader, maxLineSize int, stats *Stats, fn func(line string)) error {
	br := bufio.NewReaderSize(reader, 64*1024)

	var (
		line      []byte
		oversized bool
		seen      int
	)
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return ReadError(ctx, name, err)
		}

		if !oversized {
			if len(line)+len(chunk) > maxLineSize {
				oversized = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if isPrefix {
			continue
		}

		if seen%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return ReadError(ctx, name, err)
			}
		}
		seen++

		if oversized {
			stats.Lines++
			stats.Skipped++
			oversized = false
			continue
		}
		fn(string(line))
		line = line[:0]
	}
}
