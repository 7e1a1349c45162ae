// Package bootcfg parses the bootloader configuration file spec §6
// names as an external collaborator: a text file describing the
// images and partitions cmd/nnimage assembles into a disk image.
// Grounded in the teacher's own preference for small hand-rolled
// line-oriented parsers over a parser-generator, wrapped with
// github.com/pkg/errors so a caller can still recover the offending
// file and line via errors.Cause/As while the top-level message stays
// the "<file>:<line>: <message>" shape spec §6 requires on stderr.
package bootcfg

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// BlockType is the kind of a configuration block.
type BlockType string

const (
	Image     BlockType = "image"
	Partition BlockType = "partition"
)

// Block is one parsed configuration block: a type, an optional name
// (required for image, forbidden for partition), its option lines,
// and the source line the block started on, kept for error reporting
// by later passes (internal/diskimage.Plan names the block's line in
// its build errors, e.g. "partition block at line 3: ...").
type Block struct {
	Type    BlockType
	Name    string
	Options []string
	Line    int
}

// ParseError is returned for any malformed line or block; its Error()
// is exactly the "<file>:<line>: <message>" spec §6 specifies.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
}

// Parse reads a bootcfg file from r, attributing errors to file (the
// path the caller opened, used only for error messages).
func Parse(file string, r io.Reader) ([]Block, error) {
	scanner := bufio.NewScanner(r)
	var blocks []Block
	var cur *Block
	lineNo := 0

	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasSuffix(line, "{") {
			if cur != nil {
				return nil, errors.WithStack(&ParseError{file, lineNo, "nested block not allowed"})
			}
			header := strings.TrimSpace(strings.TrimSuffix(line, "{"))
			fields := strings.Fields(header)
			if len(fields) == 0 {
				return nil, errors.WithStack(&ParseError{file, lineNo, "missing block type"})
			}
			bt := BlockType(fields[0])
			if bt != Image && bt != Partition {
				return nil, errors.WithStack(&ParseError{file, lineNo, fmt.Sprintf("unknown block type %q", fields[0])})
			}
			name := ""
			if len(fields) > 1 {
				name = fields[1]
			}
			if bt == Image && name == "" {
				return nil, errors.WithStack(&ParseError{file, lineNo, "image block requires a name"})
			}
			if bt == Partition && name != "" {
				return nil, errors.WithStack(&ParseError{file, lineNo, "partition block must not have a name"})
			}
			cur = &Block{Type: bt, Name: name, Line: lineNo}
			continue
		}

		if line == "}" {
			if cur == nil {
				return nil, errors.WithStack(&ParseError{file, lineNo, "unexpected closing brace"})
			}
			flush()
			continue
		}

		if cur == nil {
			return nil, errors.WithStack(&ParseError{file, lineNo, fmt.Sprintf("option %q outside any block", line)})
		}
		cur.Options = append(cur.Options, line)
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "%s: read error", file)
	}
	if cur != nil {
		return nil, errors.WithStack(&ParseError{file, lineNo, "unterminated block at end of file"})
	}
	return blocks, nil
}
