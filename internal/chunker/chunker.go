// Package chunker splits document content into line-addressed chunks used for search excerpts.
package chunker

import (
	"strings"

	"github.com/rcliao/mission-control/internal/model"
)

const (
	DefaultTargetSize = 400
	DefaultMaxSize    = 600
)

// Style selects the block boundary rule.
type Style int

const (
	// StyleMarkdown splits on headings and paragraph gaps.
	StyleMarkdown Style = iota
	// StyleCode splits on blank lines followed by an unindented line.
	StyleCode
	// StyleConfig splits on [section] headers and unindented keys after a gap.
	StyleConfig
)

// Options configures chunking behavior.
type Options struct {
	TargetSize int
	MaxSize    int
	Style      Style
}

// DefaultOptions returns markdown chunking options.
func DefaultOptions() Options {
	return Options{
		TargetSize: DefaultTargetSize,
		MaxSize:    DefaultMaxSize,
		Style:      StyleMarkdown,
	}
}

// OptionsFor returns the chunking options suited to a document type.
func OptionsFor(t model.DocumentType) Options {
	opts := DefaultOptions()
	switch t {
	case model.DocumentCode:
		opts.Style = StyleCode
	case model.DocumentConfig:
		opts.Style = StyleConfig
	}
	return opts
}

// Chunk splits text into chunks. Text no longer than MaxSize returns a single chunk.
func Chunk(text string, opts Options) []model.Chunk {
	if opts.TargetSize == 0 {
		style := opts.Style
		opts = DefaultOptions()
		opts.Style = style
	}

	if strings.TrimSpace(text) == "" {
		return nil
	}

	// Line numbers refer to the untrimmed content.
	text = strings.TrimRight(text, " \t\r\n")
	if len(strings.TrimSpace(text)) <= opts.MaxSize {
		first := 1 + leadingBlankLines(text)
		t := strings.TrimSpace(text)
		return number([]model.Chunk{{Text: t, StartLine: first, EndLine: first + strings.Count(t, "\n")}})
	}

	return number(mergeBlocks(splitBlocks(text, opts.Style), opts))
}

func number(chunks []model.Chunk) []model.Chunk {
	for i := range chunks {
		chunks[i].Seq = i
	}
	return chunks
}

func leadingBlankLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			break
		}
		n++
	}
	return n
}

// block is an intermediate representation of a text section.
type block struct {
	text      string
	startLine int
	endLine   int
}

// boundary reports whether line starts a new block given the previous line.
func boundary(style Style, line string, prevBlank bool) bool {
	trimmed := strings.TrimSpace(line)
	switch style {
	case StyleCode:
		return prevBlank && trimmed != "" && !startsIndented(line)
	case StyleConfig:
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			return true
		}
		return prevBlank && trimmed != "" && !startsIndented(line)
	default:
		return strings.HasPrefix(trimmed, "#") || (prevBlank && trimmed != "")
	}
}

func startsIndented(line string) bool {
	return strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") ||
		strings.HasPrefix(line, "}") || strings.HasPrefix(line, ")")
}

// splitBlocks splits text into blocks at style boundaries.
func splitBlocks(text string, style Style) []block {
	lines := strings.Split(text, "\n")
	var blocks []block
	var current []string
	startLine := 1

	flush := func(endLine int) {
		if len(current) == 0 {
			return
		}
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			// Skip blank lines at the top so StartLine points at content.
			start := startLine
			for _, l := range current {
				if strings.TrimSpace(l) != "" {
					break
				}
				start++
			}
			blocks = append(blocks, block{text: t, startLine: start, endLine: endLine})
		}
		current = nil
		startLine = endLine + 1
	}

	prevBlank := false
	for i, line := range lines {
		lineNum := i + 1
		if len(current) > 0 && boundary(style, line, prevBlank) {
			flush(lineNum - 1)
		}
		prevBlank = strings.TrimSpace(line) == ""
		current = append(current, line)
	}
	flush(len(lines))

	return blocks
}

// mergeBlocks combines small blocks and splits oversized ones.
func mergeBlocks(blocks []block, opts Options) []model.Chunk {
	var results []model.Chunk
	var accum block

	flushAccum := func() {
		t := accum.text
		if t == "" {
			return
		}
		if len(t) > opts.MaxSize {
			results = append(results, hardSplit(t, accum.startLine, opts)...)
		} else {
			results = append(results, model.Chunk{Text: t, StartLine: accum.startLine, EndLine: accum.endLine})
		}
		accum = block{}
	}

	for _, b := range blocks {
		if accum.text == "" {
			accum = b
			continue
		}

		// Merged text keeps the original lines between the blocks out of
		// the chunk body but spans their line range.
		combined := accum.text + "\n\n" + b.text
		if len(combined) <= opts.TargetSize {
			accum.text = combined
			accum.endLine = b.endLine
		} else {
			flushAccum()
			accum = b
		}
	}
	flushAccum()

	return results
}

// hardSplit breaks text that exceeds MaxSize on line boundaries.
func hardSplit(text string, startLine int, opts Options) []model.Chunk {
	lines := strings.Split(text, "\n")
	var results []model.Chunk
	var current []string
	curStart := startLine
	curLen := 0

	emit := func(end int) {
		t := strings.TrimSpace(strings.Join(current, "\n"))
		if t != "" {
			results = append(results, model.Chunk{Text: t, StartLine: curStart, EndLine: end})
		}
	}

	for i, line := range lines {
		if curLen+len(line) > opts.TargetSize && len(current) > 0 {
			emit(startLine + i - 1)
			current = nil
			curStart = startLine + i
			curLen = 0
		}
		current = append(current, line)
		curLen += len(line) + 1
	}
	if len(current) > 0 {
		emit(startLine + len(lines) - 1)
	}

	return results
}
