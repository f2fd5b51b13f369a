package helpers

import (
	"strings"
	"unicode"

	"github.com/pondpilot/flowscope/model"
)

// LineColToOffset converts a 0-based byte offset into 1-based line/column
// numbers against source text, used to enrich a model.Span found by byte
// offset with human-readable position information.
func LineColToOffset(source string, offset int) (line, col int) {
	if offset > len(source) {
		offset = len(source)
	}
	line = 1
	lastNewline := -1
	for i := 0; i < offset; i++ {
		if source[i] == '\n' {
			line++
			lastNewline = i
		}
	}
	col = offset - lastNewline
	return line, col
}

// FindIdentifierSpan searches source for the next occurrence of name as a
// whole word (not a substring of a longer identifier), starting at from.
// It returns nil if name does not occur. Search is case-insensitive, since
// unquoted SQL identifiers are case-insensitive in every dialect FlowScope
// supports.
func FindIdentifierSpan(source, name string, from int) *model.Span {
	if name == "" || from < 0 || from > len(source) {
		return nil
	}
	lower := strings.ToLower(source)
	target := strings.ToLower(name)
	idx := from
	for {
		pos := strings.Index(lower[idx:], target)
		if pos < 0 {
			return nil
		}
		start := idx + pos
		end := start + len(target)
		if isWordBoundary(source, start) && isWordBoundary(source, end) {
			line, col := LineColToOffset(source, start)
			return &model.Span{Start: start, End: end, Line: line, Col: col}
		}
		idx = start + 1
		if idx >= len(source) {
			return nil
		}
	}
}

// FindKeywordCaseInsensitive returns the byte offset of the next
// case-insensitive occurrence of keyword as a whole word at or after from,
// or -1 if not found.
func FindKeywordCaseInsensitive(source, keyword string, from int) int {
	span := FindIdentifierSpan(source, keyword, from)
	if span == nil {
		return -1
	}
	return span.Start
}

func isWordBoundary(source string, pos int) bool {
	if pos <= 0 || pos >= len(source) {
		return true
	}
	before := rune(source[pos-1])
	after := rune(source[pos])
	_ = after
	if pos < len(source) {
		after = rune(source[pos])
	}
	return !isIdentChar(before) || !isIdentChar(after)
}

func isIdentChar(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

// FindQualifiedNameSpan locates the span of a possibly-dotted reference
// (e.g. "schema.table" or "t.col") by finding the first part's identifier
// occurrence and extending the span through any immediately following
// `.part` segments.
func FindQualifiedNameSpan(source string, parts []string, from int) *model.Span {
	if len(parts) == 0 {
		return nil
	}
	span := FindIdentifierSpan(source, parts[0], from)
	if span == nil {
		return nil
	}
	end := span.End
	for _, p := range parts[1:] {
		rest := source[end:]
		trimmed := strings.TrimLeftFunc(rest, unicode.IsSpace)
		skipped := len(rest) - len(trimmed)
		if !strings.HasPrefix(trimmed, ".") {
			break
		}
		afterDot := trimmed[1:]
		afterDotTrimmed := strings.TrimLeftFunc(afterDot, unicode.IsSpace)
		if !strings.HasPrefix(strings.ToLower(afterDotTrimmed), strings.ToLower(p)) {
			break
		}
		consumed := len(afterDot) - len(afterDotTrimmed) + len(p)
		end = end + skipped + 1 + consumed
	}
	return &model.Span{Start: span.Start, End: end, Line: span.Line, Col: span.Col}
}
