// Package normalize extracts structured values from free-form generator
// output. All extraction is deterministic and side-effect free: the same
// input text always yields the same value or the same failure.
package normalize

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

// Common errors for response normalization.
var (
	// ErrMalformedResponse indicates the response could not be parsed
	// into the expected schema.
	ErrMalformedResponse = errors.New("malformed generator response")
	// ErrScoreOutOfRange indicates a score was outside the accepted 0-10 range.
	ErrScoreOutOfRange = errors.New("score out of range (must be 0-10)")
	// ErrMissingField indicates a required key was absent from a key/value response.
	ErrMissingField = errors.New("missing required field")
)

// Schema identifies the expected shape of a generator response.
type Schema string

const (
	// SchemaScore expects a single numeric score on a 0-1 or 0-10 scale.
	SchemaScore Schema = "score"
	// SchemaCodeFragment expects a fenced code block.
	SchemaCodeFragment Schema = "code_fragment"
	// SchemaTableRow expects a markdown table data row.
	SchemaTableRow Schema = "table_row"
	// SchemaKeyValueSet expects "key: value" lines covering a required field list.
	SchemaKeyValueSet Schema = "key_value_set"
	// SchemaFreeList expects a bulleted or numbered list.
	SchemaFreeList Schema = "free_list"
)

// Regular expressions for response parsing.
var (
	// scorePattern matches "Score: 7.5", "SCORE = 7.5" or a bare leading number.
	scorePattern = regexp.MustCompile(`(?i)score[:=\s]+(-?\d+(?:\.\d+)?)`)
	// bareNumberPattern matches a number standing alone on a line.
	bareNumberPattern = regexp.MustCompile(`(?m)^\s*(-?\d+(?:\.\d+)?)\s*$`)
	// fencePattern matches a fenced code block with optional language tag.
	fencePattern = regexp.MustCompile("(?s)```[a-zA-Z0-9_+-]*\n(.*?)```")
	// keyValuePattern matches "key: value" lines, tolerating markdown bold keys.
	keyValuePattern = regexp.MustCompile(`(?m)^\s*\**([A-Za-z][A-Za-z0-9 _-]*?)\**\s*:\s*(.+?)\s*$`)
	// listItemPattern matches "- item", "* item" and "1. item" lines.
	listItemPattern = regexp.MustCompile(`(?m)^\s*(?:[-*+]|\d+[.)])\s+(.+?)\s*$`)
)

// ExtractScore parses a numeric score from free-form text and normalizes
// it to the 0-1 range. Values on a 0-10 scale (anything greater than 1)
// are divided by 10. Values outside 0-10 are rejected.
func ExtractScore(text string) (float64, error) {
	if strings.TrimSpace(text) == "" {
		return 0, ErrMalformedResponse
	}

	matches := scorePattern.FindStringSubmatch(text)
	if matches == nil {
		matches = bareNumberPattern.FindStringSubmatch(text)
	}
	if len(matches) < 2 {
		return 0, ErrMalformedResponse
	}

	val, err := strconv.ParseFloat(matches[1], 64)
	if err != nil {
		return 0, ErrMalformedResponse
	}
	if val < 0 || val > 10 {
		return 0, ErrScoreOutOfRange
	}
	// Anything above 1 is taken to be on the 0-10 scale.
	if val > 1 {
		val = val / 10
	}
	return val, nil
}

// ExtractCodeFragment returns the contents of the first fenced code block.
func ExtractCodeFragment(text string) (string, error) {
	matches := fencePattern.FindStringSubmatch(text)
	if len(matches) < 2 || strings.TrimSpace(matches[1]) == "" {
		return "", ErrMalformedResponse
	}
	return matches[1], nil
}

// ExtractTableRow returns the cells of the first markdown table data row,
// skipping the header and separator rows.
func ExtractTableRow(text string) ([]string, error) {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "|") || !strings.HasSuffix(line, "|") {
			continue
		}
		inner := strings.Trim(line, "|")
		cells := strings.Split(inner, "|")
		row := make([]string, 0, len(cells))
		separator := true
		for _, c := range cells {
			c = strings.TrimSpace(c)
			if strings.Trim(c, ":-") != "" {
				separator = false
			}
			row = append(row, c)
		}
		if separator {
			continue
		}
		rows = append(rows, row)
	}
	// First row is the header; the first data row follows it.
	if len(rows) < 2 {
		return nil, ErrMalformedResponse
	}
	return rows[1], nil
}

// ExtractKeyValueSet parses "key: value" lines and requires every field
// in required to be present. Partial structured output is rejected so
// callers never operate on incomplete data. Keys are matched
// case-insensitively and returned lowercased.
func ExtractKeyValueSet(text string, required []string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, m := range keyValuePattern.FindAllStringSubmatch(text, -1) {
		key := strings.ToLower(strings.TrimSpace(m[1]))
		if _, seen := fields[key]; !seen {
			fields[key] = m[2]
		}
	}
	if len(fields) == 0 {
		return nil, ErrMalformedResponse
	}

	for _, want := range required {
		if _, ok := fields[strings.ToLower(want)]; !ok {
			return nil, ErrMissingField
		}
	}
	return fields, nil
}

// ExtractFreeList returns the items of the first bulleted or numbered list.
func ExtractFreeList(text string) ([]string, error) {
	var items []string
	for _, m := range listItemPattern.FindAllStringSubmatch(text, -1) {
		items = append(items, m[1])
	}
	if len(items) == 0 {
		return nil, ErrMalformedResponse
	}
	return items, nil
}
