package chat

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
)

// MalformedInputError means the stream could not be read as a JSON array,
// a single JSON object, or newline-delimited JSON objects.
type MalformedInputError struct {
	Line int // first offending line for the line-delimited attempt, 0 if unknown
	Err  error
}

func (e *MalformedInputError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed message stream (line %d): %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed message stream: %v", e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// ParseStats reports how a stream was framed and what was skipped.
type ParseStats struct {
	Framing      string // "array", "object" or "lines"
	Records      int
	SkippedLines int
}

// ParseMessageStream decodes a message stream. The whole document is tried
// first as a JSON array (or a single object); if that fails the input is
// read as one JSON object per line. Blank lines are ignored. Individual bad
// lines are skipped and counted as long as at least one line decodes.
func ParseMessageStream(data []byte) ([]RawMessage, ParseStats, error) {
	return DecodeFramed[RawMessage](data)
}

// DecodeFramed applies the array-then-lines framing rule to any record type.
// It is shared with the sample readers in the dataset package.
func DecodeFramed[T any](data []byte) ([]T, ParseStats, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ParseStats{Framing: "array"}, nil
	}

	if recs, framing, err := decodeDocument[T](trimmed); err == nil {
		return recs, ParseStats{Framing: framing, Records: len(recs)}, nil
	}

	var (
		recs    []T
		skipped int
		lineNo  int
		first   *MalformedInputError
	)
	scanner := bufio.NewScanner(bytes.NewReader(trimmed))
	scanner.Buffer(make([]byte, 0, 1024*1024), 10*1024*1024) // 10MB line buffer
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec T
		if err := decodeStrict(line, &rec); err != nil {
			skipped++
			if first == nil {
				first = &MalformedInputError{Line: lineNo, Err: err}
			}
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, ParseStats{}, &MalformedInputError{Err: fmt.Errorf("scan: %w", err)}
	}
	if len(recs) == 0 {
		if first == nil {
			first = &MalformedInputError{Err: fmt.Errorf("no records")}
		}
		return nil, ParseStats{Framing: "lines", SkippedLines: skipped}, first
	}
	return recs, ParseStats{Framing: "lines", Records: len(recs), SkippedLines: skipped}, nil
}

func decodeDocument[T any](data []byte) ([]T, string, error) {
	switch data[0] {
	case '[':
		var recs []T
		if err := decodeStrict(data, &recs); err != nil {
			return nil, "", err
		}
		return recs, "array", nil
	case '{':
		var rec T
		if err := decodeStrict(data, &rec); err != nil {
			return nil, "", err
		}
		return []T{rec}, "object", nil
	default:
		return nil, "", fmt.Errorf("unexpected leading byte %q", data[0])
	}
}

// decodeStrict decodes exactly one JSON value, keeping numbers as json.Number.
func decodeStrict(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}
