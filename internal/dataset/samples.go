package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/sample"
)

// Format is the on-disk framing for sample collections.
type Format string

const (
	FormatJSONL Format = "jsonl"
	FormatJSON  Format = "json"
)

// ParseFormat parses a format name, defaulting to jsonl.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatJSONL:
		return FormatJSONL, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Ext returns the file extension for f, including the dot.
func (f Format) Ext() string {
	if f == FormatJSON {
		return ".json"
	}
	return ".jsonl"
}

// ReadSamples decodes a JSON array or one sample object per line. Lines that
// do not decode are skipped and counted in the returned stats.
func ReadSamples(data []byte) ([]sample.Sample, chat.ParseStats, error) {
	return chat.DecodeFramed[sample.Sample](data)
}

// ReadSamplesFile reads a sample collection from path.
func ReadSamplesFile(path string) ([]sample.Sample, chat.ParseStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, chat.ParseStats{}, fmt.Errorf("read %s: %w", path, err)
	}
	samples, stats, err := ReadSamples(data)
	if err != nil {
		return nil, stats, fmt.Errorf("parse %s: %w", path, err)
	}
	return samples, stats, nil
}

// WriteSamples encodes samples to w. An empty collection is written as "[]"
// in JSON mode and as nothing in JSONL mode.
func WriteSamples(w io.Writer, samples []sample.Sample, f Format) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	if f == FormatJSON {
		if samples == nil {
			samples = []sample.Sample{}
		}
		if err := enc.Encode(samples); err != nil {
			return fmt.Errorf("encode samples: %w", err)
		}
		return bw.Flush()
	}

	for i, s := range samples {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encode sample %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// WriteSamplesFile writes samples to path via a temp file and rename so a
// failed run never leaves a truncated artifact behind.
func WriteSamplesFile(path string, samples []sample.Sample, f Format) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteSamples(tmp, samples, f); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	return os.Rename(tmp.Name(), path)
}
