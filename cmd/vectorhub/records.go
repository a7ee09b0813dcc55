package main

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"vectorhub/internal/engine"
	"vectorhub/internal/vector"
)

// row is one line of a JSONL load file. Exactly one of ID and Key names the
// record; Key is hashed into an int64. Text is embedded when Vector is empty.
type row struct {
	ID         *int64         `json:"id"`
	Key        string         `json:"key"`
	Vector     []float32      `json:"vector"`
	Text       string         `json:"text"`
	Attributes map[string]any `json:"attributes"`
}

// pending is a parsed record that may still need an embedding.
type pending struct {
	record engine.Record
	text   string
}

func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "[]"))
	if s == "" {
		return nil, fmt.Errorf("empty vector")
	}
	parts := strings.Split(s, ",")
	vec := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("component %d: %w", i, err)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}

func recordID(id *int64, key string) (int64, error) {
	switch {
	case id != nil && key != "":
		return 0, fmt.Errorf("both id and key set")
	case id != nil:
		return *id, nil
	case key != "":
		return vector.KeyFromString(key), nil
	}
	return 0, fmt.Errorf("missing id or key")
}

// readRecords parses a load file. The format follows the extension: .csv
// rows are "id,v1,v2,...", anything else is read as JSONL.
func readRecords(r io.Reader, name string) ([]pending, error) {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return readCSV(r)
	}
	return readJSONL(r)
}

func readJSONL(r io.Reader) ([]pending, error) {
	var out []pending
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		var rw row
		if err := json.Unmarshal([]byte(text), &rw); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		id, err := recordID(rw.ID, rw.Key)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if len(rw.Vector) == 0 && rw.Text == "" {
			return nil, fmt.Errorf("line %d: neither vector nor text", line)
		}
		attrs := rw.Attributes
		if rw.Key != "" {
			if attrs == nil {
				attrs = make(map[string]any, 1)
			}
			attrs["key"] = rw.Key
		}
		out = append(out, pending{
			record: engine.Record{ID: id, Vector: rw.Vector, Attributes: attrs},
			text:   rw.Text,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func readCSV(r io.Reader) ([]pending, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var out []pending
	for line := 1; ; line++ {
		fields, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want id and at least one component", line)
		}
		id, err := strconv.ParseInt(fields[0], 10, 64)
		if err != nil {
			// a header row is skipped
			if line == 1 {
				continue
			}
			return nil, fmt.Errorf("line %d: id: %w", line, err)
		}
		vec := make([]float32, len(fields)-1)
		for i, f := range fields[1:] {
			v, err := strconv.ParseFloat(f, 32)
			if err != nil {
				return nil, fmt.Errorf("line %d: component %d: %w", line, i, err)
			}
			vec[i] = float32(v)
		}
		out = append(out, pending{record: engine.Record{ID: id, Vector: vec}})
	}
	return out, nil
}

// formatDistance trims float32 noise digits.
func formatDistance(d float32) string {
	if math.IsInf(float64(d), 0) || math.IsNaN(float64(d)) {
		return fmt.Sprint(d)
	}
	return strconv.FormatFloat(float64(d), 'g', 6, 32)
}
