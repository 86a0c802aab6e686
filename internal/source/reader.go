// Package source decodes the newline-delimited JSON listing export into
// RawAttributeRows.
package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"carpivot/internal"
)

const (
	keyID              = "ID"
	keyAttributeName   = "Attribute Names"
	keyAttributeValue  = "Attribute Values"
	maxLineBytes       = 16 << 20
	initialBufferBytes = 64 << 10
)

func ReadFile(path string) ([]internal.RawAttributeRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source %q: %w", path, err)
	}
	defer f.Close()

	rows, err := ReadRows(f)
	if err != nil {
		return nil, fmt.Errorf("read source %q: %w", path, err)
	}
	return rows, nil
}

// ReadRows decodes one JSON object per line. Blank lines are skipped; any
// other line that is not an object with a positive integer ID is an error.
func ReadRows(r io.Reader) ([]internal.RawAttributeRow, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, initialBufferBytes), maxLineBytes)

	var out []internal.RawAttributeRow
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		row, err := decodeLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		row.Line = lineNo
		out = append(out, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeLine(line []byte) (internal.RawAttributeRow, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return internal.RawAttributeRow{}, fmt.Errorf("decode: %w", err)
	}
	if obj == nil {
		return internal.RawAttributeRow{}, fmt.Errorf("expected a JSON object")
	}

	id, err := parseID(obj[keyID])
	if err != nil {
		return internal.RawAttributeRow{}, err
	}

	row := internal.RawAttributeRow{
		ID:             id,
		MakeText:       toValue(obj[internal.ColMakeText]),
		TypeName:       toValue(obj[internal.ColTypeName]),
		TypeNameFull:   toValue(obj[internal.ColTypeNameFull]),
		ModelText:      toValue(obj[internal.ColModelText]),
		ModelTypeText:  toValue(obj[internal.ColModelType]),
		AttributeValue: toValue(obj[keyAttributeValue]),
	}
	if name := toValue(obj[keyAttributeName]); !name.IsMissing() {
		row.AttributeName = strings.TrimSpace(name.String())
	}
	for _, col := range internal.ListingColumns {
		raw, ok := obj[col]
		if !ok {
			continue
		}
		if row.Fields == nil {
			row.Fields = map[string]internal.Value{}
		}
		row.Fields[col] = toValue(raw)
	}
	return row, nil
}

func parseID(raw any) (int, error) {
	var (
		id  int64
		err error
	)
	switch v := raw.(type) {
	case nil:
		return 0, fmt.Errorf("missing %s", keyID)
	case json.Number:
		id, err = integral(v.String())
	case string:
		id, err = integral(strings.TrimSpace(v))
	default:
		return 0, fmt.Errorf("%s has unsupported type %T", keyID, raw)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", keyID, err)
	}
	if id < 1 {
		return 0, fmt.Errorf("%s must be positive, got %d", keyID, id)
	}
	return int(id), nil
}

func integral(s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

func toValue(raw any) internal.Value {
	switch v := raw.(type) {
	case nil:
		return internal.Missing()
	case string:
		return internal.Text(v)
	case json.Number:
		return internal.Number(v.String())
	case bool:
		return internal.Text(strconv.FormatBool(v))
	default:
		blob, err := json.Marshal(v)
		if err != nil {
			return internal.Missing()
		}
		return internal.Text(string(blob))
	}
}
