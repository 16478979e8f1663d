package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

func structuredObject(rec []entry) map[string]string {
	obj := make(map[string]string, len(rec))
	for _, e := range rec {
		obj[e.field] = e.id
	}
	return obj
}

func encodeStructured(rec []entry) ([]byte, error) {
	return marshalIndent(structuredObject(rec))
}

func encodeStructuredBatch(recs [][]entry) ([]byte, error) {
	objs := make([]map[string]string, len(recs))
	for i, rec := range recs {
		objs[i] = structuredObject(rec)
	}
	return marshalIndent(objs)
}

func marshalIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeStructured(data []byte) ([]entry, error) {
	var obj map[string]string
	if err := strictUnmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, malformed("expected a JSON object")
	}
	return objectEntries(obj), nil
}

func decodeStructuredBatch(data []byte) ([][]entry, error) {
	var objs []map[string]string
	if err := strictUnmarshal(data, &objs); err != nil {
		return nil, err
	}
	if objs == nil {
		return nil, malformed("expected a JSON array")
	}
	recs := make([][]entry, len(objs))
	for i, obj := range objs {
		if obj == nil {
			return nil, malformed("record %d: expected a JSON object", i)
		}
		recs[i] = objectEntries(obj)
	}
	return recs, nil
}

func strictUnmarshal(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return malformed("%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return malformed("trailing data after JSON value")
	}
	return nil
}

func objectEntries(obj map[string]string) []entry {
	rec := make([]entry, 0, len(obj))
	for field, id := range obj {
		rec = append(rec, entry{field: field, id: id})
	}
	return rec
}
