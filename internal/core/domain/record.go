package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
)

// Reserved field names.
const (
	// FieldSourceFile holds the base name of the file a record came from.
	FieldSourceFile = "_source_file"

	// FieldRowNumber holds the 1-based row number within the source file.
	FieldRowNumber = "_row_number"

	// FieldTitle holds the generated title added during enrichment.
	FieldTitle = "ai_generated_title"
)

// Field is a single named value of a Record.
// Value is the compact JSON encoding of the value.
type Field struct {
	Name  string
	Value json.RawMessage
}

// Record is an ordered mapping from field name to JSON value.
// Names are unique; setting an existing name replaces its value in place.
// Record values are never mutated: With* methods return a new Record.
type Record struct {
	fields []Field
}

// NewRecord creates an empty record.
func NewRecord() Record {
	return Record{}
}

// ParseRecord decodes one JSON object, preserving field order.
// Duplicate keys keep the position of the first occurrence and the value of the last.
func ParseRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return Record{}, fmt.Errorf("%w: expected object", ErrMalformedRecord)
	}

	var rec Record
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
		}
		name, ok := tok.(string)
		if !ok {
			return Record{}, fmt.Errorf("%w: expected field name", ErrMalformedRecord)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return Record{}, fmt.Errorf("%w: field %q: %w", ErrMalformedRecord, name, err)
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return Record{}, fmt.Errorf("%w: field %q: %w", ErrMalformedRecord, name, err)
		}
		rec = rec.set(name, compact.Bytes())
	}

	// Closing brace, then nothing but whitespace.
	if _, err := dec.Token(); err != nil {
		return Record{}, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return Record{}, fmt.Errorf("%w: trailing data", ErrMalformedRecord)
	}

	return rec, nil
}

// WithString returns a copy of the record with name set to a string value.
func (r Record) WithString(name, value string) Record {
	return r.set(name, encodeString(value))
}

// WithInt returns a copy of the record with name set to an integer value.
func (r Record) WithInt(name string, value int) Record {
	return r.set(name, json.RawMessage(strconv.Itoa(value)))
}

func (r Record) set(name string, value json.RawMessage) Record {
	fields := make([]Field, len(r.fields), len(r.fields)+1)
	copy(fields, r.fields)

	for i := range fields {
		if fields[i].Name == name {
			fields[i].Value = value
			return Record{fields: fields}
		}
	}
	return Record{fields: append(fields, Field{Name: name, Value: value})}
}

// Get returns the raw JSON value of a field.
func (r Record) Get(name string) (json.RawMessage, bool) {
	for _, f := range r.fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether the record has a field with the given name.
func (r Record) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// String returns the value of a string field.
// Returns false if the field is missing or not a JSON string.
func (r Record) String(name string) (string, bool) {
	raw, ok := r.Get(name)
	if !ok || len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Text returns a textual rendering of a field if the field holds a truthy value:
// a non-empty string, a non-zero number, true, or a non-empty array or object.
func (r Record) Text(name string) (string, bool) {
	raw, ok := r.Get(name)
	if !ok || len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		s, _ := r.String(name)
		return s, s != ""
	case 'n', 'f':
		return "", false
	case 't':
		return "True", true
	case '[':
		return string(raw), string(raw) != "[]"
	case '{':
		return string(raw), string(raw) != "{}"
	default:
		f, err := strconv.ParseFloat(string(raw), 64)
		if err != nil || f == 0 {
			return "", false
		}
		return string(raw), true
	}
}

// Names returns field names in order.
func (r Record) Names() []string {
	names := make([]string, len(r.fields))
	for i, f := range r.fields {
		names[i] = f.Name
	}
	return names
}

// Fields returns a copy of the record's fields in order.
func (r Record) Fields() []Field {
	fields := make([]Field, len(r.fields))
	copy(fields, r.fields)
	return fields
}

// Len returns the number of fields.
func (r Record) Len() int {
	return len(r.fields)
}

// Key identifies a record by source file and row number.
// Returns false if either reserved field is missing.
func (r Record) Key() (RecordKey, bool) {
	source, ok := r.String(FieldSourceFile)
	if !ok {
		return RecordKey{}, false
	}
	row, ok := r.Get(FieldRowNumber)
	if !ok {
		return RecordKey{}, false
	}
	return RecordKey{Source: source, Row: string(row)}, true
}

// MarshalJSON encodes the record as a compact object in field order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encodeString(f.Name))
		buf.WriteByte(':')
		if len(f.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		buf.Write(f.Value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, preserving field order.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}

// RecordKey identifies a record across stage files.
type RecordKey struct {
	Source string
	Row    string
}

// encodeString encodes s as a JSON string without HTML escaping.
func encodeString(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return bytes.TrimRight(buf.Bytes(), "\n")
}
