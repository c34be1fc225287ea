// Package submit turns a finished form into a request body and tracks the
// lifecycle of sending it.
package submit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strconv"
	"strings"

	"github.com/oshocks/bikeshop/pkg/uploads"
)

// Body is an encoded request body.
type Body struct {
	Reader      io.Reader
	ContentType string
	Length      int64
}

// Payload is something that can be sent as a request body.
type Payload interface {
	Encode() (Body, error)
}

// JSON is a JSON object payload.
type JSON map[string]any

// Encode marshals the object.
func (p JSON) Encode() (Body, error) {
	data, err := json.Marshal(map[string]any(p))
	if err != nil {
		return Body{}, fmt.Errorf("submit: encode json: %w", err)
	}
	return Body{
		Reader:      bytes.NewReader(data),
		ContentType: "application/json",
		Length:      int64(len(data)),
	}, nil
}

// Part is one scalar multipart entry.
type Part struct {
	Name  string
	Value string
}

// FilePart is one file multipart entry.
type FilePart struct {
	Name        string
	FileName    string
	ContentType string
	Data        []byte
}

// Multipart is a multipart/form-data payload. Entries keep insertion order.
type Multipart struct {
	parts []Part
	files []FilePart
}

// NewMultipart creates an empty multipart payload.
func NewMultipart() *Multipart {
	return &Multipart{}
}

// Add appends a scalar entry.
func (m *Multipart) Add(name, value string) *Multipart {
	m.parts = append(m.parts, Part{Name: name, Value: value})
	return m
}

// AddList appends one name[] entry per value.
func (m *Multipart) AddList(name string, values []string) *Multipart {
	for _, v := range values {
		m.Add(name+"[]", v)
	}
	return m
}

// AddJSON appends an entry holding v encoded as JSON.
func (m *Multipart) AddJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("submit: encode %s: %w", name, err)
	}
	m.Add(name, string(data))
	return nil
}

// AddFile appends a staged upload under name.
func (m *Multipart) AddFile(name string, rec uploads.Record) *Multipart {
	m.files = append(m.files, FilePart{
		Name:        name,
		FileName:    rec.FileName,
		ContentType: rec.ContentType,
		Data:        rec.Data,
	})
	return m
}

// Parts returns the scalar entries.
func (m *Multipart) Parts() []Part {
	return append([]Part(nil), m.parts...)
}

// Files returns the file entries.
func (m *Multipart) Files() []FilePart {
	return append([]FilePart(nil), m.files...)
}

// Value returns the first scalar entry named name.
func (m *Multipart) Value(name string) (string, bool) {
	for _, p := range m.parts {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// Encode writes the entries as multipart/form-data.
func (m *Multipart) Encode() (Body, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, p := range m.parts {
		if err := mw.WriteField(p.Name, p.Value); err != nil {
			return Body{}, fmt.Errorf("submit: write field %s: %w", p.Name, err)
		}
	}
	for _, f := range m.files {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(f.Name), escapeQuotes(f.FileName)))
		ct := f.ContentType
		if ct == "" {
			ct = "application/octet-stream"
		}
		h.Set("Content-Type", ct)
		w, err := mw.CreatePart(h)
		if err != nil {
			return Body{}, fmt.Errorf("submit: create part %s: %w", f.Name, err)
		}
		if _, err := w.Write(f.Data); err != nil {
			return Body{}, fmt.Errorf("submit: write part %s: %w", f.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return Body{}, fmt.Errorf("submit: close multipart: %w", err)
	}
	return Body{
		Reader:      bytes.NewReader(buf.Bytes()),
		ContentType: mw.FormDataContentType(),
		Length:      int64(buf.Len()),
	}, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// For picks the payload shape from the presence of files: JSON when there are
// none, multipart otherwise. In multipart, lists become name[] entries, maps
// and structs are JSON encoded and booleans are sent as 1 or 0. A field with
// several files is sent as name[].
func For(values map[string]any, files map[string][]uploads.Record) (Payload, error) {
	hasFiles := false
	for _, recs := range files {
		if len(recs) > 0 {
			hasFiles = true
			break
		}
	}
	if !hasFiles {
		return JSON(values), nil
	}

	m := NewMultipart()
	for _, name := range sortedKeys(values) {
		if err := m.addValue(name, values[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(files) {
		recs := files[name]
		key := name
		if len(recs) > 1 {
			key = name + "[]"
		}
		for _, rec := range recs {
			m.AddFile(key, rec)
		}
	}
	return m, nil
}

func (m *Multipart) addValue(name string, v any) error {
	switch val := v.(type) {
	case nil:
		return nil
	case string:
		m.Add(name, val)
	case bool:
		if val {
			m.Add(name, "1")
		} else {
			m.Add(name, "0")
		}
	case int:
		m.Add(name, strconv.Itoa(val))
	case int64:
		m.Add(name, strconv.FormatInt(val, 10))
	case float64:
		m.Add(name, strconv.FormatFloat(val, 'f', -1, 64))
	case []string:
		m.AddList(name, val)
	default:
		return m.AddJSON(name, val)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
