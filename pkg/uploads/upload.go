// Package uploads stages file selections for multi-step forms until they are
// submitted.
package uploads

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshocks/bikeshop/pkg/security"
)

// Common errors.
var (
	ErrFileTooLarge    = errors.New("file exceeds maximum size")
	ErrInvalidFileType = errors.New("invalid file type")
	ErrMaxFilesReached = errors.New("maximum number of files reached")
	ErrUndeclaredField = errors.New("field does not accept files on this step")
	ErrEmptyFile       = errors.New("file is empty")
	ErrRecordNotFound  = errors.New("upload record not found")
)

// DefaultMaxFileSize is the size ceiling used by every shop form.
const DefaultMaxFileSize = 5 * 1024 * 1024

// Config configures which files a tracker accepts.
type Config struct {
	// Accept is a list of allowed MIME types. "image/*" style wildcards match
	// a whole family.
	Accept []string

	// MaxFileSize is the maximum file size in bytes.
	MaxFileSize int64

	// MaxEntries is the maximum number of files per field. Zero means no limit.
	MaxEntries int
}

// DefaultConfig accepts images and PDF documents up to 5MB.
func DefaultConfig() Config {
	return Config{
		Accept:      []string{"image/*", "application/pdf"},
		MaxFileSize: DefaultMaxFileSize,
		MaxEntries:  10,
	}
}

// ImageConfig accepts common web image formats only.
func ImageConfig() Config {
	return Config{
		Accept:      []string{"image/jpeg", "image/png", "image/webp", "image/gif"},
		MaxFileSize: DefaultMaxFileSize,
		MaxEntries:  20,
	}
}

// File is a file picked by the user and not yet staged.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Record is a staged file.
type Record struct {
	// ID uniquely identifies the record within a tracker.
	ID string `json:"id"`

	// Field is the form field the file belongs to.
	Field string `json:"field"`

	// FileName is the sanitized original file name.
	FileName string `json:"filename"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ContentType is the MIME type.
	ContentType string `json:"content_type"`

	// Source is a data URL preview for new images, or the remote URL of a
	// file that is already stored server side.
	Source string `json:"source,omitempty"`

	// Data is the raw file content. Empty for existing files.
	Data []byte `json:"-"`

	// IsNew is true for files picked in this session.
	IsNew bool `json:"is_new"`

	// AddedAt is when the record was staged.
	AddedAt time.Time `json:"added_at"`
}

// IsImage reports whether the record holds an image.
func (r Record) IsImage() bool {
	return strings.HasPrefix(r.ContentType, "image/")
}

// Tracker stages files per field for one form session.
type Tracker struct {
	config   Config
	declared map[string]bool
	records  map[string][]Record
	mu       sync.RWMutex
}

// NewTracker creates a new tracker.
func NewTracker(config Config) *Tracker {
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}
	if len(config.Accept) == 0 {
		config.Accept = DefaultConfig().Accept
	}
	return &Tracker{
		config:   config,
		declared: make(map[string]bool),
		records:  make(map[string][]Record),
	}
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config {
	return t.config
}

// Declare replaces the set of fields that currently accept files. Records
// already staged for other fields are kept.
func (t *Tracker) Declare(fields ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.declared = make(map[string]bool, len(fields))
	for _, f := range fields {
		t.declared[f] = true
	}
}

// Declared reports whether field currently accepts files.
func (t *Tracker) Declared(field string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.declared[field]
}

// Check validates a file against the tracker configuration without staging it.
func (t *Tracker) Check(f File) error {
	if len(f.Data) == 0 {
		return ErrEmptyFile
	}
	if int64(len(f.Data)) > t.config.MaxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, f.Name, len(f.Data), t.config.MaxFileSize)
	}
	if !t.isAllowedType(f.ContentType) {
		return fmt.Errorf("%w: %s (%s)", ErrInvalidFileType, f.Name, f.ContentType)
	}
	return nil
}

// Add stages a new file for field. Rejected files never enter the tracker.
func (t *Tracker) Add(field string, f File) (Record, error) {
	if err := t.Check(f); err != nil {
		return Record{}, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.declared[field] {
		return Record{}, fmt.Errorf("%w: %s", ErrUndeclaredField, field)
	}
	if t.config.MaxEntries > 0 && len(t.records[field]) >= t.config.MaxEntries {
		return Record{}, ErrMaxFilesReached
	}

	rec := Record{
		ID:          uuid.NewString(),
		Field:       field,
		FileName:    security.SanitizeFilename(f.Name),
		Size:        int64(len(f.Data)),
		ContentType: f.ContentType,
		Data:        f.Data,
		IsNew:       true,
		AddedAt:     time.Now(),
	}
	if rec.IsImage() {
		rec.Source = dataURL(f.ContentType, f.Data)
	}

	t.records[field] = append(t.records[field], rec)
	return rec, nil
}

// AddExisting registers a file that is already stored by the backend, for
// edit flows. It is shown in previews but never re-uploaded.
func (t *Tracker) AddExisting(field, url, name, contentType string) Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := Record{
		ID:          uuid.NewString(),
		Field:       field,
		FileName:    security.SanitizeFilename(name),
		ContentType: contentType,
		Source:      url,
		AddedAt:     time.Now(),
	}
	t.records[field] = append(t.records[field], rec)
	return rec
}

// Remove drops a record by ID.
func (t *Tracker) Remove(field, id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	recs := t.records[field]
	for i, rec := range recs {
		if rec.ID == id {
			t.records[field] = append(recs[:i:i], recs[i+1:]...)
			if len(t.records[field]) == 0 {
				delete(t.records, field)
			}
			return nil
		}
	}
	return ErrRecordNotFound
}

// Clear drops all records of field.
func (t *Tracker) Clear(field string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.records, field)
}

// Get finds a record by ID in any field.
func (t *Tracker) Get(id string) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, recs := range t.records {
		for _, rec := range recs {
			if rec.ID == id {
				return rec, true
			}
		}
	}
	return Record{}, false
}

// Records returns the records staged for field in selection order.
func (t *Tracker) Records(field string) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	recs := t.records[field]
	if len(recs) == 0 {
		return nil
	}
	out := make([]Record, len(recs))
	copy(out, recs)
	return out
}

// Len returns the number of records staged for field.
func (t *Tracker) Len(field string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records[field])
}

// Fields returns the fields that hold at least one record, sorted.
func (t *Tracker) Fields() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	fields := make([]string, 0, len(t.records))
	for f := range t.records {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// Pending returns the records that must be attached to a submission: new
// files with content. Existing server-side files are skipped.
func (t *Tracker) Pending() map[string][]Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string][]Record)
	for field, recs := range t.records {
		for _, rec := range recs {
			if rec.IsNew && len(rec.Data) > 0 {
				out[field] = append(out[field], rec)
			}
		}
	}
	return out
}

// Reset drops every record and declaration.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.declared = make(map[string]bool)
	t.records = make(map[string][]Record)
}

func (t *Tracker) isAllowedType(contentType string) bool {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if contentType == "" {
		return false
	}
	for _, allowed := range t.config.Accept {
		if allowed == "*/*" {
			return true
		}
		if strings.HasSuffix(allowed, "/*") {
			prefix := strings.TrimSuffix(allowed, "*")
			if strings.HasPrefix(contentType, prefix) {
				return true
			}
		}
		if allowed == contentType {
			return true
		}
	}
	return false
}

func dataURL(contentType string, data []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
