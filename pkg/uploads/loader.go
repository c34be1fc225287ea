package uploads

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// loadConcurrency bounds parallel disk reads in AddPaths.
const loadConcurrency = 4

// ReadFile loads a file from disk and works out its content type from the
// extension. Images and PDFs take the sniffed type instead, so a mislabelled
// file fails the tracker's type check.
func ReadFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return File{
		Name:        filepath.Base(path),
		ContentType: detectContentType(path, data),
		Data:        data,
	}, nil
}

// AddPaths loads files from disk in parallel and stages them for field.
// Either every file is staged or none is.
func (t *Tracker) AddPaths(ctx context.Context, field string, paths []string) ([]Record, error) {
	if !t.Declared(field) {
		return nil, fmt.Errorf("%w: %s", ErrUndeclaredField, field)
	}

	files := make([]File, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(loadConcurrency)

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f, err := ReadFile(p)
			if err != nil {
				return err
			}
			if err := t.Check(f); err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	t.mu.RLock()
	room := t.config.MaxEntries - len(t.records[field])
	t.mu.RUnlock()
	if t.config.MaxEntries > 0 && len(files) > room {
		return nil, ErrMaxFilesReached
	}

	recs := make([]Record, 0, len(files))
	for _, f := range files {
		rec, err := t.Add(field, f)
		if err != nil {
			for _, added := range recs {
				t.Remove(field, added.ID)
			}
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func detectContentType(path string, data []byte) string {
	sniffed := baseType(http.DetectContentType(data))
	ext := baseType(mime.TypeByExtension(strings.ToLower(filepath.Ext(path))))
	switch {
	case ext == "":
		return sniffed
	case ext == "application/pdf", strings.HasPrefix(ext, "image/") && ext != "image/svg+xml":
		return sniffed
	}
	return ext
}

func baseType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(ct)
}
