package submit

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/oshocks/bikeshop/pkg/uploads"
)

func TestFor_JSONWithoutFiles(t *testing.T) {
	p, err := For(map[string]any{"name": "Achieng Otieno", "email": "a@example.com"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.(JSON); !ok {
		t.Fatalf("expected JSON payload, got %T", p)
	}

	body, err := p.Encode()
	if err != nil {
		t.Fatal(err)
	}
	if body.ContentType != "application/json" {
		t.Errorf("expected application/json, got %s", body.ContentType)
	}
	var got map[string]any
	if err := json.NewDecoder(body.Reader).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got["name"] != "Achieng Otieno" {
		t.Errorf("expected name, got %v", got["name"])
	}
}

func TestFor_MultipartWithFiles(t *testing.T) {
	files := map[string][]uploads.Record{
		"id_document": {{FileName: "id.pdf", ContentType: "application/pdf", Data: []byte("pdf")}},
		"photos": {
			{FileName: "a.png", ContentType: "image/png", Data: []byte("a")},
			{FileName: "b.png", ContentType: "image/png", Data: []byte("b")},
		},
	}
	values := map[string]any{
		"business_name": "Kona Cycles",
		"terms":         true,
		"service_areas": []string{"Nairobi", "Thika"},
		"meta":          map[string]string{"k": "v"},
		"skipped":       nil,
	}

	p, err := For(values, files)
	if err != nil {
		t.Fatal(err)
	}
	m, ok := p.(*Multipart)
	if !ok {
		t.Fatalf("expected multipart payload, got %T", p)
	}

	form := decodeMultipart(t, m)

	want := map[string][]string{
		"business_name":   {"Kona Cycles"},
		"terms":           {"1"},
		"service_areas[]": {"Nairobi", "Thika"},
		"meta":            {`{"k":"v"}`},
	}
	if diff := cmp.Diff(want, form.Value); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if len(form.File["id_document"]) != 1 {
		t.Errorf("expected one id_document, got %d", len(form.File["id_document"]))
	}
	if len(form.File["photos[]"]) != 2 {
		t.Errorf("expected two photos[] entries, got %d", len(form.File["photos[]"]))
	}
}

func TestMultipart_FileContentType(t *testing.T) {
	m := NewMultipart().AddFile("doc", uploads.Record{FileName: `we"ird.pdf`, ContentType: "application/pdf", Data: []byte("x")})

	form := decodeMultipart(t, m)
	fh := form.File["doc"][0]
	if fh.Header.Get("Content-Type") != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", fh.Header.Get("Content-Type"))
	}
	if fh.Filename != `we"ird.pdf` {
		t.Errorf("expected quoted filename to round trip, got %q", fh.Filename)
	}
}

func decodeMultipart(t *testing.T, m *Multipart) *multipart.Form {
	t.Helper()
	body, err := m.Encode()
	if err != nil {
		t.Fatal(err)
	}
	_, params, err := mime.ParseMediaType(body.ContentType)
	if err != nil {
		t.Fatal(err)
	}
	data, err := io.ReadAll(body.Reader)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != body.Length {
		t.Errorf("expected length %d, got %d", body.Length, len(data))
	}
	r := multipart.NewReader(bytes.NewReader(data), params["boundary"])
	form, err := r.ReadForm(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	return form
}
