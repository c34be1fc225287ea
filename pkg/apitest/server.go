// Package apitest runs an in-process fake of the shop backend for tests. It
// issues XSRF cookies, rejects mutating calls without a matching header with
// 419, records every request, and serves whatever routes a test registers.
package apitest

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oshocks/bikeshop/pkg/security"
)

// CSRFPath is where the fake serves the XSRF cookie.
const CSRFPath = "/sanctum/csrf-cookie"

// FileInfo describes an uploaded multipart file.
type FileInfo struct {
	Name        string
	ContentType string
	Size        int64
}

// Request is a recorded request.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte

	// Form holds multipart values; Files holds multipart files by field.
	Form  url.Values
	Files map[string][]FileInfo
}

// JSON decodes a JSON body into a map, or returns nil.
func (r Request) JSON() map[string]any {
	var m map[string]any
	if json.Unmarshal(r.Body, &m) != nil {
		return nil
	}
	return m
}

// IsMultipart reports whether the body was multipart/form-data.
func (r Request) IsMultipart() bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// Server is a fake backend.
type Server struct {
	*httptest.Server

	issuer atomic.Pointer[security.CSRFIssuer]
	faults *FaultInjector

	mu       sync.Mutex
	routes   map[string]http.HandlerFunc
	requests []Request
	hold     chan struct{}
}

// NewServer starts a fake backend. Close it when done.
func NewServer() *Server {
	s := &Server{
		faults: NewFaultInjector(),
		routes: make(map[string]http.HandlerFunc),
	}
	s.issuer.Store(security.NewCSRFIssuer(nil, time.Hour))
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

// Faults returns the fault injector consulted before each route.
func (s *Server) Faults() *FaultInjector {
	return s.faults
}

// Handle registers h for method and path. Paths include the /api prefix.
func (s *Server) Handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" "+path] = h
}

// Respond returns a handler writing body as JSON with status.
func Respond(status int, body any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			json.NewEncoder(w).Encode(body)
		}
	}
}

// RotateCSRF changes the signing secret so every cookie issued so far is
// rejected with 419.
func (s *Server) RotateCSRF() {
	s.issuer.Store(security.NewCSRFIssuer(nil, time.Hour))
}

// HoldCSRF makes the cookie endpoint block until the returned func is called.
func (s *Server) HoldCSRF() (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.hold = ch
	s.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(ch)
		})
	}
}

// Requests returns a copy of every recorded request.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests hit method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// Last returns the most recent request to method and path.
func (s *Server) Last(method, path string) (Request, bool) {
	reqs := s.Requests()
	for i := len(reqs) - 1; i >= 0; i-- {
		if reqs[i].Method == method && reqs[i].Path == path {
			return reqs[i], true
		}
	}
	return Request{}, false
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	s.record(r)

	if r.URL.Path == CSRFPath && r.Method == http.MethodGet {
		s.serveCSRF(w, r)
		return
	}
	if err := s.faults.Check(r.Method, r.URL.Path); err != nil {
		Respond(err.Status, map[string]any{"message": err.Message})(w, r)
		return
	}

	s.mu.Lock()
	h, ok := s.routes[r.Method+" "+r.URL.Path]
	s.mu.Unlock()
	if !ok {
		h = Respond(http.StatusNotFound, map[string]any{"message": "Not Found"})
	}
	s.issuer.Load().Middleware(h).ServeHTTP(w, r)
}

func (s *Server) serveCSRF(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	hold := s.hold
	s.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-r.Context().Done():
			return
		}
	}
	if err := s.faults.Check(r.Method, r.URL.Path); err != nil {
		Respond(err.Status, map[string]any{"message": err.Message})(w, r)
		return
	}
	if _, err := s.issuer.Load().Issue(w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) record(r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	rec := Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	}
	if mt, params, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err == nil && mt == "multipart/form-data" {
		rec.Form, rec.Files = parseMultipart(body, params["boundary"])
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	s.mu.Unlock()
}

func parseMultipart(body []byte, boundary string) (url.Values, map[string][]FileInfo) {
	form := url.Values{}
	files := make(map[string][]FileInfo)
	mr := multipart.NewReader(bytes.NewReader(body), boundary)
	for {
		p, err := mr.NextPart()
		if err != nil {
			break
		}
		data, _ := io.ReadAll(p)
		if p.FileName() != "" {
			files[p.FormName()] = append(files[p.FormName()], FileInfo{
				Name:        p.FileName(),
				ContentType: p.Header.Get("Content-Type"),
				Size:        int64(len(data)),
			})
			continue
		}
		form.Add(p.FormName(), string(data))
	}
	return form, files
}
