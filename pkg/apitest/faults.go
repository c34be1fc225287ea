package apitest

import (
	"net/http"
	"sync"
)

// Fault makes a route answer with Status instead of its handler.
type Fault struct {
	Status  int
	Message string

	// Times is how many requests fail before the fault clears. Zero means
	// every request fails until Clear.
	Times int
}

// FaultInjector holds faults keyed by method and path.
type FaultInjector struct {
	faults map[string]*Fault
	mu     sync.Mutex
}

// NewFaultInjector creates an empty injector.
func NewFaultInjector() *FaultInjector {
	return &FaultInjector{
		faults: make(map[string]*Fault),
	}
}

// Fail registers a fault for method and path.
func (fi *FaultInjector) Fail(method, path string, f Fault) {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	if f.Message == "" {
		f.Message = http.StatusText(f.Status)
	}
	fi.faults[method+" "+path] = &f
}

// Clear removes every fault.
func (fi *FaultInjector) Clear() {
	fi.mu.Lock()
	defer fi.mu.Unlock()
	clear(fi.faults)
}

// Check returns the fault to answer with, or nil.
func (fi *FaultInjector) Check(method, path string) *Fault {
	fi.mu.Lock()
	defer fi.mu.Unlock()

	key := method + " " + path
	f, ok := fi.faults[key]
	if !ok {
		return nil
	}
	hit := *f
	if f.Times > 0 {
		f.Times--
		if f.Times == 0 {
			delete(fi.faults, key)
		}
	}
	return &hit
}
