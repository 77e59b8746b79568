package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// FakeAPI is an in-memory REST backend speaking the same resource routes as
// the real server: GET/POST /{resource}, GET/PATCH/DELETE /{resource}/{id},
// PATCH /notifications/{id}/read, GET /notifications/unread-count and
// GET /dashboard/summary.
type FakeAPI struct {
	*httptest.Server

	// Token, when set, is required as a bearer token on every request.
	Token string

	mu          sync.Mutex
	collections map[string][]map[string]any
	requests    map[string]int
	failures    map[string]injectedFailure
	summary     any
	latency     time.Duration
}

type injectedFailure struct {
	status int
	sticky bool
}

// NewFakeAPI starts a FakeAPI that is closed when the test completes.
func NewFakeAPI(t *testing.T) *FakeAPI {
	t.Helper()
	f := &FakeAPI{
		collections: make(map[string][]map[string]any),
		requests:    make(map[string]int),
		failures:    make(map[string]injectedFailure),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Seed appends items to a resource collection. Items are stored in their
// JSON form.
func (f *FakeAPI) Seed(resource string, items ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range items {
		f.collections[resource] = append(f.collections[resource], toMap(it))
	}
}

// Items returns the stored JSON objects of a resource.
func (f *FakeAPI) Items(resource string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]map[string]any, len(f.collections[resource]))
	copy(out, f.collections[resource])
	return out
}

// Requests counts calls to "METHOD /path" (query string excluded).
func (f *FakeAPI) Requests(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[method+" "+path]
}

// FailNext makes the next request to method+path answer with status.
func (f *FakeAPI) FailNext(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = injectedFailure{status: status}
}

// FailAlways makes every request to method+path answer with status until
// ClearFailures is called.
func (f *FakeAPI) FailAlways(method, path string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method+" "+path] = injectedFailure{status: status, sticky: true}
}

func (f *FakeAPI) ClearFailures() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = make(map[string]injectedFailure)
}

// SetSummary sets the body served by GET /dashboard/summary.
func (f *FakeAPI) SetSummary(v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summary = v
}

// SetLatency delays every response.
func (f *FakeAPI) SetLatency(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency = d
}

func (f *FakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	f.mu.Lock()
	f.requests[key]++
	latency := f.latency
	fail, failing := f.failures[key]
	if failing && !fail.sticky {
		delete(f.failures, key)
	}
	f.mu.Unlock()

	if latency > 0 {
		time.Sleep(latency)
	}
	if f.Token != "" && r.Header.Get("Authorization") != "Bearer "+f.Token {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthorized"})
		return
	}
	if failing {
		writeJSON(w, fail.status, map[string]any{"message": fmt.Sprintf("injected %d", fail.status)})
		return
	}

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 2 && parts[0] == "dashboard" && parts[1] == "summary":
		f.mu.Lock()
		summary := f.summary
		f.mu.Unlock()
		if summary == nil {
			summary = map[string]any{}
		}
		writeJSON(w, http.StatusOK, summary)
	case len(parts) == 2 && parts[0] == "notifications" && parts[1] == "unread-count":
		writeJSON(w, http.StatusOK, map[string]any{"count": f.unread()})
	case len(parts) == 3 && parts[0] == "notifications" && parts[2] == "read" && r.Method == http.MethodPatch:
		f.patch(w, "notifications", parts[1], map[string]any{"read": true})
	case len(parts) == 1:
		f.collection(w, r, parts[0])
	case len(parts) == 2:
		f.member(w, r, parts[0], parts[1])
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Cannot " + key})
	}
}

func (f *FakeAPI) collection(w http.ResponseWriter, r *http.Request, resource string) {
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		var out []map[string]any
		for _, it := range f.collections[resource] {
			if matchesQuery(it, r) {
				out = append(out, it)
			}
		}
		f.mu.Unlock()
		if out == nil {
			out = []map[string]any{}
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		if id, _ := body["id"].(string); id == "" {
			body["id"] = uuid.New().String()
		}
		body["createdAt"] = now
		body["updatedAt"] = now
		f.mu.Lock()
		f.collections[resource] = append(f.collections[resource], body)
		f.mu.Unlock()
		writeJSON(w, http.StatusCreated, body)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
	}
}

func (f *FakeAPI) member(w http.ResponseWriter, r *http.Request, resource, id string) {
	switch r.Method {
	case http.MethodGet:
		f.mu.Lock()
		defer f.mu.Unlock()
		for _, it := range f.collections[resource] {
			if it["id"] == id {
				writeJSON(w, http.StatusOK, it)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"message": resource + " not found"})
	case http.MethodPatch:
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		f.patch(w, resource, id, body)
	case http.MethodDelete:
		f.mu.Lock()
		defer f.mu.Unlock()
		items := f.collections[resource]
		for i, it := range items {
			if it["id"] == id {
				f.collections[resource] = append(items[:i:i], items[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
		writeJSON(w, http.StatusNotFound, map[string]any{"message": resource + " not found"})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"message": "method not allowed"})
	}
}

func (f *FakeAPI) patch(w http.ResponseWriter, resource, id string, fields map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, it := range f.collections[resource] {
		if it["id"] != id {
			continue
		}
		for k, v := range fields {
			if k == "id" || k == "createdAt" {
				continue
			}
			it[k] = v
		}
		it["updatedAt"] = time.Now().UTC().Format(time.RFC3339Nano)
		writeJSON(w, http.StatusOK, it)
		return
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"message": resource + " not found"})
}

func (f *FakeAPI) unread() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, it := range f.collections["notifications"] {
		if read, _ := it["read"].(bool); !read {
			n++
		}
	}
	return n
}

func matchesQuery(item map[string]any, r *http.Request) bool {
	for k, vals := range r.URL.Query() {
		if len(vals) == 0 {
			continue
		}
		if fmt.Sprint(item[k]) != vals[0] {
			return false
		}
	}
	return true
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("testutil: marshaling seed: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		panic(fmt.Sprintf("testutil: seed is not a JSON object: %v", err))
	}
	return m
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
