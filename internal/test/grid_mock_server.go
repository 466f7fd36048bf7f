package test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// GridHandler simulates an Infoblox grid master WAPI endpoint with an
// in-memory object store. It implements the authentication handshake
// (Basic credentials on the grid object exchange an ibapauth cookie),
// object CRUD, search, and object function calls.
type GridHandler struct {
	Username      string
	Password      string
	SessionCookie string

	mu       sync.Mutex
	objects  map[string][]map[string]any
	refSeq   int
	revoked  map[string]bool
	requests []string

	// FunctionResults maps a function name (e.g. "next_available_ip") to
	// the raw JSON the grid should answer with.
	FunctionResults map[string]string
	// Overrides maps "METHOD /path" (path relative to the WAPI version
	// root) to a handler that takes precedence over the default behavior.
	Overrides map[string]http.HandlerFunc
}

var _ http.Handler = (*GridHandler)(nil)

func NewGridHandler() *GridHandler {
	return &GridHandler{
		Username:        "admin",
		Password:        "infoblox",
		SessionCookie:   "session-0001",
		objects:         map[string][]map[string]any{},
		revoked:         map[string]bool{},
		FunctionResults: map[string]string{},
		Overrides:       map[string]http.HandlerFunc{},
	}
}

// NewGridServer starts an httptest TLS server backed by a fresh GridHandler.
func NewGridServer() (*httptest.Server, *GridHandler) {
	handler := NewGridHandler()
	return httptest.NewTLSServer(handler), handler
}

// AddObject seeds the store with an object of the given type, assigning a
// _ref when none is present. Returns the object's _ref.
func (h *GridHandler) AddObject(objType string, fields map[string]any) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	obj := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		obj[k] = v
	}
	if _, ok := obj["_ref"]; !ok {
		h.refSeq++
		obj["_ref"] = fmt.Sprintf("%s/ZG5zLm5ldHdvcmskMTA%d:default", objType, h.refSeq)
	}
	h.objects[objType] = append(h.objects[objType], obj)
	return obj["_ref"].(string)
}

// Objects returns the stored objects of the given type.
func (h *GridHandler) Objects(objType string) []map[string]any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]map[string]any{}, h.objects[objType]...)
}

// RevokeSession invalidates the current session cookie and rotates in a new
// one, forcing clients to re-authenticate.
func (h *GridHandler) RevokeSession() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.revoked[h.SessionCookie] = true
	h.refSeq++
	h.SessionCookie = fmt.Sprintf("session-%04d", h.refSeq)
}

// Requests returns the "METHOD /path" log of every request seen so far.
func (h *GridHandler) Requests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string{}, h.requests...)
}

func (h *GridHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.mu.Lock()
	h.requests = append(h.requests, req.Method+" "+req.URL.Path)
	h.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	// Strip /wapi/<version> prefix.
	parts := strings.SplitN(strings.TrimPrefix(req.URL.Path, "/"), "/", 3)
	if len(parts) < 3 || parts[0] != "wapi" {
		http.Error(w, `{"Error":"not a WAPI path"}`, http.StatusBadRequest)
		return
	}
	path := parts[2]

	if override, ok := h.Overrides[req.Method+" /"+path]; ok {
		override(w, req)
		return
	}

	authenticated, viaBasic := h.checkAuth(req)
	if !authenticated {
		http.Error(w, `{"Error":"AdmConProtoError: Invalid credentials"}`, http.StatusUnauthorized)
		return
	}

	if path == "grid" && req.Method == http.MethodGet {
		if viaBasic {
			h.mu.Lock()
			cookie := h.SessionCookie
			h.mu.Unlock()
			http.SetCookie(w, &http.Cookie{Name: "ibapauth", Value: cookie, Path: "/"})
		}
		_, _ = w.Write([]byte(`[{"_ref":"grid/b25lLmNsdXN0ZXIkMA:Infoblox"}]`))
		return
	}

	if path == "logout" && req.Method == http.MethodPost {
		_, _ = w.Write([]byte(`{}`))
		return
	}

	if function := req.URL.Query().Get("_function"); function != "" {
		if result, ok := h.FunctionResults[function]; ok {
			_, _ = w.Write([]byte(result))
			return
		}
		http.Error(w, fmt.Sprintf(`{"Error":"unknown function %s"}`, function), http.StatusBadRequest)
		return
	}

	isRef := strings.Contains(path, "/")
	switch {
	case req.Method == http.MethodGet && !isRef:
		h.search(w, req, path)
	case req.Method == http.MethodGet && isRef:
		h.get(w, path)
	case req.Method == http.MethodPost && !isRef:
		h.create(w, req, path)
	case req.Method == http.MethodPut && isRef:
		h.update(w, req, path)
	case req.Method == http.MethodDelete && isRef:
		h.delete(w, path)
	default:
		http.Error(w, `{"Error":"unsupported operation"}`, http.StatusBadRequest)
	}
}

func (h *GridHandler) checkAuth(req *http.Request) (authenticated, viaBasic bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cookie, err := req.Cookie("ibapauth"); err == nil {
		return cookie.Value == h.SessionCookie && !h.revoked[cookie.Value], false
	}
	if user, pass, ok := req.BasicAuth(); ok {
		return user == h.Username && pass == h.Password, true
	}
	return false, false
}

func (h *GridHandler) search(w http.ResponseWriter, req *http.Request, objType string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	matches := make([]map[string]any, 0)
	for _, obj := range h.objects[objType] {
		if matchesQuery(obj, req.URL.Query()) {
			matches = append(matches, obj)
		}
	}
	_ = json.NewEncoder(w).Encode(matches)
}

func (h *GridHandler) get(w http.ResponseWriter, ref string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, objs := range h.objects {
		for _, obj := range objs {
			if obj["_ref"] == ref {
				_ = json.NewEncoder(w).Encode(obj)
				return
			}
		}
	}
	http.Error(w, `{"Error":"AdmConDataNotFoundError"}`, http.StatusNotFound)
}

func (h *GridHandler) create(w http.ResponseWriter, req *http.Request, objType string) {
	var fields map[string]any
	if err := json.NewDecoder(req.Body).Decode(&fields); err != nil {
		http.Error(w, `{"Error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refSeq++
	ref := fmt.Sprintf("%s/ZG5zLm5ldHdvcmskMTA%d:default", objType, h.refSeq)
	fields["_ref"] = ref
	h.objects[objType] = append(h.objects[objType], fields)
	_ = json.NewEncoder(w).Encode(ref)
}

func (h *GridHandler) update(w http.ResponseWriter, req *http.Request, ref string) {
	var fields map[string]any
	if err := json.NewDecoder(req.Body).Decode(&fields); err != nil {
		http.Error(w, `{"Error":"invalid body"}`, http.StatusBadRequest)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, objs := range h.objects {
		for _, obj := range objs {
			if obj["_ref"] == ref {
				for k, v := range fields {
					obj[k] = v
				}
				_ = json.NewEncoder(w).Encode(ref)
				return
			}
		}
	}
	http.Error(w, `{"Error":"AdmConDataNotFoundError"}`, http.StatusNotFound)
}

func (h *GridHandler) delete(w http.ResponseWriter, ref string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for objType, objs := range h.objects {
		for i, obj := range objs {
			if obj["_ref"] == ref {
				h.objects[objType] = append(objs[:i], objs[i+1:]...)
				_ = json.NewEncoder(w).Encode(ref)
				return
			}
		}
	}
	http.Error(w, `{"Error":"AdmConDataNotFoundError"}`, http.StatusNotFound)
}

// matchesQuery reports whether every non-underscore query parameter matches
// the object's field with the same name. Underscore parameters
// (_return_type, _return_fields, ...) are WAPI options, not filters.
func matchesQuery(obj map[string]any, query map[string][]string) bool {
	for key, values := range query {
		if strings.HasPrefix(key, "_") {
			continue
		}
		field := strings.TrimSuffix(key, "~")
		want := values[0]
		got, ok := obj[field]
		if !ok {
			return false
		}
		if fmt.Sprintf("%v", got) != want {
			return false
		}
	}
	return true
}
