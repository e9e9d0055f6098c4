package telegram

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

// decodeRequest decodes a Bot API request body into a generic map, keeping
// numbers as json.Number so large chat IDs compare exactly.
func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	out := map[string]any{}
	if err := dec.Decode(&out); err != nil && err != io.EOF {
		t.Errorf("decode request: %v", err)
	}
	return out
}

// apiCall is one request received by a fakeAPI.
type apiCall struct {
	Method string
	Body   map[string]any
}

// fakeAPI is a scripted Bot API server. Handlers are keyed by method name;
// methods without a handler answer {"ok":true,"result":true}.
type fakeAPI struct {
	t        *testing.T
	srv      *httptest.Server
	mu       sync.Mutex
	calls    []apiCall
	handlers map[string]func(w http.ResponseWriter, body map[string]any)
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{t: t, handlers: make(map[string]func(http.ResponseWriter, map[string]any))}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) handle(method string, h func(w http.ResponseWriter, body map[string]any)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method] = h
}

func (f *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	method := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
	body := decodeRequest(f.t, r)

	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Body: body})
	h := f.handlers[method]
	f.mu.Unlock()

	if h != nil {
		h(w, body)
		return
	}
	writeJSON(f.t, w, APIResponse[bool]{OK: true, Result: true})
}

func (f *fakeAPI) Calls(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeAPI) client() *Client {
	return NewClient("123:TOKEN", f.srv.URL)
}
