package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"e.coding.net/Love54dj/weizhong/md2txt/md2txt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memCache struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func newMemCache() *memCache { return &memCache{data: map[string]string{}} }

func (m *memCache) Get(_ context.Context, input string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[input]
	return v, ok, nil
}

func (m *memCache) Set(_ context.Context, input string, output string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[input] = output
	return nil
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("invalid JSON response %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	w := do(t, New(Options{}), http.MethodGet, "/healthz", "", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("healthz = %d %s", w.Code, w.Body.String())
	}
}

func TestConvertPlainBody(t *testing.T) {
	w := do(t, New(Options{}), http.MethodPost, "/api/convert", "text/plain", "# Title\n* item one\n* item two")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ConvertResponse](t, w)
	if resp.Output != "Title\n1. item one\n2. item two" {
		t.Errorf("output = %q", resp.Output)
	}
	if resp.Stats != nil {
		t.Error("stats should be omitted unless requested")
	}
}

func TestConvertJSONWithStats(t *testing.T) {
	body := `{"text": "# T\n\n**b** and [l](http://x)"}`
	w := do(t, New(Options{}), http.MethodPost, "/api/convert?stats=true", "application/json", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ConvertResponse](t, w)
	if resp.Output != "T\n\nb and l" {
		t.Errorf("output = %q", resp.Output)
	}
	if resp.Stats == nil || resp.Stats.Headings != 1 || resp.Stats.Strong != 1 || resp.Stats.Links != 1 {
		t.Errorf("stats = %+v", resp.Stats)
	}
}

func TestConvertTextFormat(t *testing.T) {
	w := do(t, New(Options{}), http.MethodPost, "/api/convert?format=text", "text/plain", "* a\n    * b")
	if w.Code != http.StatusOK || w.Body.String() != "1. a\n(1)b" {
		t.Errorf("got %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestConvertBlank(t *testing.T) {
	w := do(t, New(Options{}), http.MethodPost, "/api/convert", "text/plain", "   \n  ")
	if resp := decode[ConvertResponse](t, w); w.Code != http.StatusOK || resp.Output != "" {
		t.Errorf("got %d %+v", w.Code, resp)
	}
}

func TestConvertErrors(t *testing.T) {
	s := New(Options{MaxInputBytes: 8})
	if w := do(t, s, http.MethodPost, "/api/convert", "text/plain", strings.Repeat("x", 100)); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("oversized input status = %d", w.Code)
	}
	if w := do(t, New(Options{}), http.MethodPost, "/api/convert", "application/json", "{bad"); w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d", w.Code)
	}
	if w := do(t, New(Options{}), http.MethodPost, "/api/convert?stats=maybe", "text/plain", "x"); w.Code != http.StatusBadRequest {
		t.Errorf("bad query status = %d", w.Code)
	}
	if w := do(t, New(Options{}), http.MethodPost, "/api/convert?format=text&stats=true", "text/plain", "x"); w.Code != http.StatusBadRequest {
		t.Errorf("stats with text format status = %d", w.Code)
	}
}

func TestConvertUsesCache(t *testing.T) {
	c := newMemCache()
	s := New(Options{Cache: c})

	first := decode[ConvertResponse](t, do(t, s, http.MethodPost, "/api/convert", "text/plain", "* a"))
	second := decode[ConvertResponse](t, do(t, s, http.MethodPost, "/api/convert", "text/plain", "* a"))
	if first.Cached || !second.Cached {
		t.Errorf("cached flags = %v, %v; want false, true", first.Cached, second.Cached)
	}
	if second.Output != "1. a" {
		t.Errorf("cached output = %q", second.Output)
	}

	c.getErr = errors.New("redis down")
	third := decode[ConvertResponse](t, do(t, s, http.MethodPost, "/api/convert", "text/plain", "* b"))
	if third.Cached || third.Output != "1. b" {
		t.Errorf("cache failure should fall back to converting: %+v", third)
	}
}

func TestExport(t *testing.T) {
	var gotContent, gotName, gotUser string
	upload := func(_ context.Context, content, name, user string) (string, error) {
		gotContent, gotName, gotUser = content, name, user
		return "/exports/x/" + name, nil
	}
	s := New(Options{Exporters: map[string]UploadFunc{"local": upload}})

	w := do(t, s, http.MethodPost, "/api/export?backend=local&name=../../notes.md", "text/plain", "* **a**")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ExportResponse](t, w)
	if resp.Name != "notes.txt" || resp.URL != "/exports/x/notes.txt" {
		t.Errorf("resp = %+v", resp)
	}
	if gotContent != "1. a" || gotName != "notes.txt" || gotUser != defaultUser {
		t.Errorf("upload got %q %q %q", gotContent, gotName, gotUser)
	}
}

func TestExportErrors(t *testing.T) {
	failing := func(context.Context, string, string, string) (string, error) {
		return "", errors.New("bucket gone")
	}
	s := New(Options{Exporters: map[string]UploadFunc{"cos": failing}})

	tests := []struct {
		name   string
		target string
		body   string
		want   int
	}{
		{"missing backend", "/api/export", "x", http.StatusBadRequest},
		{"unknown backend", "/api/export?backend=local", "x", http.StatusBadRequest},
		{"empty output", "/api/export?backend=cos", "  \n", http.StatusBadRequest},
		{"upload failure", "/api/export?backend=cos", "x", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if w := do(t, s, http.MethodPost, tt.target, "text/plain", tt.body); w.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestExportName(t *testing.T) {
	cases := map[string]string{
		"notes":               "notes.txt",
		"notes.md":            "notes.txt",
		"../../etc/passwd.md": "passwd.txt",
		`C:\docs\plan.markdown`: "plan.txt",
	}
	for in, want := range cases {
		if got := exportName(in); got != want {
			t.Errorf("exportName(%q) = %q, want %q", in, got, want)
		}
	}
	for _, in := range []string{"", "..", "/", ".hidden"} {
		got := exportName(in)
		if len(got) != 36+len(".txt") || !strings.HasSuffix(got, ".txt") {
			t.Errorf("exportName(%q) = %q, want uuid name", in, got)
		}
	}
}

func TestLive(t *testing.T) {
	ts := httptest.NewServer(New(Options{MaxInputBytes: 64}).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/convert"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// 模拟逐字输入
	for i, text := range []string{"*", "* ", "* a", "* a\n    * b"} {
		if err := conn.WriteJSON(LiveRequest{Seq: int64(i + 1), Text: text}); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"*", "1.", "1. a", "1. a\n(1)b"}
	for i, w := range want {
		var resp LiveResponse
		if err := conn.ReadJSON(&resp); err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if resp.Seq != int64(i+1) || resp.Output != w {
			t.Errorf("reply %d = %+v, want seq %d output %q", i, resp, i+1, w)
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatal(err)
	}
	var resp LiveResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error == "" {
		t.Error("invalid message should produce an error reply")
	}

	big, _ := json.Marshal(LiveRequest{Seq: 9, Text: strings.Repeat("x", 4096)})
	if err := conn.WriteMessage(websocket.TextMessage, big); err != nil {
		t.Fatal(err)
	}
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
		t.Errorf("oversized message err = %v, want close 1009", err)
	}
}

func dialLive(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/convert"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func TestLiveInputLimit(t *testing.T) {
	s := New(Options{MaxInputBytes: 64})

	// 换行在 JSON 中占两个字节，按文本长度计算仍未超限
	conn := dialLive(t, s)
	atLimit := strings.Repeat("a\n", 32)
	if err := conn.WriteJSON(LiveRequest{Seq: 1, Text: atLimit}); err != nil {
		t.Fatal(err)
	}
	var resp LiveResponse
	if err := conn.ReadJSON(&resp); err != nil {
		t.Fatalf("text at the limit should be converted: %v", err)
	}
	if resp.Seq != 1 || resp.Output != md2txt.Convert(atLimit) {
		t.Errorf("reply = %+v", resp)
	}

	// 比 HTTP 上限多一个字节也要关闭，与 413 一致
	over := strings.Repeat("x", 65)
	if w := do(t, s, http.MethodPost, "/api/convert", "text/plain", over); w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("HTTP status = %d, want 413", w.Code)
	}
	conn = dialLive(t, s)
	if err := conn.WriteJSON(LiveRequest{Seq: 2, Text: over}); err != nil {
		t.Fatal(err)
	}
	_, _, err := conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseMessageTooBig) {
		t.Errorf("err = %v, want close 1009", err)
	}
}
