package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/youruser/cardforge/internal/catalog"
	imagepkg "github.com/youruser/cardforge/internal/image"
	"github.com/youruser/cardforge/internal/layout"
	"github.com/youruser/cardforge/internal/render"
	"github.com/youruser/cardforge/internal/tiers"
)

type fakeCatalog struct {
	mu      sync.Mutex
	errs    map[string]error
	calls   int
	started chan struct{} // closed on the first call when set
	release chan struct{} // first call waits on it when set
}

func (f *fakeCatalog) Metadata(_ context.Context, hash string) (*catalog.Metadata, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()
	if first && f.started != nil {
		close(f.started)
		<-f.release
	}
	if err := f.errs[hash]; err != nil {
		return nil, err
	}
	return &catalog.Metadata{ID: "id" + hash, DisplayName: "Song " + hash, AuthorName: "Artist", ContentHash: hash}, nil
}

type fakeRatings struct{}

func (fakeRatings) Tiers(context.Context, string) (tiers.Ratings, error) {
	return tiers.Ratings{tiers.ES: "2.10", tiers.HARD: tiers.Qualified}, nil
}

type fakeLayouts map[string]*layout.CardConfig

func (f fakeLayouts) Get(name string) (*layout.CardConfig, bool) {
	cfg, ok := f[name]
	return cfg, ok
}

func (f fakeLayouts) Names() []string {
	var out []string
	for k := range f {
		out = append(out, k)
	}
	return out
}

func newTestServer(t *testing.T, cat *fakeCatalog) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cat == nil {
		cat = &fakeCatalog{}
	}
	h := NewHandler(Handler{
		Renderer: render.New(render.NewFontCache(""), imagepkg.NewLoader(time.Second, 4), logger),
		Layouts: fakeLayouts{
			"small": {Width: 200, Height: 80, Components: []layout.Component{
				&layout.TextComponent{Text: "{displayName}", Font: "12px sans"},
			}},
		},
		Catalog: cat,
		Ratings: fakeRatings{},
		Logger:  logger,
		Options: Options{RetryDelay: time.Millisecond, MaxRecords: 10},
	})
	r := gin.New()
	RegisterRoutes(r, h)
	return r
}

func do(r http.Handler, method, target, contentType string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func pngSize(t *testing.T, b []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		t.Fatalf("response is not a PNG: %v", err)
	}
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func errorOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %s", w.Body.String())
	}
	msg, _ := body["error"].(string)
	return msg
}

func TestHealthAndLayouts(t *testing.T) {
	r := newTestServer(t, nil)

	w := do(r, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"layouts":1`) {
		t.Errorf("health = %d %s", w.Code, w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/layouts", "", nil)
	if !strings.Contains(w.Body.String(), "small") {
		t.Errorf("layouts = %s", w.Body.String())
	}

	w = do(r, http.MethodGet, "/api/layouts/schema", "", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "cardCornerRadius") {
		t.Errorf("schema = %d %s", w.Code, w.Body.String())
	}
}

func TestQR(t *testing.T) {
	r := newTestServer(t, nil)
	w := do(r, http.MethodGet, "/api/qr?text=hello&size=128", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("qr status = %d", w.Code)
	}
	if width, _ := pngSize(t, w.Body.Bytes()); width != 128 {
		t.Errorf("qr width = %d", width)
	}
	if w := do(r, http.MethodGet, "/api/qr", "", nil); w.Code != http.StatusBadRequest {
		t.Errorf("qr without text = %d", w.Code)
	}
}

func TestRender(t *testing.T) {
	r := newTestServer(t, nil)
	body := `{
		"config": {"width": 900, "height": 300, "cardCornerRadius": 20,
			"background": {"type": "color", "color": "#000"},
			"components": [{"type": "text", "x": 10, "y": 20, "text": "{name}", "font": "24px sans", "fillStyle": "#fff"}]},
		"data": {"name": "Song"}
	}`
	w := do(r, http.MethodPost, "/api/render", "application/json", strings.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("render = %d %s", w.Code, w.Body.String())
	}
	if width, height := pngSize(t, w.Body.Bytes()); width != 900 || height != 300 {
		t.Errorf("render size = %dx%d", width, height)
	}

	w = do(r, http.MethodPost, "/api/render?width=450", "application/json",
		strings.NewReader(`{"layout": "small", "data": {"displayName": "x"}, "format": "dataurl"}`))
	var out map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil || !strings.HasPrefix(out["image"], "data:image/png;base64,") {
		t.Errorf("dataurl render = %d %s", w.Code, w.Body.String())
	}

	bad := []string{
		`{"config": {"width": 0, "height": 10, "components": []}}`,
		`{"config": {"width": 10, "height": 10, "components": [{"type": "text"}]}}`,
		`{"layout": "missing"}`,
		`{}`,
	}
	for _, b := range bad {
		w := do(r, http.MethodPost, "/api/render", "application/json", strings.NewReader(b))
		if w.Code != http.StatusBadRequest || errorOf(t, w) != msgBadConfig {
			t.Errorf("render(%s) = %d %s, want 400 bad configuration", b, w.Code, w.Body.String())
		}
	}
}

func TestCard(t *testing.T) {
	cat := &fakeCatalog{errs: map[string]error{
		"gone":    fmt.Errorf("%w: 404", catalog.ErrNotFound),
		"limited": fmt.Errorf("%w: 429", catalog.ErrRateLimited),
		"down":    fmt.Errorf("%w: 503", catalog.ErrUnavailable),
	}}
	r := newTestServer(t, cat)

	w := do(r, http.MethodGet, "/api/cards/abcd?background=false&qr=true", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("card = %d %s", w.Code, w.Body.String())
	}
	if width, height := pngSize(t, w.Body.Bytes()); width != 900 || height != 300 {
		t.Errorf("card size = %dx%d", width, height)
	}

	w = do(r, http.MethodGet, "/api/cards/abcd?layout=small", "", nil)
	if width, _ := pngSize(t, w.Body.Bytes()); width != 200 {
		t.Errorf("layout card width = %d", width)
	}

	tests := []struct {
		hash   string
		status int
		msg    string
	}{
		{"gone", http.StatusNotFound, msgNotFound},
		{"limited", http.StatusBadGateway, msgUpstream},
		{"down", http.StatusBadGateway, msgUpstream},
	}
	for _, tt := range tests {
		w := do(r, http.MethodGet, "/api/cards/"+tt.hash, "", nil)
		if w.Code != tt.status || errorOf(t, w) != tt.msg {
			t.Errorf("card %s = %d %s", tt.hash, w.Code, w.Body.String())
		}
	}
}

func TestReweight(t *testing.T) {
	r := newTestServer(t, nil)
	body := `{"displayName": "Song", "old": {"ES": "2.00", "EXP_PLUS": "9.00"}, "new": {"ES": "2.50", "EXP_PLUS": "8.10", "HARD": "5.0"}}`
	w := do(r, http.MethodPost, "/api/reweight", "application/json", strings.NewReader(body))
	if w.Code != http.StatusOK {
		t.Fatalf("reweight = %d %s", w.Code, w.Body.String())
	}
	if width, height := pngSize(t, w.Body.Bytes()); width != 1000 || height != 120+70*3 {
		t.Errorf("reweight size = %dx%d", width, height)
	}
}

func zipNames(t *testing.T, b []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

const batchCSV = "hash,tier,rating\naaaa,1,2.1\nbbbb,9,Unranked\naaaa,5,4.4\ngone,3,1.0\n"

func TestBatch(t *testing.T) {
	cat := &fakeCatalog{errs: map[string]error{"gone": fmt.Errorf("%w: 404", catalog.ErrNotFound)}}
	r := newTestServer(t, cat)

	w := do(r, http.MethodPost, "/api/batch?layout=small", "text/csv", strings.NewReader(batchCSV))
	if w.Code != http.StatusOK {
		t.Fatalf("batch = %d %s", w.Code, w.Body.String())
	}
	if got := zipNames(t, w.Body.Bytes()); len(got) != 2 {
		t.Errorf("zip entries = %v", got)
	}
	if w.Header().Get("X-Batch-Rendered") != "2" || w.Header().Get("X-Batch-Skipped") != "1" {
		t.Errorf("batch headers = %v", w.Header())
	}

	// multipart upload, unranked records filtered out
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "records.csv")
	fw.Write([]byte(batchCSV))
	mw.Close()
	w = do(r, http.MethodPost, "/api/batch?layout=small&skipUnranked=true", mw.FormDataContentType(), &buf)
	if w.Code != http.StatusOK || w.Header().Get("X-Batch-Rendered") != "1" {
		t.Errorf("multipart batch = %d %v", w.Code, w.Header())
	}

	w = do(r, http.MethodPost, "/api/batch", "application/json", strings.NewReader(`[]`))
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty batch = %d", w.Code)
	}
	w = do(r, http.MethodPost, "/api/batch?layout=nope", "text/csv", strings.NewReader(batchCSV))
	if w.Code != http.StatusBadRequest || errorOf(t, w) != msgBadConfig {
		t.Errorf("batch with unknown layout = %d %s", w.Code, w.Body.String())
	}
}

func dialBatch(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/batch/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	return conn
}

func TestBatchSocket(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, nil))
	defer srv.Close()
	conn := dialBatch(t, srv)

	start := socketRequest{Type: "start", CSV: batchCSV, Options: batchOptions{Layout: "small"}}
	if err := conn.WriteJSON(start); err != nil {
		t.Fatal(err)
	}

	var percents []int
	var result socketEvent
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if mt == websocket.BinaryMessage {
			if names := zipNames(t, data); len(names) != 3 {
				t.Errorf("zip entries = %v", names)
			}
			break
		}
		var ev socketEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatal(err)
		}
		switch ev.Type {
		case "progress":
			if ev.Stage == "processing" {
				percents = append(percents, ev.Percent)
			}
		case "result":
			result = ev
		default:
			t.Fatalf("unexpected event %+v", ev)
		}
	}
	if fmt.Sprint(percents) != "[33 67 100]" {
		t.Errorf("progress = %v", percents)
	}
	if len(result.Rendered) != 3 {
		t.Errorf("result = %+v", result)
	}
}

func TestBatchSocketCancel(t *testing.T) {
	cat := &fakeCatalog{started: make(chan struct{}), release: make(chan struct{})}
	srv := httptest.NewServer(newTestServer(t, cat))
	defer srv.Close()
	conn := dialBatch(t, srv)

	if err := conn.WriteJSON(socketRequest{Type: "start", CSV: batchCSV, Options: batchOptions{Layout: "small"}}); err != nil {
		t.Fatal(err)
	}
	<-cat.started
	if err := conn.WriteJSON(socketRequest{Type: "cancel"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)
	close(cat.release)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read before cancel event: %v", err)
		}
		if mt == websocket.BinaryMessage {
			t.Fatal("received an archive after cancel")
		}
		var ev socketEvent
		json.Unmarshal(data, &ev)
		if ev.Type == "canceled" {
			return
		}
		if ev.Type != "progress" {
			t.Fatalf("unexpected event %+v", ev)
		}
	}
}

func TestBatchSocketBadStart(t *testing.T) {
	srv := httptest.NewServer(newTestServer(t, nil))
	defer srv.Close()
	conn := dialBatch(t, srv)

	conn.WriteJSON(map[string]string{"type": "hello"})
	var ev socketEvent
	if err := conn.ReadJSON(&ev); err != nil || ev.Type != "error" {
		t.Errorf("bad start answered with %+v, %v", ev, err)
	}
}
