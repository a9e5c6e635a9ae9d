package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tornedge/internal/features"
	"tornedge/internal/logging"
	"tornedge/internal/matching"
	"tornedge/internal/store"
)

type fakeExtractor map[string]features.FeatureSet

func (f fakeExtractor) ExtractPhoto(_ context.Context, photo []byte) (features.FeatureSet, error) {
	fs, ok := f[string(photo)]
	if !ok {
		return features.FeatureSet{}, errors.New("no tear found")
	}
	return fs, nil
}

func curve(n int, amp float64) features.FeatureSet {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i)
		ys[i] = 40 + amp*math.Sin(float64(i)*0.4)
	}
	return features.FeatureSet{ShapeX: xs, ShapeY: ys, Height: 0.3, Angle: 80}
}

type testEnv struct {
	handler *Handler
	store   *store.Store
	opts    Options
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	root := t.TempDir()
	st, err := store.Open(filepath.Join(root, "tornedge.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	ex := fakeExtractor{
		"photo-a": curve(40, 8),
		"photo-b": curve(40, 12),
	}
	opts := Options{
		FilesDir:   filepath.Join(root, "files"),
		ChatLogDir: filepath.Join(root, "chat_logs"),
		Match:      matching.DefaultOptions(),
	}
	engine := matching.NewEngine(matching.DefaultShapeWeight, matching.DefaultDigits, logging.Nop())
	return &testEnv{
		handler: NewHandler(ex, st, engine, opts, logging.Nop()),
		store:   st,
		opts:    opts,
	}
}

type part struct {
	name, filename, value string
}

func (e *testEnv) post(t *testing.T, parts ...part) (int, map[string]any) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for _, p := range parts {
		if p.filename != "" {
			w, err := mw.CreateFormFile(p.name, p.filename)
			if err != nil {
				t.Fatal(err)
			}
			_, _ = io.WriteString(w, p.value)
			continue
		}
		if err := mw.WriteField(p.name, p.value); err != nil {
			t.Fatal(err)
		}
	}
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return rec.Code, resp
}

func data(t *testing.T, resp map[string]any) map[string]any {
	t.Helper()
	d, ok := resp["data"].(map[string]any)
	if !ok {
		t.Fatalf("response has no data: %v", resp)
	}
	return d
}

func cmd(name string) part { return part{name: "cmd", value: name} }

func TestUploadImage(t *testing.T) {
	env := newEnv(t)
	code, resp := env.post(t, cmd("upload_image"), part{name: "image", filename: "a.jpg", value: "photo-a"})
	if code != http.StatusOK || resp["cmd"] != "upload_image" {
		t.Fatalf("unexpected response %d %v", code, resp)
	}
	d := data(t, resp)
	if d["result"] != "success" || d["image_id"] != float64(1) {
		t.Fatalf("unexpected data %v", d)
	}
}

func TestUploadImageFailures(t *testing.T) {
	env := newEnv(t)
	tests := []struct {
		name  string
		parts []part
	}{
		{"missing image", []part{cmd("upload_image")}},
		{"no tear", []part{cmd("upload_image"), {name: "image", filename: "x.jpg", value: "blank"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, resp := env.post(t, tt.parts...)
			d := data(t, resp)
			if d["result"] != "failure" || d["message"] != "Failed to upload image." || d["image_id"] != "" {
				t.Fatalf("unexpected data %v", d)
			}
		})
	}
}

func TestStubDataThenDownload(t *testing.T) {
	env := newEnv(t)
	_, resp := env.post(t, cmd("upload_image"), part{name: "image", filename: "a.jpg", value: "photo-a"})
	if d := data(t, resp); d["result"] != "success" {
		t.Fatalf("upload failed: %v", d)
	}

	_, resp = env.post(t, cmd("create_stub_data"),
		part{name: "image", filename: "b.jpg", value: "photo-b"},
		part{name: "file", filename: "../receipt.pdf", value: "%PDF"})
	d := data(t, resp)
	if d["result"] != "success" || d["image_id"] != float64(2) {
		t.Fatalf("stub failed: %v", d)
	}
	room, _ := d["chat_room_id"].(string)
	if !strings.HasPrefix(room, "chat_room") {
		t.Fatalf("unexpected room %q", room)
	}
	saved, err := os.ReadFile(filepath.Join(env.opts.FilesDir, "receipt.pdf"))
	if err != nil || string(saved) != "%PDF" {
		t.Fatalf("file not saved: %q, %v", saved, err)
	}
	log, err := os.ReadFile(filepath.Join(env.opts.ChatLogDir, room+".csv"))
	if err != nil || string(log) != "2, The chat room was created.\n" {
		t.Fatalf("chat log = %q, %v", log, err)
	}

	_, resp = env.post(t, cmd("download_file"), part{name: "image_id", value: "1"})
	d = data(t, resp)
	if d["result"] != "success" || d["file_path"] != "/files/receipt.pdf" || d["image_id"] != float64(2) {
		t.Fatalf("download failed: %v", d)
	}
}

func TestDownloadWithoutCandidates(t *testing.T) {
	env := newEnv(t)
	env.post(t, cmd("upload_image"), part{name: "image", filename: "a.jpg", value: "photo-a"})

	_, resp := env.post(t, cmd("download_file"), part{name: "image_id", value: "1"})
	d := data(t, resp)
	if d["result"] != "failure" || d["file_path"] != "" {
		t.Fatalf("expected failure, got %v", d)
	}
}

func TestUploadFile(t *testing.T) {
	env := newEnv(t)
	env.post(t, cmd("upload_image"), part{name: "image", filename: "a.jpg", value: "photo-a"})

	_, resp := env.post(t, cmd("upload_file"),
		part{name: "image_id", value: "1"},
		part{name: "file", filename: "notes.txt", value: "hello"})
	if d := data(t, resp); d["result"] != "success" {
		t.Fatalf("upload_file failed: %v", d)
	}
	got, err := env.store.FilePath(context.Background(), 1)
	if err != nil || got != "/files/notes.txt" {
		t.Fatalf("file path = %q, %v", got, err)
	}

	_, resp = env.post(t, cmd("upload_file"),
		part{name: "image_id", value: "9"},
		part{name: "file", filename: "notes.txt", value: "hello"})
	if d := data(t, resp); d["result"] != "failure" {
		t.Fatalf("expected failure for unknown id: %v", d)
	}
}

func TestChatRoomFlow(t *testing.T) {
	env := newEnv(t)
	env.post(t, cmd("upload_image"), part{name: "image", filename: "a.jpg", value: "photo-a"})
	env.post(t, cmd("upload_image"), part{name: "image", filename: "b.jpg", value: "photo-b"})

	_, resp := env.post(t, cmd("create_chat_room"), part{name: "image_id", value: `"2"`})
	d := data(t, resp)
	room, _ := d["chat_room_id"].(string)
	if d["result"] != "success" || room == "" {
		t.Fatalf("create_chat_room failed: %v", d)
	}
	_, resp = env.post(t, cmd("create_chat_room"), part{name: "image_id", value: "2"})
	if d := data(t, resp); d["chat_room_id"] != room {
		t.Fatalf("room changed on second call: %v", d)
	}

	_, resp = env.post(t, cmd("enter_chat_room"), part{name: "image_id", value: "1"})
	if d := data(t, resp); d["result"] != "success" || d["chat_room_id"] != room {
		t.Fatalf("enter_chat_room failed: %v", d)
	}
	if left, _ := env.store.ChatRoomID(context.Background(), 2); left != "" {
		t.Fatalf("partner room should be cleared, got %q", left)
	}

	_, resp = env.post(t, cmd("send_chat"), part{name: "chat_room_id", value: room}, part{name: "message", value: "1, hi"})
	d = data(t, resp)
	lines, _ := d["chat_log"].([]any)
	if d["result"] != "success" || len(lines) != 2 || lines[1] != "1, hi" {
		t.Fatalf("send_chat failed: %v", d)
	}

	_, resp = env.post(t, cmd("update_chat"), part{name: "chat_room_id", value: room})
	if lines, _ := data(t, resp)["chat_log"].([]any); len(lines) != 2 {
		t.Fatalf("update_chat returned %v", lines)
	}
}

func TestChatRejectsBadRoom(t *testing.T) {
	env := newEnv(t)
	tests := []string{"../../etc/passwd", "chat_room_missing", ""}
	for _, room := range tests {
		_, resp := env.post(t, cmd("update_chat"), part{name: "chat_room_id", value: room})
		if d := data(t, resp); d["result"] != "failure" {
			t.Errorf("room %q: expected failure, got %v", room, d)
		}
	}
}

func TestUnknownCommandAndMethod(t *testing.T) {
	env := newEnv(t)
	code, resp := env.post(t, cmd("format_disk"))
	if code != http.StatusBadRequest || data(t, resp)["result"] != "failure" {
		t.Fatalf("unexpected %d %v", code, resp)
	}

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET returned %d", rec.Code)
	}
}

func TestResponsesAllowAnyOrigin(t *testing.T) {
	env := newEnv(t)
	tests := []struct {
		name   string
		method string
		want   int
	}{
		{"post", http.MethodPost, http.StatusBadRequest},
		{"preflight", http.MethodOptions, http.StatusNoContent},
		{"get", http.MethodGet, http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			env.handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))
			if rec.Code != tt.want {
				t.Fatalf("status %d, want %d", rec.Code, tt.want)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Fatalf("Access-Control-Allow-Origin = %q", got)
			}
		})
	}
}

func TestServerServesFiles(t *testing.T) {
	env := newEnv(t)
	if err := os.MkdirAll(env.opts.FilesDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(env.opts.FilesDir, "a.txt"), []byte("shared"), 0o644); err != nil {
		t.Fatal(err)
	}

	srv := NewServer("127.0.0.1:0", env.handler, logging.Nop())
	ts := httptest.NewServer(srv.server.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/files/a.txt")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "shared" {
		t.Fatalf("got %d %q", resp.StatusCode, body)
	}
}

func TestServerStartStop(t *testing.T) {
	env := newEnv(t)
	srv := NewServer("127.0.0.1:0", env.handler, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := srv.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if srv.Addr() == "" {
		t.Fatal("expected a listening address")
	}
	srv.Stop()
}
