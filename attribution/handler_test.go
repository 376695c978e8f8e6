package attribution

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/component"
	"github.com/kbukum/speakerid/embedding"
	"github.com/kbukum/speakerid/enrollment"
	"github.com/kbukum/speakerid/identity"
	"github.com/kbukum/speakerid/matching"
	"github.com/kbukum/speakerid/media"
)

func init() { gin.SetMode(gin.TestMode) }

type envelope[T any] struct {
	Data T `json:"data"`
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	enrollDir := t.TempDir()
	for name, level := range map[string]float32{"alice.wav": 0.1, "bob,jones(2).wav": 0.2} {
		if err := audio.WriteWAV(filepath.Join(enrollDir, name), recording(region{2, level})); err != nil {
			t.Fatal(err)
		}
	}

	dir := identity.NewDirectory()
	if err := dir.ReadProfiles(strings.NewReader(`{"alice": {"display_name": "Alice L."}}`)); err != nil {
		t.Fatal(err)
	}

	embedder := embedding.Bind(testExtractor(), testRate)
	loader := media.NewWAVLoader(testRate)
	ws := media.NewWorkspace(t.TempDir())
	t.Cleanup(func() { ws.Close() })

	return NewService(Deps{
		Embedder:   embedder,
		Aggregator: enrollment.NewAggregator(loader, embedder, enrollment.WithMinClipSeconds(1)),
		Loader:     loader,
		Workspace:  ws,
		Directory:  dir,
	}, enrollDir, matching.DefaultConfig())
}

func newRouter(svc *Service, guard gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	NewHandler(svc).Register(r, guard)
	return r
}

func multipartBody(t *testing.T, audioName string, rec audio.Clip, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if audioName != "" {
		data, err := audio.EncodeWAVBytes(rec)
		if err != nil {
			t.Fatal(err)
		}
		part, err := w.CreateFormFile("audio", audioName)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, w.FormDataContentType()
}

const meetingSegments = `[
	{"start": 0, "end": 2, "speaker": "A", "text": "Morning."},
	{"start": 2, "end": 4, "speaker": "B", "text": "Hi Alice."},
	{"start": 4, "end": 6, "speaker": "C", "text": "Sorry I'm late."}
]`

func meetingRecording() audio.Clip {
	return recording(region{2, 0.1}, region{2, 0.2}, region{2, 0.3})
}

func postAttribution(t *testing.T, r http.Handler, audioName string, fields map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, audioName, meetingRecording(), fields)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributions", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Attribute(t *testing.T) {
	r := newRouter(newTestService(t), nil)
	w := postAttribution(t, r, "meeting.wav", map[string]string{"segments": meetingSegments})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp envelope[AttributionResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := "Alice L.: Morning.\n\nBob Jones: Hi Alice.\n\nUnknown Speaker 1: Sorry I'm late.\n"
	if resp.Data.Transcript != want {
		t.Errorf("transcript =\n%q\nwant\n%q", resp.Data.Transcript, want)
	}
	if len(resp.Data.Records) != 3 || resp.Data.Records[1].Label != "bob,jones" {
		t.Errorf("records = %+v", resp.Data.Records)
	}
	if resp.Data.RunID == "" || resp.Data.Stats.Accepted != 2 {
		t.Errorf("response = %+v", resp.Data)
	}
}

func TestHandler_AttributeParticipants(t *testing.T) {
	r := newRouter(newTestService(t), nil)
	w := postAttribution(t, r, "meeting.wav", map[string]string{
		"segments":     meetingSegments,
		"participants": "alice",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp envelope[AttributionResponse]
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Records[1].Speaker != "Unknown Speaker 1" {
		t.Errorf("bob is not a participant: %+v", resp.Data.Records)
	}
}

func TestHandler_AttributeBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		audio  string
		fields map[string]string
		status int
	}{
		{"missing audio", "", map[string]string{"segments": meetingSegments}, http.StatusBadRequest},
		{"missing segments", "meeting.wav", nil, http.StatusBadRequest},
		{"bad segments", "meeting.wav", map[string]string{"segments": "{"}, http.StatusBadRequest},
		{"unsupported format", "meeting.xyz", map[string]string{"segments": meetingSegments}, http.StatusBadRequest},
		{"bad smoothing", "meeting.wav", map[string]string{"segments": meetingSegments, "smoothing": "maybe"}, http.StatusBadRequest},
		{"bad strategy", "meeting.wav", map[string]string{"segments": meetingSegments, "strategy": "magic"}, http.StatusBadRequest},
		{"no participant enrolled", "meeting.wav", map[string]string{"segments": meetingSegments, "participants": "zed"}, http.StatusUnprocessableEntity},
	}
	r := newRouter(newTestService(t), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postAttribution(t, r, tt.audio, tt.fields)
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", w.Code, tt.status, w.Body.String())
			}
		})
	}
}

func TestHandler_Guard(t *testing.T) {
	guard := func(c *gin.Context) { c.AbortWithStatus(http.StatusTooManyRequests) }
	r := newRouter(newTestService(t), guard)
	w := postAttribution(t, r, "meeting.wav", map[string]string{"segments": meetingSegments})
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/identities", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("identities should not be guarded: %d", rec.Code)
	}
}

func TestHandler_Identities(t *testing.T) {
	svc := newTestService(t)
	r := newRouter(svc, nil)

	if h := svc.Health(t.Context()); h.Status != component.StatusHealthy || h.Message != "enrollment not loaded" {
		t.Errorf("health before load = %+v", h)
	}

	for _, path := range []string{"/api/v1/identities", "/api/v1/identities/reload"} {
		method := http.MethodGet
		if strings.HasSuffix(path, "reload") {
			method = http.MethodPost
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		var resp envelope[IdentitiesResponse]
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatal(err)
		}
		ids := resp.Data.Identities
		if len(ids) != 2 || ids[0].DisplayName != "Alice L." || ids[1].DisplayName != "Bob Jones" {
			t.Errorf("%s identities = %+v", path, ids)
		}
	}

	if h := svc.Health(t.Context()); h.Message != "2 identities enrolled" {
		t.Errorf("health after load = %+v", h)
	}
}

func TestHandler_IdentitiesNoEnrollment(t *testing.T) {
	embedder := embedding.Bind(testExtractor(), testRate)
	loader := media.NewWAVLoader(testRate)
	svc := NewService(Deps{
		Embedder:   embedder,
		Aggregator: enrollment.NewAggregator(loader, embedder),
		Loader:     loader,
		Workspace:  media.NewWorkspace(t.TempDir()),
	}, t.TempDir(), matching.DefaultConfig())

	w := httptest.NewRecorder()
	newRouter(svc, nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/identities", nil))
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", w.Code)
	}
	if h := svc.Health(t.Context()); h.Status != component.StatusDegraded {
		t.Errorf("health = %+v, want degraded", h)
	}
}

func TestSplitParticipants(t *testing.T) {
	got := SplitParticipants("bob,jones; alice", "", "carol\n dave ")
	want := []string{"bob,jones", "alice", "carol", "dave"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got %v, want %v", got, want)
		}
	}
}
