package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/speakerid/errors"
	"github.com/kbukum/speakerid/logger"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apperrors.ErrorBody {
	t.Helper()
	var resp apperrors.ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body %q: %v", rr.Body.String(), err)
	}
	return resp.Error
}

func TestChainOrder(t *testing.T) {
	var trail []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				trail = append(trail, name+">")
				next.ServeHTTP(w, r)
				trail = append(trail, "<"+name)
			})
		}
	}
	serve(Chain(mark("recover"), mark("log"))(okHandler), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if got := strings.Join(trail, " "); got != "recover> log> <log <recover" {
		t.Errorf("trail = %s", got)
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(HeaderRequestID)
	}))

	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/attributions", http.NoBody))
	if seen == "" || rr.Header().Get(HeaderRequestID) != seen {
		t.Errorf("minted id %q not echoed (%q)", seen, rr.Header().Get(HeaderRequestID))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/attributions", http.NoBody)
	req.Header.Set(HeaderRequestID, "run-7")
	if got := serve(h, req).Header().Get(HeaderRequestID); got != "run-7" {
		t.Errorf("caller id replaced with %q", got)
	}
}

func TestRecovery(t *testing.T) {
	h := Recovery(logger.NewDefault("test"))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil embedding")
	}))
	rr := serve(h, httptest.NewRequest(http.MethodPost, "/api/v1/attributions", http.NoBody))
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rr.Code)
	}
	if body := decodeError(t, rr); body.Code != apperrors.ErrCodeInternal || strings.Contains(body.Message, "nil embedding") {
		t.Errorf("body = %+v", body)
	}
}

func TestBodySizeLimit(t *testing.T) {
	h := BodySizeLimit("1KB")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))
	small := serve(h, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("RIFF")))
	large := serve(h, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 2048))))
	if small.Code != http.StatusOK || large.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("small=%d large=%d", small.Code, large.Code)
	}
}

func TestCORS(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins:   []string{"https://notes.example.com"},
		AllowedMethods:   []string{"GET", "POST"},
		AllowCredentials: true,
	}
	h := CORS(cfg)(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/identities", http.NoBody)
	req.Header.Set("Origin", "https://notes.example.com")
	rr := serve(h, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "https://notes.example.com" ||
		rr.Header().Get("Access-Control-Allow-Methods") != "GET, POST" ||
		rr.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Errorf("headers = %v", rr.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/identities", http.NoBody)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	if got := serve(h, req).Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("disallowed origin got %q", got)
	}

	pre := CORS(CORSConfig{AllowedOrigins: []string{"*"}})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("preflight reached the handler")
	}))
	req = httptest.NewRequest(http.MethodOptions, "/api/v1/attributions", http.NoBody)
	req.Header.Set("Origin", "https://any.example.com")
	if rr := serve(pre, req); rr.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d", rr.Code)
	}
}

type flushRecorder struct {
	*httptest.ResponseRecorder
	flushed bool
}

func (f *flushRecorder) Flush() { f.flushed = true }

func TestRequestLoggerKeepsStatusAndFlush(t *testing.T) {
	h := RequestLogger(logger.NewDefault("test"))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.(http.Flusher).Flush()
	}))
	fr := &flushRecorder{ResponseRecorder: httptest.NewRecorder()}
	h.ServeHTTP(fr, httptest.NewRequest(http.MethodPost, "/api/v1/attributions", http.NoBody))
	if fr.Code != http.StatusUnprocessableEntity || !fr.flushed {
		t.Errorf("code=%d flushed=%v", fr.Code, fr.flushed)
	}
}

func TestRateLimitPerClient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/api/v1/attributions", RateLimit(RateLimitConfig{
		RequestsPerMinute: 2,
		KeyFunc:           func(c *gin.Context) string { return c.GetHeader("X-Client") },
	}), func(c *gin.Context) { c.Status(http.StatusOK) })

	post := func(client string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/attributions", http.NoBody)
		req.Header.Set("X-Client", client)
		return serve(engine, req)
	}
	for i := 0; i < 2; i++ {
		if rr := post("alice"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: %d", i, rr.Code)
		}
	}
	rr := post("alice")
	if rr.Code != http.StatusTooManyRequests || decodeError(t, rr).Code != apperrors.ErrCodeRateLimited {
		t.Fatalf("third request: %d %s", rr.Code, rr.Body.String())
	}
	if rr := post("bob"); rr.Code != http.StatusOK {
		t.Errorf("other client throttled: %d", rr.Code)
	}
}

func TestClientBucketsEvictIdle(t *testing.T) {
	b := &clientBuckets{clients: make(map[string]*bucket)}
	b.cfg.Rate, b.cfg.Burst = 1, 1
	now := time.Now()
	b.allow("alice", now)
	b.allow("bob", now.Add(2*idleClient))
	if _, ok := b.clients["alice"]; ok {
		t.Error("idle client kept")
	}
	if len(b.clients) != 1 {
		t.Errorf("clients = %d", len(b.clients))
	}
}
