package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type httpObservation struct {
	method string
	route  string
	status int
}

type fakeRecorder struct {
	mu   sync.Mutex
	seen []httpObservation
}

func (f *fakeRecorder) RecordHTTPRequest(method, route string, status int, _ time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, httpObservation{method: method, route: route, status: status})
}

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	recorder := &fakeRecorder{}

	router := chi.NewRouter()
	router.Use(InjectLogger(zap.New(core)))
	router.Use(RequestLogger(RequestLoggerOptions{
		Recorder: recorder,
		UserID:   func(context.Context) string { return "operator-1" },
	}))
	router.Get("/versions/{id}", func(w http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("inside handler")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte("conflict"))
	})

	req := httptest.NewRequest(http.MethodGet, "/versions/42", nil)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, []httpObservation{{method: http.MethodGet, route: "/versions/{id}", status: http.StatusConflict}}, recorder.seen)

	require.Equal(t, 1, logs.FilterMessage("inside handler").Len())
	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	require.Equal(t, zap.WarnLevel, completed[0].Level)
	fields := completed[0].ContextMap()
	require.Equal(t, "/versions/{id}", fields["route"])
	require.Equal(t, int64(http.StatusConflict), fields["status"])
	require.Equal(t, "operator-1", fields["user_id"])
	require.Equal(t, true, fields["htmx"])
}

func TestAnnotateUserReachesCompletionLog(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	handler := InjectLogger(zap.New(core))(RequestLogger(RequestLoggerOptions{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		AnnotateUser(r.Context(), "operator-2")
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/publish", nil))

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	require.Equal(t, "operator-2", completed[0].ContextMap()["user_id"])
	require.Equal(t, "unmatched", completed[0].ContextMap()["route"])
}

func TestRecoveryReturnsServerError(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)

	handler := Recovery(zap.New(core))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestFromContextDefaultsToNoop(t *testing.T) {
	require.NotNil(t, FromContext(context.Background()))
	logger := zap.NewExample()
	require.Same(t, logger, FromContext(WithLogger(context.Background(), logger)))
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("chatty")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.InfoLevel))
	require.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	logger, err := NewLogger("debug", WithFormat("Console"), WithService("publisher", "test"))
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestParseCloudTraceContext(t *testing.T) {
	sc, ok := parseCloudTraceContext("105445aa7843bc8bf206b12000100000/1;o=1")
	require.True(t, ok)
	require.Equal(t, "105445aa7843bc8bf206b12000100000", sc.TraceID().String())
	require.True(t, sc.IsSampled())
	require.True(t, sc.IsRemote())

	_, ok = parseCloudTraceContext("not-a-trace")
	require.False(t, ok)
}

func TestTraceMiddlewareEchoesHeader(t *testing.T) {
	handler := TraceMiddleware("tmai")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Contains(t, rec.Header().Get(cloudTraceHeader), "105445aa7843bc8bf206b12000100000/")
}

func TestTraceMiddlewareAnnotatesRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := InjectLogger(zap.New(core))(TraceMiddleware("tmai")(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		FromContext(r.Context()).Info("publishing")
	})))

	req := httptest.NewRequest(http.MethodPost, "/publish", nil)
	req.Header.Set(cloudTraceHeader, "105445aa7843bc8bf206b12000100000/1;o=1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("publishing").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "105445aa7843bc8bf206b12000100000", fields["trace_id"])
	require.Equal(t, "projects/tmai/traces/105445aa7843bc8bf206b12000100000", fields["logging.googleapis.com/trace"])
}

func TestSanitizeStripsControlCharacters(t *testing.T) {
	require.Equal(t, "GET", SanitizeMethod("G\x00E\nT"))
	require.Equal(t, "/", SanitizeRoute(""))
	require.Equal(t, "1.2.4fake=entry", SanitizeInput(" 1.2.4\r\nfake=entry "))
	require.Equal(t, strings.Repeat("9", 64)+"…", SanitizeInput(strings.Repeat("9", 80)))
}
