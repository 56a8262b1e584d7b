package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func echoStatus(status int, body string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// TestRequestLogger проверяет запись запросов и выбор уровня по статусу.
func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		status     int
		wantLogged bool
		wantLevel  string
	}{
		{"успешный запрос", "/api/manuscripts?title=codex", http.StatusOK, true, "level=INFO"},
		{"не найдено", "/api/manuscripts/404", http.StatusNotFound, true, "level=WARN"},
		{"ошибка сервера", "/api/manuscripts", http.StatusInternalServerError, true, "level=ERROR"},
		{"liveness не логируется", "/health/live", http.StatusOK, false, ""},
		{"readiness не логируется", "/health/ready", http.StatusOK, false, ""},
		{"metrics не логируется", "/metrics", http.StatusOK, false, ""},
		{"падение readiness логируется", "/health/ready", http.StatusServiceUnavailable, true, "level=ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, nil))
			handler := RequestLogger(logger)(echoStatus(tt.status, "ok"))

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			handler.ServeHTTP(httptest.NewRecorder(), req)

			out := buf.String()
			if !tt.wantLogged {
				if out != "" {
					t.Errorf("запись в журнале не ожидалась, получено: %s", out)
				}
				return
			}
			if out == "" {
				t.Fatal("запись в журнале отсутствует")
			}
			if !strings.Contains(out, tt.wantLevel) {
				t.Errorf("уровень не совпадает: ожидался %s, запись: %s", tt.wantLevel, out)
			}
		})
	}
}

// TestRequestLogger_Attrs проверяет перехват статуса, размера ответа
// и строки поисковых параметров.
func TestRequestLogger_Attrs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := RequestLogger(logger)(echoStatus(http.StatusCreated, "created!"))

	req := httptest.NewRequest(http.MethodPost, "/api/manuscripts?author=scribe", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"status=201", "bytes=8", "query=author=scribe", "method=POST"} {
		if !strings.Contains(out, want) {
			t.Errorf("в записи нет %q: %s", want, out)
		}
	}
}
