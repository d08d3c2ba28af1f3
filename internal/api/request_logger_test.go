package api

import (
	"bytes"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestLogger_RecordsHandlerError(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.HTTPErrorHandler = NewHTTPErrorHandler(zerolog.Nop())
	e.Use(requestLogger(zerolog.New(&buf)))
	e.GET("/boom", func(c echo.Context) error { return errors.New("store exploded") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	line := buf.String()
	if !strings.Contains(line, `"error":"store exploded"`) {
		t.Fatalf("access log is missing the handler error: %s", line)
	}
	if !strings.Contains(line, `"status":500`) || !strings.Contains(line, `"level":"error"`) {
		t.Fatalf("expected an error-level 500 line, got %s", line)
	}
}

func TestRequestLogger_OmitsErrorOnSuccess(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(requestLogger(zerolog.New(&buf)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ok", nil))

	line := buf.String()
	if strings.Contains(line, `"error"`) || !strings.Contains(line, `"status":204`) {
		t.Fatalf("unexpected access log line: %s", line)
	}
}
