package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return body
}

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Field("count", 2).
		Message("Datos actualizados").
		Header("X-Test", "yes").
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Test") != "yes" {
		t.Error("custom header not set")
	}
	body := decodeBody(t, w)
	if body["count"] != float64(2) || body["message"] != "Datos actualizados" {
		t.Errorf("body = %v", body)
	}
}

func TestJSONResponseBuilder_EmptyMessageOmitted(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Message("").Write(w)

	if _, ok := decodeBody(t, w)["message"]; ok {
		t.Error("empty message should not be written")
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name       string
		builder    *JSONResponseBuilder
		wantStatus int
	}{
		{"bad request", BadRequestError("bad"), http.StatusBadRequest},
		{"unprocessable", UnprocessableEntityError("bad"), http.StatusUnprocessableEntity},
		{"internal", InternalServerError("bad"), http.StatusInternalServerError},
		{"not found", NotFoundError("bad"), http.StatusNotFound},
		{"unauthorized", UnauthorizedError("bad"), http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)
			if w.Code != tt.wantStatus {
				t.Errorf("Status code = %d, want %d", w.Code, tt.wantStatus)
			}
			if decodeBody(t, w)["error"] != "bad" {
				t.Errorf("error field missing: %s", w.Body.String())
			}
		})
	}
}
