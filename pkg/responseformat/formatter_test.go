package responseformat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

type payload struct {
	RunID  string    `json:"run_id"`
	Output []float64 `json:"output"`
}

func TestWriteResponseFormats(t *testing.T) {
	data := payload{RunID: "abc", Output: []float64{0, 0, 10}}

	tests := []struct {
		name        string
		url         string
		contentType string
		decode      func([]byte) (payload, error)
	}{
		{
			name:        "json default",
			url:         "/simulate",
			contentType: ContentTypeJSON,
			decode: func(b []byte) (payload, error) {
				var p payload
				err := json.Unmarshal(b, &p)
				return p, err
			},
		},
		{
			name:        "msgpack",
			url:         "/simulate?format=msgpack",
			contentType: ContentTypeMsgPack,
			decode: func(b []byte) (payload, error) {
				var p payload
				dec := msgpack.NewDecoder(bytes.NewReader(b))
				dec.SetCustomStructTag("json")
				err := dec.Decode(&p)
				return p, err
			},
		},
	}

	f := NewFormatter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)

			if err := f.WriteResponse(rec, req, data, map[string]string{"Cache-Control": "no-store"}); err != nil {
				t.Fatalf("WriteResponse failed: %v", err)
			}

			if rec.Code != http.StatusOK {
				t.Errorf("expected status 200, got %d", rec.Code)
			}
			if got := rec.Header().Get("Content-Type"); got != tt.contentType {
				t.Errorf("expected content type %s, got %s", tt.contentType, got)
			}
			if got := rec.Header().Get("Cache-Control"); got != "no-store" {
				t.Errorf("expected extra header to be set, got %q", got)
			}

			got, err := tt.decode(rec.Body.Bytes())
			if err != nil {
				t.Fatalf("failed to decode body: %v", err)
			}
			if got.RunID != "abc" || len(got.Output) != 3 || got.Output[2] != 10 {
				t.Errorf("unexpected body: %+v", got)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/simulate", nil)

	NewFormatter().WriteError(rec, req, http.StatusBadRequest, "invalid series", "day 2: NaN temperature")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	var body ErrorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.Error != "invalid series" || len(body.Details) != 1 {
		t.Errorf("unexpected error body: %+v", body)
	}
}

func TestDecode(t *testing.T) {
	f := NewFormatter()

	req := httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(`{"run_id":"x","output":[1.5]}`))
	var p payload
	if err := f.Decode(req, &p); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if p.RunID != "x" || p.Output[0] != 1.5 {
		t.Errorf("unexpected payload: %+v", p)
	}

	req = httptest.NewRequest(http.MethodPost, "/simulate", strings.NewReader(`{"run_id":"x","extra":1}`))
	if err := f.Decode(req, &p); err == nil {
		t.Error("expected an error for an unknown field")
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(payload{RunID: "mp", Output: []float64{2}}); err != nil {
		t.Fatalf("failed to encode msgpack: %v", err)
	}
	req = httptest.NewRequest(http.MethodPost, "/simulate", &buf)
	req.Header.Set("Content-Type", ContentTypeMsgPack)
	if err := f.Decode(req, &p); err != nil {
		t.Fatalf("Decode msgpack failed: %v", err)
	}
	if p.RunID != "mp" {
		t.Errorf("unexpected payload: %+v", p)
	}
}
