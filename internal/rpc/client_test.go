package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestCall_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/invoke/get_bindings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var args map[string]any
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("decoding args: %v", err)
		}
		if args["categoryId"] != float64(7) {
			t.Errorf("categoryId = %v, want 7", args["categoryId"])
		}
		_, _ = w.Write([]byte(`{"ok": true}`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL+"/", srv.Client(), testLogger())
	var out struct {
		OK bool `json:"ok"`
	}
	err := c.Call(context.Background(), "get_bindings", map[string]any{"categoryId": 7}, &out)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !out.OK {
		t.Error("expected decoded result")
	}
}

func TestCall_NilArgsSendsEmptyObject(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("body is not a JSON object: %v", err)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger())
	if err := c.Call(context.Background(), "ping", nil, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
}

func TestCall_CommandError(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"json envelope", `{"error":"category not found"}`, "category not found"},
		{"plain text", "boom\n", "boom"},
		{"empty", "", "no response body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger())
			err := c.Call(context.Background(), "scan_directory_batch", nil, nil)
			ce, ok := IsCommandError(err)
			if !ok {
				t.Fatalf("expected CommandError, got %v", err)
			}
			if ce.Status != http.StatusBadRequest {
				t.Errorf("Status = %d, want 400", ce.Status)
			}
			if ce.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", ce.Message, tt.wantMsg)
			}
			if ce.Command != "scan_directory_batch" {
				t.Errorf("Command = %q", ce.Command)
			}
		})
	}
}

func TestCall_DecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger())
	var out map[string]any
	err := c.Call(context.Background(), "get_bindings", nil, &out)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if _, ok := IsCommandError(err); ok {
		t.Error("decode failure should not be a CommandError")
	}
	if !errors.Is(err, ErrUndecodable) {
		t.Errorf("err = %v, want ErrUndecodable", err)
	}
}

func TestCall_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewWithHTTPClient(srv.URL, srv.Client(), testLogger())
	err := c.Call(ctx, "get_bindings", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
