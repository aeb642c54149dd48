package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIsStreamRequest(t *testing.T) {
	cases := []struct {
		method, path string
		want         bool
	}{
		{http.MethodGet, "/api/v1/pageviews/01HX/stream", true},
		{http.MethodGet, "/api/v1/pageviews/01HX/ws", true},
		{http.MethodGet, "/api/v1/pageviews/01HX/metrics", false},
		{http.MethodPost, "/api/v1/pageviews/01HX/stream", false},
		{http.MethodGet, "/health", false},
	}
	for _, tc := range cases {
		r := httptest.NewRequest(tc.method, tc.path, nil)
		if got := IsStreamRequest(r); got != tc.want {
			t.Errorf("IsStreamRequest(%s %s) = %v, want %v", tc.method, tc.path, got, tc.want)
		}
	}
}

func TestWriteDeadlineBoundsOrdinaryResponses(t *testing.T) {
	handler := WriteDeadline(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsStreamRequest(r) {
			time.Sleep(300 * time.Millisecond)
		}
		w.Write([]byte("ok"))
	}), 100*time.Millisecond)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	if resp, err := http.Get(srv.URL + "/api/v1/pageviews/01HX/metrics"); err == nil {
		resp.Body.Close()
		t.Fatal("slow ordinary response should be cut by the write deadline")
	}

	resp, err := http.Get(srv.URL + "/api/v1/pageviews/01HX/stream")
	if err != nil {
		t.Fatalf("stream request: %v", err)
	}
	resp.Body.Close()
}
