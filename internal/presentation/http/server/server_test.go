package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/container"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/pkg/config"
)

const writeTimeout = 200 * time.Millisecond

func newTestServer(t *testing.T) (*httptest.Server, *container.Container) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	saved := config.ServerWriteTimeout
	config.ServerWriteTimeout = writeTimeout
	t.Cleanup(func() { config.ServerWriteTimeout = saved })

	settings := services.DefaultTrackingSettings()
	settings.JWTSecret = "server-secret"
	c := container.NewContainer(logging.NewDiscardLogger(), settings, nil, clock.NewSystem(), "")
	s := New("0", c)

	ts := httptest.NewUnstartedServer(s.httpServer.Handler)
	ts.Config.ReadTimeout = s.httpServer.ReadTimeout
	ts.Config.WriteTimeout = s.httpServer.WriteTimeout
	ts.Start()
	t.Cleanup(func() {
		c.PageViewService.Shutdown()
		ts.Close()
	})
	return ts, c
}

func post(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatal(err)
	}
	req, _ := http.NewRequest(http.MethodPost, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

// waitForLine reads the stream until a line starts with prefix.
func waitForLine(reader *bufio.Reader, prefix string, timeout time.Duration) error {
	found := make(chan error, 1)
	go func() {
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				found <- err
				return
			}
			if strings.HasPrefix(line, prefix) {
				found <- nil
				return
			}
		}
	}()
	select {
	case err := <-found:
		return err
	case <-time.After(timeout):
		return errTimeout
	}
}

var errTimeout = errors.New("timed out waiting for stream line")

func TestSSEStreamOutlivesWriteTimeout(t *testing.T) {
	ts, c := newTestServer(t)

	resp := post(t, ts.URL+"/api/v1/pageviews", "", map[string]any{
		"path":        "/services",
		"contentType": "service",
		"html":        "<main><section data-track-visibility=\"intro\">Websites for growing brands</section></main>",
		"enableDebug": true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	var pv services.CreatePageViewResult
	if err := json.NewDecoder(resp.Body).Decode(&pv); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/pageviews/"+pv.PageViewID+"/stream", nil)
	req.Header.Set("Authorization", "Bearer "+pv.Token)
	stream, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer stream.Body.Close()
	reader := bufio.NewReader(stream.Body)
	if err := waitForLine(reader, ": connection established", time.Second); err != nil {
		t.Fatalf("stream greeting: %v", err)
	}

	time.Sleep(3 * writeTimeout)

	milestone := post(t, ts.URL+"/api/v1/pageviews/"+pv.PageViewID+"/milestones", pv.Token, map[string]string{"type": "video_play"})
	milestone.Body.Close()
	if milestone.StatusCode != http.StatusNoContent {
		t.Fatalf("milestone status = %d", milestone.StatusCode)
	}
	if err := waitForLine(reader, "event: engagement_milestone", 2*time.Second); err != nil {
		t.Fatalf("stream closed before the milestone arrived: %v", err)
	}

	// Shutdown closes streams first so the server can drain.
	if n := c.PageViewService.CloseStreams(); n != 1 {
		t.Fatalf("CloseStreams = %d, want 1", n)
	}
	if err := waitForLine(reader, "never", 2*time.Second); errors.Is(err, errTimeout) {
		t.Fatal("stream still open after CloseStreams")
	}
}
