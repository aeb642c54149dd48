package routes

import (
	"bufio"
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/container"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/application/services"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/clock"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/messaging"
	"github.com/ReyReyq/Nexo-Agency-Website-sub001/internal/infrastructure/observability/logging"
)

const pageHTML = `<html><head><title>Services</title></head><body>
<main><section data-track-visibility="intro">We design and build websites for growing brands</section>
<section data-track-visibility="pricing">Plans start small</section></main></body></html>`

type apiHarness struct {
	router *gin.Engine
	clk    *clock.Fake
}

func newAPIHarness(t *testing.T, adminToken string) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	settings := services.DefaultTrackingSettings()
	settings.JWTSecret = "route-secret"
	clk := clock.NewFake(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	c := container.NewContainer(logging.NewDiscardLogger(), settings, nil, clk, adminToken)
	return &apiHarness{router: SetupRoutes(c, []string{"*"}), clk: clk}
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *apiHarness) create(t *testing.T, debug bool) services.CreatePageViewResult {
	t.Helper()
	w := h.do(t, http.MethodPost, "/api/v1/pageviews", "", map[string]any{
		"path":        "/services",
		"contentType": "service",
		"html":        pageHTML,
		"enableDebug": debug,
		"viewport":    map[string]any{"scrollY": 0, "scrollHeight": 3000, "height": 1000},
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", w.Code, w.Body.String())
	}
	var res services.CreatePageViewResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res
}

func TestPageViewLifecycle(t *testing.T) {
	h := newAPIHarness(t, "")
	pv := h.create(t, false)
	base := "/api/v1/pageviews/" + pv.PageViewID

	batch := map[string]any{"observations": []map[string]any{
		{"type": "scroll", "scrollY": 1500, "scrollHeight": 3000, "viewportHeight": 1000},
		{"type": "intersection", "id": "intro", "isIntersecting": true, "ratio": 1},
	}}
	if w := h.do(t, http.MethodPost, base+"/observations", "", batch); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", w.Code)
	}
	if w := h.do(t, http.MethodPost, base+"/observations", "forged", batch); w.Code != http.StatusUnauthorized {
		t.Fatalf("forged token status = %d", w.Code)
	}
	w := h.do(t, http.MethodPost, base+"/observations", pv.Token, batch)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"accepted":2`) {
		t.Fatalf("observations = %d %s", w.Code, w.Body.String())
	}
	h.clk.Advance(time.Second)

	w = h.do(t, http.MethodPost, base+"/interactions", pv.Token, map[string]any{"type": "cta_click", "label": "Get a quote"})
	if w.Code != http.StatusNoContent {
		t.Fatalf("interaction status = %d", w.Code)
	}
	if w := h.do(t, http.MethodPost, base+"/interactions", pv.Token, map[string]any{"label": "no type"}); w.Code != http.StatusBadRequest {
		t.Fatalf("interaction without type status = %d", w.Code)
	}

	w = h.do(t, http.MethodGet, base+"/metrics", pv.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	var metrics services.MetricsResult
	if err := json.Unmarshal(w.Body.Bytes(), &metrics); err != nil {
		t.Fatal(err)
	}
	if metrics.Metrics.ScrollDepth != 75 || metrics.Metrics.Interactions != 1 || metrics.Metrics.SectionsSeen != 1 {
		t.Fatalf("metrics = %+v", metrics.Metrics)
	}

	if w := h.do(t, http.MethodDelete, base, pv.Token, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	if w := h.do(t, http.MethodGet, base+"/metrics", pv.Token, nil); w.Code != http.StatusNotFound {
		t.Fatalf("metrics after delete status = %d", w.Code)
	}
}

func TestMalformedObservationIsBadRequest(t *testing.T) {
	h := newAPIHarness(t, "")
	pv := h.create(t, false)
	w := h.do(t, http.MethodPost, "/api/v1/pageviews/"+pv.PageViewID+"/observations", pv.Token,
		map[string]any{"observations": []map[string]any{{"type": "hover"}}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}
}

func TestStreamRequiresDebug(t *testing.T) {
	h := newAPIHarness(t, "")
	pv := h.create(t, false)
	if w := h.do(t, http.MethodGet, "/api/v1/pageviews/"+pv.PageViewID+"/stream", pv.Token, nil); w.Code != http.StatusForbidden {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestScoreEndpoint(t *testing.T) {
	h := newAPIHarness(t, "")
	w := h.do(t, http.MethodPost, "/api/v1/score", "", map[string]any{
		"scrollDepthPercent": 80, "timeOnPageSeconds": 200, "readingProgressPercent": 10,
		"visibleSectionCount": 4, "interactionCount": 1, "contentType": "landing",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var res struct {
		OverallScore int      `json:"overallScore"`
		Tier         string   `json:"tier"`
		Signals      []string `json:"signals"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Tier == "" || len(res.Signals) == 0 {
		t.Fatalf("score = %+v", res)
	}
}

func TestHealthAndAdmin(t *testing.T) {
	h := newAPIHarness(t, "")
	if w := h.do(t, http.MethodGet, "/health", "", nil); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"livePageViews":0`) {
		t.Fatalf("health = %d %s", w.Code, w.Body.String())
	}
	if w := h.do(t, http.MethodGet, "/api/v1/admin/logs/levels", "", nil); w.Code != http.StatusNotFound {
		t.Fatalf("admin without configured token status = %d", w.Code)
	}

	h = newAPIHarness(t, "ops")
	if w := h.do(t, http.MethodGet, "/api/v1/admin/logs/levels", "wrong", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong admin token status = %d", w.Code)
	}
	w := h.do(t, http.MethodPost, "/api/v1/admin/logs/levels", "ops", map[string]string{"channel": "tracking", "level": "debug"})
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"tracking":"DEBUG"`) {
		t.Fatalf("set level = %d %s", w.Code, w.Body.String())
	}
	if w := h.do(t, http.MethodPost, "/api/v1/admin/logs/levels", "ops", map[string]string{"channel": "nope", "level": "debug"}); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown channel status = %d", w.Code)
	}
}

func TestWebsocketStream(t *testing.T) {
	h := newAPIHarness(t, "")
	srv := httptest.NewServer(h.router)
	defer srv.Close()
	pv := h.create(t, true)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/pageviews/" + pv.PageViewID + "/ws?token=" + pv.Token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if w := h.do(t, http.MethodPost, "/api/v1/pageviews/"+pv.PageViewID+"/milestones", pv.Token, map[string]string{"type": "pricing_viewed"}); w.Code != http.StatusNoContent {
		t.Fatalf("milestone status = %d", w.Code)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg messaging.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Event != "engagement_milestone" || msg.Properties["milestone_type"] != "pricing_viewed" {
		t.Fatalf("message = %+v", msg)
	}
}

func TestSSEStream(t *testing.T) {
	h := newAPIHarness(t, "")
	srv := httptest.NewServer(h.router)
	defer srv.Close()
	pv := h.create(t, true)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/pageviews/"+pv.PageViewID+"/stream", nil)
	req.Header.Set("Authorization", "Bearer "+pv.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	if line, _ := reader.ReadString('\n'); !strings.HasPrefix(line, ": connection established") {
		t.Fatalf("first line = %q", line)
	}

	h.do(t, http.MethodPost, "/api/v1/pageviews/"+pv.PageViewID+"/interactions", pv.Token, map[string]string{"type": "form_submit"})
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream ended before the interaction: %v", err)
		}
		if strings.HasPrefix(line, "event: user_interaction") {
			break
		}
	}

	// Ending the page view closes the stream.
	h.do(t, http.MethodDelete, "/api/v1/pageviews/"+pv.PageViewID, pv.Token, nil)
	done := make(chan struct{})
	go func() {
		for {
			if _, err := reader.ReadString('\n'); err != nil {
				close(done)
				return
			}
		}
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed after delete")
	}
}
