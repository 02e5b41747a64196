package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/debounced-button/internal/logic"
	"github.com/sweeney/debounced-button/internal/metrics"
	"github.com/sweeney/debounced-button/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Pin:         17,
		Backend:     "gpiocdev",
		Polarity:    "active-low",
		PollMs:      10,
		DebounceMs:  100,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	m := metrics.New(logic.ActiveLow)
	srv := New(":0", tr, m.Handler())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, m
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.StateDown, logic.Low, time.Date(2026, 1, 1, 0, 0, 5, 0, time.UTC), logic.EventCounts{Presses: 5, Releases: 4})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	if sj.Status.State != "DOWN" {
		t.Errorf("State: got %q, want DOWN", sj.Status.State)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Pressed != 5 {
		t.Errorf("Counts.Pressed: got %d, want 5", sj.Status.Counts.Pressed)
	}
	if sj.Status.Config.Pin != 17 {
		t.Errorf("Config.Pin: got %d, want 17", sj.Status.Config.Pin)
	}
}

func TestJSONUnknownStateBeforeFirstPoll(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first poll: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.StateDown, logic.Low, time.Time{}, logic.EventCounts{Presses: 1})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{"Button 17", `class="down">DOWN`, "never", "active-low"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, m := newTestServer(t)
	m.Transition(logic.Transition{Pin: 17, Level: logic.Low})

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `button_transitions_total{edge="pressed",pin="17"} 1`) {
		t.Errorf("metrics missing transition counter:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	tr.Update(logic.StateUp, logic.High, time.Time{}, logic.EventCounts{})
	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.State != "UP" {
		t.Errorf("State: got %q, want UP", sj.Status.State)
	}

	tr.Update(logic.StateDown, logic.Low, time.Now(), logic.EventCounts{Presses: 1})
	tr.SetMQTTConnected(true)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "DOWN" {
		t.Errorf("State: got %q, want DOWN", sj.Status.State)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}

func TestUptimeFormat(t *testing.T) {
	fn := indexTmpl.Lookup("index")
	if fn == nil {
		t.Fatal("index template missing")
	}

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var sb strings.Builder
	renderHTML(&sb, status.Snapshot{StartTime: start, Now: start.Add(26*time.Hour + 3*time.Minute + 4*time.Second)})
	if !strings.Contains(sb.String(), "1d 2h 3m 4s") {
		t.Error("expected uptime 1d 2h 3m 4s in page")
	}
}
