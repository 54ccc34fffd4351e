package api

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sourcegraph/conc"
	"github.com/travigo/livebus/pkg/ctdf"
	"github.com/travigo/livebus/pkg/lines"
	"github.com/travigo/livebus/pkg/positions"
)

type discardPublisher struct{}

func (discardPublisher) Publish(ctdf.SharingEvent) {}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	catalog, err := lines.Load("../lines/testdata/lines.geojson")
	if err != nil {
		t.Fatalf("load lines: %v", err)
	}

	return NewApp(positions.NewStore(), catalog, discardPublisher{})
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/position", nil)
	req.Header.Set("Origin", "https://example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Custom")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	if resp.StatusCode >= 300 {
		t.Fatalf("expected preflight success, got %d", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected any origin, got %q", origin)
	}
	if methods := resp.Header.Get("Access-Control-Allow-Methods"); !strings.Contains(methods, "POST") {
		t.Errorf("expected POST to be allowed, got %q", methods)
	}
	if headers := resp.Header.Get("Access-Control-Allow-Headers"); !strings.Contains(headers, "X-Custom") {
		t.Errorf("expected requested headers to be allowed, got %q", headers)
	}
}

func TestCORSOnSimpleRequest(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://example.org")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("expected any origin, got %q", origin)
	}
}

func TestFrameworkErrorsAreJSON(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		method string
		target string
		code   int
	}{
		{http.MethodGet, "/api/unknown", http.StatusNotFound},
		{http.MethodDelete, "/api/position/12", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		resp, err := app.Test(httptest.NewRequest(tt.method, tt.target, nil), -1)
		if err != nil {
			t.Fatalf("%s %s: %v", tt.method, tt.target, err)
		}
		if resp.StatusCode != tt.code {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.target, tt.code, resp.StatusCode)
		}

		var body map[string]string
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("%s %s: decode: %v", tt.method, tt.target, err)
		}
		if body["error"] == "" {
			t.Errorf("%s %s: expected an error message", tt.method, tt.target)
		}
	}
}

func TestEscapedBusNumber(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/position", strings.NewReader(`{"busNumber":"bus 42","latitude":1,"longitude":2}`))
	req.Header.Set("Content-Type", "application/json")
	if _, err := app.Test(req, -1); err != nil {
		t.Fatalf("save: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/position/bus%2042", nil), -1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestPathParametersKeepReservedCharacters(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		busNumber string
		target    string
	}{
		{"C+1", "/api/position/C+1"},
		{"C+2", "/api/position/C%2B2"},
		{"a/b", "/api/position/a%2Fb"},
		{"100%", "/api/position/100%25"},
	}

	for _, tt := range tests {
		body := fmt.Sprintf(`{"busNumber":%q,"latitude":1,"longitude":2}`, tt.busNumber)
		req := httptest.NewRequest(http.MethodPost, "/api/position", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if _, err := app.Test(req, -1); err != nil {
			t.Fatalf("%s: save: %v", tt.busNumber, err)
		}

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, tt.target, nil), -1)
		if err != nil {
			t.Fatalf("%s: get: %v", tt.target, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", tt.target, resp.StatusCode)
		}
	}

	// "C 1" was never shared, so a '+' must not be read as a space
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/position/C%201", nil), -1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for \"C 1\", got %d", resp.StatusCode)
	}
}

func TestLineCodeWithSign(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/api/line/+42", "/api/line/%2B42"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		if err != nil {
			t.Fatalf("%s: %v", target, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", target, resp.StatusCode)
		}
	}
}

func TestLineKeepsAltitudeAndForeignMembers(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/line/9007199254740993", nil), -1)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if contentType := resp.Header.Get("Content-Type"); !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
		t.Errorf("expected JSON content type, got %q", contentType)
	}

	var feature struct {
		Source   string `json:"source"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&feature); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if feature.Source != "agency" {
		t.Errorf("expected source=agency, got %q", feature.Source)
	}
	if len(feature.Geometry.Coordinates) != 2 || len(feature.Geometry.Coordinates[0]) != 3 {
		t.Fatalf("expected two 3D positions, got %v", feature.Geometry.Coordinates)
	}
	if feature.Geometry.Coordinates[0][2] != 120 {
		t.Errorf("expected altitude 120, got %f", feature.Geometry.Coordinates[0][2])
	}
}

func TestConcurrentVehicles(t *testing.T) {
	app := newTestApp(t)
	const vehicles = 50

	var wg conc.WaitGroup
	for i := 0; i < vehicles; i++ {
		i := i
		wg.Go(func() {
			body := fmt.Sprintf(`{"busNumber":"bus%d","latitude":%d.5,"longitude":-%d.25}`, i, i, i)
			req := httptest.NewRequest(http.MethodPost, "/api/position", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")

			resp, err := app.Test(req, -1)
			if err != nil {
				t.Errorf("bus%d: %v", i, err)
				return
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("bus%d: expected 200, got %d", i, resp.StatusCode)
			}
		})
	}
	wg.Wait()

	for i := 0; i < vehicles; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/position/bus%d", i), nil), -1)
		if err != nil {
			t.Fatalf("bus%d: %v", i, err)
		}

		var position ctdf.Position
		if err := json.NewDecoder(resp.Body).Decode(&position); err != nil {
			t.Fatalf("bus%d: decode: %v", i, err)
		}
		if position.Latitude != float64(i)+0.5 || position.Longitude != -(float64(i)+0.25) {
			t.Errorf("bus%d: got %f,%f", i, position.Latitude, position.Longitude)
		}
	}
}

func TestServeStopsOnSignal(t *testing.T) {
	app := newTestApp(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	address := "http://" + ln.Addr().String()

	signals := make(chan os.Signal, 1)
	served := make(chan error, 1)
	go func() {
		served <- Serve(app, ln, signals)
	}()

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(address + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	signals <- os.Interrupt

	select {
	case err := <-served:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(shutdownTimeout + 5*time.Second):
		t.Fatal("server did not stop after signal")
	}

	if _, err := client.Get(address + "/health"); err == nil {
		t.Error("expected server to stop accepting connections")
	}
}
