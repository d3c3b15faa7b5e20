package saj

import (
	"embed"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

//go:embed testdata/*
var testdata embed.FS

const (
	TestUsername = "admin"
	TestPassword = "admin"
)

// TestDevice fakes an inverter's web interface from the bundled fixtures.
// Ethernet fixtures are numbered from 1 (status1.xml), wifi fixtures are row
// indexes of status.csv and info.csv.
type TestDevice struct {
	Server *httptest.Server

	dialect Dialect
	mu      sync.Mutex
	fixture int
	status  int
	delay   time.Duration
	padding int
	paths   []string
}

func NewTestDevice(dialect Dialect, fixture int) *TestDevice {
	d := &TestDevice{dialect: dialect, fixture: fixture}
	d.Server = httptest.NewServer(http.HandlerFunc(d.serve))
	return d
}

func (d *TestDevice) Host() string {
	return strings.TrimPrefix(d.Server.URL, "http://")
}

func (d *TestDevice) Close() {
	d.Server.Close()
}

func (d *TestDevice) SetFixture(fixture int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fixture = fixture
}

// FailWith makes every later request answer with the given status code.
func (d *TestDevice) FailWith(status int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.status = status
}

// Delay holds every later response back for d, or until the client gives up.
func (d *TestDevice) Delay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delay = delay
}

// Pad appends n filler bytes to every later status document.
func (d *TestDevice) Pad(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.padding = n
}

func (d *TestDevice) Paths() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.paths...)
}

func (d *TestDevice) serve(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	d.paths = append(d.paths, r.URL.Path)
	fixture, status, delay, padding := d.fixture, d.status, d.delay, d.padding
	d.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		w.WriteHeader(status)
		return
	}

	var body []byte
	var err error
	switch d.dialect {
	case Ethernet:
		switch r.URL.Path {
		case ethernetInfoPath:
			body, err = testdata.ReadFile("testdata/info.xml")
		case ethernetStatusPath:
			body, err = testdata.ReadFile(fmt.Sprintf("testdata/status%d.xml", fixture))
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/xml")
	case WiFi:
		if u, p, ok := r.BasicAuth(); !ok || u != TestUsername || p != TestPassword {
			w.Header().Set("WWW-Authenticate", `Basic realm="SAJ"`)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case wifiInfoPath:
			body, err = csvRow("testdata/info.csv", fixture)
		case wifiStatusPath:
			body, err = csvRow("testdata/status.csv", fixture)
		default:
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if padding > 0 && (r.URL.Path == ethernetStatusPath || r.URL.Path == wifiStatusPath) {
		body = append(body, strings.Repeat(" ", padding)...)
	}
	_, _ = w.Write(body)
}

func csvRow(name string, row int) ([]byte, error) {
	data, err := testdata.ReadFile(name)
	if err != nil {
		return nil, err
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if row < 0 || row >= len(lines) {
		return nil, fmt.Errorf("%s has no row %d", name, row)
	}
	return []byte(lines[row]), nil
}
