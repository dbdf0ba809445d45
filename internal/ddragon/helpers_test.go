package ddragon

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeCDN serves versions.json and champion.json and counts requests
type fakeCDN struct {
	*httptest.Server

	mu           sync.Mutex
	versions     []string
	versionsCode int
	gate         chan struct{} // when non-nil, requests block until closed

	versionHits  atomic.Int32
	manifestHits atomic.Int32
	manifestPath atomic.Value
}

func newFakeCDN(t *testing.T, versions ...string) *fakeCDN {
	t.Helper()
	f := &fakeCDN{versions: versions, versionsCode: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/versions.json", func(w http.ResponseWriter, r *http.Request) {
		f.versionHits.Add(1)
		f.wait(r)

		f.mu.Lock()
		code, versions := f.versionsCode, f.versions
		f.mu.Unlock()

		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		json.NewEncoder(w).Encode(versions)
	})
	mux.HandleFunc("/cdn/", func(w http.ResponseWriter, r *http.Request) {
		f.manifestHits.Add(1)
		f.manifestPath.Store(r.URL.Path)
		f.wait(r)

		f.mu.Lock()
		code := f.versionsCode
		f.mu.Unlock()
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Write([]byte(`{"type":"champion","data":{
			"Ahri":{"id":"Ahri","key":"103","name":"Ahri"},
			"MonkeyKing":{"id":"MonkeyKing","key":"62","name":"Wukong"},
			"Aatrox":{"id":"Aatrox","key":"266","name":"Aatrox"}
		}}`))
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeCDN) wait(r *http.Request) {
	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()
	if gate == nil {
		return
	}
	select {
	case <-gate:
	case <-r.Context().Done():
	}
}

func (f *fakeCDN) setStatus(code int) {
	f.mu.Lock()
	f.versionsCode = code
	f.mu.Unlock()
}

func (f *fakeCDN) setVersions(v ...string) {
	f.mu.Lock()
	f.versions = v
	f.mu.Unlock()
}

func (f *fakeCDN) block() chan struct{} {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()
	return gate
}

func newTestLogger() (*logrus.Logger, *test.Hook) {
	return test.NewNullLogger()
}
