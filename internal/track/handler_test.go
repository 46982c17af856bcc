package track

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func newTestHandler(t *testing.T) (*Handler, *Store) {
	t.Helper()
	store := newTestStore(t)
	return NewHandler(store, zerolog.Nop()), store
}

func TestPixelReturnsGIFAndRecordsVisit(t *testing.T) {
	h, store := newTestHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/track?utm_source=linkedin&utm_medium=social&utm_campaign=AugLaunch", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Referer", "https://example.com/post")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
	if got := resp.Header.Get("Content-Type"); got != "image/gif" {
		t.Fatalf("got content type %q, want image/gif", got)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !bytes.Equal(body, pixelGIF) {
		t.Fatalf("pixel bytes differ: got %d bytes", len(body))
	}

	summary, err := store.Summary(req.Context(), 1)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary[0].Count != 1 {
		t.Fatalf("visit not recorded: %+v", summary)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/metrics/summary?days=3")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusOK)
	}
	var summary []DayCount
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if len(summary) != 3 {
		t.Fatalf("got %d buckets, want 3", len(summary))
	}
}

func TestSummaryRejectsBadDays(t *testing.T) {
	h, _ := newTestHandler(t)
	srv := httptest.NewServer(h.Router())
	defer srv.Close()

	for _, days := range []string{"abc", "0", "-1", "9999"} {
		resp, err := http.Get(srv.URL + "/api/metrics/summary?days=" + days)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("days=%s: got status %d, want %d", days, resp.StatusCode, http.StatusBadRequest)
		}
	}
}

func TestMediumLabel(t *testing.T) {
	cases := map[string]string{
		"social":     "social",
		"email":      "email",
		"cpc":        "cpc",
		"organic":    "organic",
		"":           "none",
		"random-utm": "other",
	}
	for input, expected := range cases {
		if got := mediumLabel(input); got != expected {
			t.Fatalf("mediumLabel(%q)=%q, expected %q", input, got, expected)
		}
	}
}
