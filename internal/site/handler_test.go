package site

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func newTestServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()
	store := newTestStore(t)
	h := NewHandler(store, "http://dpd.test", zerolog.Nop())
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestDashboardRenders(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/", "/dashboard"} {
		resp, body := get(t, srv.URL+path)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("%s: got status %d", path, resp.StatusCode)
		}
		if !strings.Contains(body, "Marketing Dashboard") {
			t.Fatalf("%s: dashboard title missing", path)
		}
		if !strings.Contains(body, "/api/metrics/summary") {
			t.Fatalf("%s: chart wiring missing", path)
		}
	}
}

func TestCreateAndViewPost(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Post(srv.URL+"/api/blog", "application/json",
		strings.NewReader(`{"slug":"ai-outlook","title":"AI Outlook","body":"<p>The year ahead.</p>"}`))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: got status %d, want %d", resp.StatusCode, http.StatusCreated)
	}

	// Duplicate slug is a conflict, matching the dashboard's error message.
	resp, err = http.Post(srv.URL+"/api/blog", "application/json",
		strings.NewReader(`{"slug":"ai-outlook","title":"Other","body":"x"}`))
	if err != nil {
		t.Fatalf("duplicate create failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: got status %d, want %d", resp.StatusCode, http.StatusConflict)
	}

	viewResp, body := get(t, srv.URL+"/blog/ai-outlook")
	if viewResp.StatusCode != http.StatusOK {
		t.Fatalf("view: got status %d", viewResp.StatusCode)
	}
	if !strings.Contains(body, "AI Outlook") {
		t.Fatal("article title missing")
	}
	if !strings.Contains(body, "<p>The year ahead.</p>") {
		t.Fatal("article body not rendered as HTML")
	}
}

func TestViewMissingPost(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := get(t, srv.URL+"/blog/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("got status %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

func TestSitemap(t *testing.T) {
	srv, store := newTestServer(t)

	if _, err := store.CreatePost(context.Background(), Post{Slug: "one", Title: "One", Body: "b"}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	resp, body := get(t, srv.URL+"/sitemap.xml")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/xml" {
		t.Fatalf("got content type %q", got)
	}
	if !strings.Contains(body, "<loc>http://dpd.test/blog/one</loc>") {
		t.Fatalf("sitemap missing post url: %s", body)
	}
	if !strings.Contains(body, "http://www.sitemaps.org/schemas/sitemap/0.9") {
		t.Fatal("sitemap namespace missing")
	}
}

func TestRSSFeed(t *testing.T) {
	srv, store := newTestServer(t)

	longBody := strings.Repeat("content ", 100)
	if _, err := store.CreatePost(context.Background(), Post{Slug: "long", Title: "Long Read", Body: longBody}); err != nil {
		t.Fatalf("create post: %v", err)
	}

	resp, body := get(t, srv.URL+"/rss.xml")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Type"); got != "application/rss+xml" {
		t.Fatalf("got content type %q", got)
	}
	if !strings.Contains(body, "<title>Long Read</title>") {
		t.Fatal("rss item title missing")
	}
	if !strings.Contains(body, "<![CDATA[") {
		t.Fatal("rss description not wrapped in CDATA")
	}
	if !strings.Contains(body, "...]]>") {
		t.Fatal("long body not truncated")
	}
}

func TestRobots(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := get(t, srv.URL+"/robots.txt")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("got status %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Sitemap: http://dpd.test/sitemap.xml") {
		t.Fatalf("robots missing sitemap line: %s", body)
	}
}
