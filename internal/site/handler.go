package site

import (
	"context"
	"embed"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dpdjournals/marketing-service/internal/common"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var (
	pageCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "site_page_requests_total",
		Help: "Site page requests by page and status",
	}, []string{"page", "status"})
)

type Handler struct {
	store    *Store
	siteBase string
	tracer   trace.Tracer
	logger   zerolog.Logger
}

func NewHandler(store *Store, siteBase string, logger zerolog.Logger) *Handler {
	return &Handler{
		store:    store,
		siteBase: siteBase,
		tracer:   otel.Tracer("site"),
		logger:   logger,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	h.Routes(r)
	return r
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.dashboard)
	r.Get("/dashboard", h.dashboard)
	r.Post("/api/blog", h.createPost)
	r.Get("/blog/{slug}", h.viewPost)
	r.Get("/sitemap.xml", h.sitemap)
	r.Get("/rss.xml", h.rss)
	r.Get("/robots.txt", h.robots)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "dashboard.html", nil); err != nil {
		h.logger.Error().Err(err).Msg("render dashboard failed")
	}
	pageCounter.WithLabelValues("dashboard", "ok").Inc()
}

type BlogInput struct {
	Slug  string `json:"slug"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "create-post")
	defer span.End()

	var input BlogInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, "blog", err)
		return
	}
	if err := validateBlogInput(input); err != nil {
		h.respondErr(ctx, w, http.StatusBadRequest, "blog", err)
		return
	}
	span.SetAttributes(attribute.String("post.slug", input.Slug))

	post, err := h.store.CreatePost(ctx, Post{Slug: input.Slug, Title: input.Title, Body: input.Body})
	if errors.Is(err, ErrSlugExists) {
		pageCounter.WithLabelValues("blog", "conflict").Inc()
		h.respondJSON(w, http.StatusConflict, map[string]any{"ok": false, "message": "Slug already exists"})
		return
	}
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "blog", err)
		return
	}

	pageCounter.WithLabelValues("blog", "created").Inc()
	h.respondJSON(w, http.StatusCreated, map[string]any{
		"ok":      true,
		"id":      post.ID,
		"message": fmt.Sprintf("Published %q", post.Title),
	})
}

func (h *Handler) viewPost(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "view-post")
	defer span.End()

	slug := chi.URLParam(r, "slug")
	post, err := h.store.GetBySlug(ctx, slug)
	if errors.Is(err, ErrPostNotFound) {
		pageCounter.WithLabelValues("article", "not_found").Inc()
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("<h1>Not found</h1>"))
		return
	}
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "article", err)
		return
	}

	data := struct {
		Title       string
		Description string
		Updated     string
		Body        template.HTML
	}{
		Title:       post.Title,
		Description: excerpt(post.Title, 140),
		Updated:     post.UpdatedAt.Format("2006-01-02 15:04 MST"),
		// Authors publish trusted HTML bodies from the dashboard.
		Body: template.HTML(post.Body),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.ExecuteTemplate(w, "article.html", data); err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Msg("render article failed")
		return
	}
	pageCounter.WithLabelValues("article", "ok").Inc()
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func (h *Handler) sitemap(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "sitemap")
	defer span.End()

	posts, err := h.store.ListPosts(ctx, 1000)
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "sitemap", err)
		return
	}

	set := sitemapURLSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, post := range posts {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:     h.siteBase + "/blog/" + post.Slug,
			LastMod: post.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}

	pageCounter.WithLabelValues("sitemap", "ok").Inc()
	h.respondXML(ctx, w, "application/xml", set)
}

type rssItem struct {
	Title       string   `xml:"title"`
	Link        string   `xml:"link"`
	Description struct {
		Text string `xml:",cdata"`
	} `xml:"description"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Link        string    `xml:"link"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

func (h *Handler) rss(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "rss")
	defer span.End()

	posts, err := h.store.ListPosts(ctx, 20)
	if err != nil {
		h.respondErr(ctx, w, http.StatusInternalServerError, "rss", err)
		return
	}

	feed := rssFeed{
		Version: "2.0",
		Channel: rssChannel{
			Title:       "DPD Journals Feed",
			Link:        h.siteBase,
			Description: "Latest content",
		},
	}
	for _, post := range posts {
		item := rssItem{
			Title: post.Title,
			Link:  h.siteBase + "/blog/" + post.Slug,
		}
		item.Description.Text = excerpt(post.Body, 400)
		feed.Channel.Items = append(feed.Channel.Items, item)
	}

	pageCounter.WithLabelValues("rss", "ok").Inc()
	h.respondXML(ctx, w, "application/rss+xml", feed)
}

func (h *Handler) robots(w http.ResponseWriter, r *http.Request) {
	pageCounter.WithLabelValues("robots", "ok").Inc()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("User-agent: *\nAllow: /\nSitemap: " + h.siteBase + "/sitemap.xml\n"))
}

func (h *Handler) respondXML(ctx context.Context, w http.ResponseWriter, contentType string, body any) {
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write([]byte(xml.Header))
	if err := xml.NewEncoder(w).Encode(body); err != nil {
		logger := common.WithContext(ctx, h.logger)
		logger.Error().Err(err).Msg("encode xml failed")
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) respondErr(ctx context.Context, w http.ResponseWriter, status int, page string, err error) {
	logger := common.WithContext(ctx, h.logger)
	logger.Error().Err(err).Int("status", status).Str("page", page).Msg("site handler failed")
	pageCounter.WithLabelValues(page, "error").Inc()
	http.Error(w, err.Error(), status)
}

func validateBlogInput(input BlogInput) error {
	if input.Slug == "" {
		return errors.New("slug is required")
	}
	if input.Title == "" {
		return errors.New("title is required")
	}
	if input.Body == "" {
		return errors.New("body is required")
	}
	return nil
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
