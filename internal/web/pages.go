package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jobboard/jobboard/internal/store"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// renderMarkdown converts job text to HTML. Raw HTML in the source is
// dropped by goldmark's default renderer.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

type pageTemplates map[string]*template.Template

func parsePages() (pageTemplates, error) {
	funcs := template.FuncMap{"markdown": renderMarkdown}
	pages := pageTemplates{}
	for _, name := range []string{"index", "detail", "not_found"} {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

// PageLink is one entry of the listing pagination.
type PageLink struct {
	Num       int
	URL       string
	IsCurrent bool
}

// TagLink links a tag name to the listing filtered by it.
type TagLink struct {
	Name string
	URL  string
}

// JobItem is a listed job with its tags.
type JobItem struct {
	store.Listing
	Tags []TagLink
}

// Listing is the data of one listing page.
type Listing struct {
	Count       int
	PageSize    int
	CurrentPage int
	Query       string
	Tag         string
	PageRange   []PageLink
	Jobs        []JobItem
}

// listingURL builds a listing URL carrying the non-empty parameters.
func listingURL(page int, query, tag string) string {
	params := url.Values{}
	if page > 0 {
		params.Set("p", strconv.Itoa(page))
	}
	if query != "" {
		params.Set("q", query)
	}
	if tag != "" {
		params.Set("t", tag)
	}
	if len(params) == 0 {
		return "/"
	}
	return "/?" + params.Encode()
}

// BuildListing loads page (1-based) of the jobs matching filter.
// The page count rounds up so a trailing partial page is reachable.
// A perPage below 1 uses the default page size.
func BuildListing(ctx context.Context, db *store.DB, filter store.JobFilter, page, perPage int) (*Listing, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultJobsPerPage
	}

	count, err := db.CountJobsContext(ctx, filter)
	if err != nil {
		return nil, err
	}

	listing := &Listing{
		Count:       count,
		PageSize:    perPage,
		CurrentPage: page,
		Query:       filter.Query,
		Tag:         filter.Tag,
	}

	pages := (count + perPage - 1) / perPage
	for n := 1; n <= pages; n++ {
		listing.PageRange = append(listing.PageRange, PageLink{
			Num:       n,
			URL:       listingURL(n, filter.Query, filter.Tag),
			IsCurrent: n == page,
		})
	}

	rows, err := db.ListJobsContext(ctx, filter, (page-1)*perPage, perPage)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
	}
	tags, err := db.TagsForJobsContext(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		item := JobItem{Listing: row}
		for _, name := range tags[row.ID] {
			item.Tags = append(item.Tags, TagLink{Name: name, URL: listingURL(0, "", name)})
		}
		listing.Jobs = append(listing.Jobs, item)
	}
	return listing, nil
}

// pageData wraps page content with the site info.
type pageData struct {
	Site SiteInfo
	Page any
}

func (s *Server) render(w http.ResponseWriter, status int, name string, page any) {
	var buf bytes.Buffer
	if err := s.pages[name].Execute(&buf, pageData{Site: s.site, Page: page}); err != nil {
		s.logger.Printf("Failed to render %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// handleIndex serves the job listing: ?q= title substring, ?t= tag name,
// ?p= 1-based page. An invalid page falls back to the first.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := strconv.Atoi(q.Get("p"))
	if err != nil || page < 1 {
		page = 1
	}

	filter := store.JobFilter{Query: q.Get("q"), Tag: q.Get("t")}
	listing, err := BuildListing(r.Context(), s.db, filter, page, s.jobsPerPage)
	if err != nil {
		s.logger.Printf("Failed to build listing: %v", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "index", listing)
}

// handleDetail serves one job by local id.
func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		s.render(w, http.StatusNotFound, "not_found", nil)
		return
	}

	job, err := s.db.GetJobContext(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.render(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if err != nil {
		s.logger.Printf("Failed to load job %d: %v", id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	s.render(w, http.StatusOK, "detail", job)
}
