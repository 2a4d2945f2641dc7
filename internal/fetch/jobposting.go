package fetch

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/jonathan/forgecv/internal/types"
)

// MaxJDChars caps the posting text handed to the model.
const MaxJDChars = 15000

// Fetch methods recorded on a JobPosting.
const (
	MethodWorkday = "workday"
	MethodHTTP    = "http"
	MethodBrowser = "browser"
)

// Fetcher turns a posting URL into job description text.
type Fetcher struct {
	opts   *Options
	render Renderer
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithOptions sets the HTTP options.
func WithOptions(opts *Options) FetcherOption {
	return func(f *Fetcher) { f.opts = opts }
}

// WithRenderer sets the headless renderer used for script-heavy pages. nil disables it.
func WithRenderer(r Renderer) FetcherOption {
	return func(f *Fetcher) { f.render = r }
}

// NewFetcher returns a Fetcher that renders short pages with RenderPage.
func NewFetcher(opts ...FetcherOption) *Fetcher {
	f := &Fetcher{opts: DefaultOptions(), render: RenderPage}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// JobPosting fetches url and extracts the posting. Workday boards are read through their JSON
// API; other pages are fetched over HTTP and rendered in a browser when the text is too short.
func (f *Fetcher) JobPosting(ctx context.Context, rawURL string) (*types.JobPosting, error) {
	u, err := checkURL(rawURL, f.opts.AllowPrivate)
	if err != nil {
		return nil, err
	}

	if apiURL, company, ok := workdayAPIURL(u); ok {
		posting, err := f.workday(ctx, apiURL, company)
		if err == nil {
			posting.URL = rawURL
			return posting, nil
		}
		slog.Warn("workday API fetch failed, falling back to page fetch", "url", rawURL, "error", err)
	}

	platform := DetectPlatform(rawURL)
	res, err := URL(ctx, rawURL, f.opts)
	if err != nil {
		return nil, err
	}
	posting, err := extractPosting(res.HTML, platform)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to extract content", Cause: err}
	}
	posting.URL = rawURL
	posting.Method = MethodHTTP

	if f.render != nil && ShouldUseBrowser(posting.Text) {
		html, err := f.render(ctx, rawURL)
		switch {
		case err != nil:
			slog.Warn("browser fallback failed", "url", rawURL, "error", err)
		default:
			if rendered, err := extractPosting(html, platform); err == nil && len(rendered.Text) > len(posting.Text) {
				rendered.URL = rawURL
				rendered.Method = MethodBrowser
				posting = rendered
			}
		}
	}

	if strings.TrimSpace(posting.Text) == "" {
		return nil, &Error{URL: rawURL, Message: "no text content found"}
	}
	return posting, nil
}

func (f *Fetcher) workday(ctx context.Context, apiURL, company string) (*types.JobPosting, error) {
	opts := *f.opts
	opts.Headers = map[string]string{"Accept": "application/json"}
	res, err := URL(ctx, apiURL, &opts)
	if err != nil {
		return nil, err
	}
	return parseWorkday(res.HTML, company)
}

// parseWorkday reads the jobPostingInfo object of a Workday cxs response.
func parseWorkday(body, company string) (*types.JobPosting, error) {
	info := gjson.Get(body, "jobPostingInfo")
	if !info.Exists() {
		return nil, errors.New("response has no jobPostingInfo")
	}
	hiring := info.Get("hiringOrganization").String()
	if hiring == "" {
		hiring = company
	}
	return &types.JobPosting{
		Title:   info.Get("title").String(),
		Company: hiring,
		Text:    Truncate(StripTags(info.Get("jobDescription").String()), MaxJDChars),
		Method:  MethodWorkday,
	}, nil
}

func extractPosting(html string, platform Platform) (*types.JobPosting, error) {
	text, err := ExtractMainText(html, PlatformContentSelectors(platform), PlatformNoiseSelectors(platform)...)
	if err != nil {
		return nil, err
	}
	meta := ExtractMetadata(html)
	return &types.JobPosting{
		Title:   meta.Title,
		Company: meta.Company,
		Text:    Truncate(strings.Join(strings.Fields(text), " "), MaxJDChars),
	}, nil
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
