package scrape

import (
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/raceinsight/backend/pkg/circuitbreaker"
	"github.com/raceinsight/backend/pkg/errs"
	"github.com/raceinsight/backend/pkg/logger"
)

// Element is one matched node of a rendered page.
type Element interface {
	Text() string
	QueryAll(selector string) []Element
}

// Page is a rendered result page. Implementations must keep per-page
// state isolated so concurrent crawls cannot interleave navigation.
type Page interface {
	IsVisible(selector string) bool
	QueryAll(selector string) []Element
}

// Renderer fetches and renders a page. The crawler depends only on
// this contract; swapping in a headless-browser implementation needs
// no crawler changes.
type Renderer interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) (Page, error)
	Close() error
}

// HTTPRenderer renders pages with a plain HTTP fetch and goquery. Each
// Navigate returns an independent document, so concurrent per-date
// crawls never share page state. A circuit breaker guards the single
// upstream source.
type HTTPRenderer struct {
	client    *http.Client
	userAgent string
	breaker   *circuitbreaker.CircuitBreaker
}

func NewHTTPRenderer(userAgent string, log *zap.Logger) *HTTPRenderer {
	return &HTTPRenderer{
		client:    &http.Client{},
		userAgent: userAgent,
		breaker: circuitbreaker.NewCircuitBreaker("results-source", circuitbreaker.Config{
			FailureThreshold: 5,
			SuccessThreshold: 2,
			Timeout:          30 * time.Second,
			Logger:           log,
		}),
	}
}

func (r *HTTPRenderer) Navigate(ctx context.Context, url string, timeout time.Duration) (Page, error) {
	var page Page
	err := r.breaker.Execute(ctx, func() error {
		navCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(navCtx, http.MethodGet, url, nil)
		if err != nil {
			return errs.Network("failed to create request for %s: %v", url, err)
		}
		req.Header.Set("User-Agent", r.userAgent)

		resp, err := r.client.Do(req)
		if err != nil {
			return errs.WrapNetwork(err, "failed to fetch "+url)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return errs.Network("fetch %s returned status %d", url, resp.StatusCode)
		}

		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			return errs.DataProcess("failed to parse HTML from %s: %v", url, err)
		}

		logger.Debug("Page rendered", zap.String("url", url))
		page = &goqueryPage{doc: doc}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (r *HTTPRenderer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

type goqueryPage struct {
	doc *goquery.Document
}

func (p *goqueryPage) IsVisible(selector string) bool {
	return p.doc.Find(selector).Length() > 0
}

func (p *goqueryPage) QueryAll(selector string) []Element {
	return collect(p.doc.Find(selector))
}

type goqueryElement struct {
	sel *goquery.Selection
}

func (e *goqueryElement) Text() string {
	return e.sel.Text()
}

func (e *goqueryElement) QueryAll(selector string) []Element {
	return collect(e.sel.Find(selector))
}

func collect(sel *goquery.Selection) []Element {
	elements := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		elements = append(elements, &goqueryElement{sel: s})
	})
	return elements
}
