package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/registry-extract/internal/resilience"
)

// TableOptions configures an HTML table source.
type TableOptions struct {
	// URL of the result view. Required.
	URL string

	// RowSelector matches result rows. Default: "table tbody tr".
	RowSelector string

	// NextSelector matches the next-page control. Default:
	// "a[rel=next], .pagination a.next".
	NextSelector string

	// Timeout bounds each request. Default: 30s.
	Timeout time.Duration

	UserAgent string
}

// TableSource reads a paginated HTML result table over HTTP. It holds the
// document of the page it last fetched so pagination controls are resolved
// against the same view the rows came from.
type TableSource struct {
	client  *resty.Client
	opts    TableOptions
	log     *zap.Logger
	current string            // URL of the current page
	doc     *goquery.Document // last fetched page, nil until FetchRows
}

// NewTableSource creates a TableSource. It does not touch the network; the
// first request happens in Ready.
func NewTableSource(opts TableOptions) (*TableSource, error) {
	if opts.URL == "" {
		return nil, eris.New("source: url is required")
	}
	if opts.RowSelector == "" {
		opts.RowSelector = "table tbody tr"
	}
	if opts.NextSelector == "" {
		opts.NextSelector = "a[rel=next], .pagination a.next"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	client := resty.New().SetTimeout(opts.Timeout)
	if opts.UserAgent != "" {
		client.SetHeader("User-Agent", opts.UserAgent)
	}

	return &TableSource{
		client:  client,
		opts:    opts,
		log:     zap.L().With(zap.String("component", "source.table")),
		current: opts.URL,
	}, nil
}

// Ready performs the initial request to confirm the result view is
// reachable. A failure here is a session-initialization fault.
func (s *TableSource) Ready(ctx context.Context) error {
	doc, err := s.fetch(ctx)
	if err != nil {
		return eris.Wrap(err, "source: result view not reachable")
	}
	s.doc = doc
	s.log.Info("result view ready", zap.String("url", s.current))
	return nil
}

// FetchRows fetches the current page and returns the cell text of every
// result row. Rows without cells (header rows) are skipped.
func (s *TableSource) FetchRows(ctx context.Context) ([]Row, error) {
	doc, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	s.doc = doc

	var rows []Row
	doc.Find(s.opts.RowSelector).Each(func(_ int, tr *goquery.Selection) {
		var cells Row
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(td.Text()))
		})
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	})
	return rows, nil
}

// HasNextPage inspects the current page for an enabled next-page control.
func (s *TableSource) HasNextPage(ctx context.Context) (bool, error) {
	if s.doc == nil {
		doc, err := s.fetch(ctx)
		if err != nil {
			return false, err
		}
		s.doc = doc
	}

	next := s.doc.Find(s.opts.NextSelector).First()
	if next.Length() == 0 {
		return false, nil
	}
	if next.HasClass("disabled") {
		return false, nil
	}
	if _, ok := next.Attr("disabled"); ok {
		return false, nil
	}
	href, ok := next.Attr("href")
	return ok && href != "", nil
}

// AdvancePage resolves the next-page link against the current URL and moves
// the session there. The new page is fetched lazily by the next FetchRows.
func (s *TableSource) AdvancePage(ctx context.Context) (bool, error) {
	ok, err := s.HasNextPage(ctx)
	if err != nil || !ok {
		return false, err
	}

	href, _ := s.doc.Find(s.opts.NextSelector).First().Attr("href")
	base, err := url.Parse(s.current)
	if err != nil {
		return false, eris.Wrapf(err, "source: parse current url %s", s.current)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return false, eris.Wrapf(err, "source: parse next href %s", href)
	}

	s.current = base.ResolveReference(ref).String()
	s.doc = nil
	s.log.Debug("advanced to next page", zap.String("url", s.current))
	return true, nil
}

// Close releases idle connections. TableSource keeps no server-side session.
func (s *TableSource) Close() error {
	s.client.GetClient().CloseIdleConnections()
	return nil
}

func (s *TableSource) fetch(ctx context.Context) (*goquery.Document, error) {
	resp, err := s.client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(s.current)
	if err != nil {
		return nil, eris.Wrapf(err, "source: get %s", s.current)
	}
	body := resp.RawBody()
	defer body.Close()

	if code := resp.StatusCode(); code != 200 {
		err := eris.Errorf("source: %s returned status %d", s.current, code)
		if resilience.IsTransientHTTPStatus(code) {
			return nil, resilience.NewTransientError(err, code)
		}
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: parse %s", s.current)
	}
	return doc, nil
}
