// Package source provides access to the paginated registry result view.
//
// The extraction engine consumes the PageSource interface and assumes
// nothing about how pages are rendered; TableSource implements it for
// plain HTML result tables, and Gate wraps any implementation behind an
// operator confirmation step for sources that require a human to clear a
// challenge before results are visible.
package source

import "context"

// Row is the ordered cell text of one result row.
type Row []string

// PageSource yields raw result rows and supports page advancement for a
// single sequential session.
type PageSource interface {
	// Ready blocks until the result view is confirmed visible. It is
	// called once, before the first fetch.
	Ready(ctx context.Context) error

	// FetchRows returns the cell text of every visible result row, or an
	// empty slice when none are present.
	FetchRows(ctx context.Context) ([]Row, error)

	// HasNextPage reports whether a next-page control is present and enabled.
	HasNextPage(ctx context.Context) (bool, error)

	// AdvancePage activates the next-page control and reports whether the
	// move succeeded.
	AdvancePage(ctx context.Context) (bool, error)

	// Close releases the session. It must be safe to call on every exit
	// path, including after a failed Ready.
	Close() error
}
