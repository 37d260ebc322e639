package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

const gateBanner = `
============================================================
ACTION REQUIRED: MANUAL BYPASS
1. Solve the challenge in the browser.
2. Run the search.
3. Ensure the results table is visible.
============================================================
`

// Gate wraps a PageSource behind an operator confirmation step. Ready
// prints instructions and blocks until the operator confirms the result
// view is visible, then delegates to the wrapped source. All other calls
// pass through untouched, keeping the gate decoupled from data fetching.
type Gate struct {
	PageSource
	in  io.Reader
	out io.Writer
}

// NewGate wraps src. in and out are typically os.Stdin and os.Stdout.
func NewGate(src PageSource, in io.Reader, out io.Writer) *Gate {
	return &Gate{PageSource: src, in: in, out: out}
}

// Ready blocks until a line arrives on the gate's input, then confirms the
// wrapped source is ready. Context cancellation aborts the wait.
func (g *Gate) Ready(ctx context.Context) error {
	fmt.Fprint(g.out, gateBanner)
	fmt.Fprint(g.out, "Press ENTER once the data table is visible... ")

	lines := make(chan error, 1)
	go func() {
		// EOF counts as confirmation so piped input works.
		_, err := bufio.NewReader(g.in).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			lines <- eris.Wrap(err, "gate: read confirmation")
			return
		}
		lines <- nil
	}()

	select {
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "gate: wait for confirmation")
	case err := <-lines:
		if err != nil {
			return err
		}
	}

	zap.L().Info("operator confirmed result view")
	return g.PageSource.Ready(ctx)
}
