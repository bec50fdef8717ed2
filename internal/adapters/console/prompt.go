package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"venue_submit/internal/adapters/observability"
	"venue_submit/internal/domain"
)

type answer struct {
	line string
	err  error
}

// PromptPolicy asks an operator on a terminal whether to force-create a venue.
// Only an answer of "y" approves; anything else, including EOF, declines.
type PromptPolicy struct {
	mu      sync.Mutex
	in      *bufio.Reader
	out     io.Writer
	pending chan answer // read still in flight from a cancelled prompt
}

func NewPromptPolicy(in io.Reader, out io.Writer) *PromptPolicy {
	return &PromptPolicy{in: bufio.NewReader(in), out: out}
}

// ConfirmCreate returns ctx.Err() as soon as ctx is done, even while waiting
// for input.
func (p *PromptPolicy) ConfirmCreate(ctx context.Context, name string, candidates []domain.DuplicateCandidate) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "Possible duplicates of %q:\n", name)
	for _, c := range candidates {
		fmt.Fprintln(p.out, FormatCandidate(c))
	}
	fmt.Fprint(p.out, "Force submit [y/n]: ")

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.out)
		return false, ctx.Err()
	case a := <-p.readLine():
		p.pending = nil
		if a.err != nil && a.err != io.EOF {
			return false, fmt.Errorf("read answer: %w", a.err)
		}
		ok := strings.TrimSpace(a.line) == "y"
		observability.ObserveDuplicateDecision(ok)
		return ok, nil
	}
}

// readLine starts a read unless one is already in flight.
func (p *PromptPolicy) readLine() <-chan answer {
	if p.pending == nil {
		ch := make(chan answer, 1)
		p.pending = ch
		go func() {
			line, err := p.in.ReadString('\n')
			ch <- answer{line: line, err: err}
		}()
	}
	return p.pending
}

// FormatCandidate renders one candidate as a single console line.
func FormatCandidate(c domain.DuplicateCandidate) string {
	addr := "(No address)"
	if len(c.FormattedAddress) > 0 {
		addr = strings.Join(c.FormattedAddress, ", ")
	}
	return fmt.Sprintf("+ %s :: %s (%d m) :: %s", domain.VenueURL(c.ID), c.Name, c.Distance, addr)
}

// Fixed returns a policy that always gives the same answer.
func Fixed(approve bool) domain.DuplicatePolicy {
	return domain.DecideFunc(func(context.Context, string, []domain.DuplicateCandidate) (bool, error) {
		observability.ObserveDuplicateDecision(approve)
		return approve, nil
	})
}
