package capture

import (
	"bufio"
	"context"
	"io"
	"strings"
)

// ParseAction maps an operator command to an action.
func ParseAction(s string) (Action, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "m", "mark":
		return ActionMark, true
	case "q", "quit", "exit":
		return ActionQuit, true
	default:
		return 0, false
	}
}

// ReadActions reads one command per line from r and sends the recognised
// ones to out until r is exhausted or ctx is done. Unknown lines are ignored.
func ReadActions(ctx context.Context, r io.Reader, out chan<- Action) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		a, ok := ParseAction(scanner.Text())
		if !ok {
			continue
		}
		select {
		case out <- a:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
