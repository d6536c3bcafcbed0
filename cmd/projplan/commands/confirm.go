package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/slok/projplan/internal/lock"
	"github.com/slok/projplan/internal/model"
	"github.com/slok/projplan/internal/printer"
)

// newPromptConfirmer asks the user on the terminal before taking over a lock.
// Anything that is not an explicit yes declines.
func newPromptConfirmer(in io.Reader, out io.Writer) lock.ConfirmerFunc {
	return func(ctx context.Context, current model.LockRecord) (bool, error) {
		if in == nil {
			return false, nil
		}

		fmt.Fprintf(out, "Project data is locked by %s since %s (pid %d). Take over the lock? [y/N]: ",
			current.Owner, printer.FormatTimestamp(current.When), current.PID)

		answer := make(chan string, 1)
		errC := make(chan error, 1)
		go func() {
			line, err := bufio.NewReader(in).ReadString('\n')
			if err != nil && (err != io.EOF || line == "") {
				errC <- err
				return
			}
			answer <- line
		}()

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case err := <-errC:
			if err == io.EOF {
				return false, nil
			}
			return false, fmt.Errorf("could not read answer: %w", err)
		case a := <-answer:
			return isYes(a), nil
		}
	}
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
