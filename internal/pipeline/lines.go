package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

const maxLineSize = 1 << 20

// Lines sends the non-blank lines of r, without line endings, on the
// returned channel and closes it at EOF or when ctx is done. The returned
// func reports a read error once the channel has closed.
func Lines(ctx context.Context, r io.Reader) (<-chan string, func() error) {
	ch := make(chan string)
	done := make(chan struct{})
	var readErr error

	go func() {
		defer close(done)
		defer close(ch)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for sc.Scan() {
			line := strings.TrimRight(sc.Text(), "\r")
			if strings.TrimSpace(line) == "" {
				continue
			}
			select {
			case ch <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			readErr = fmt.Errorf("pipeline read: %w", err)
		}
	}()

	return ch, func() error {
		<-done
		return readErr
	}
}
