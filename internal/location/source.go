package location

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
)

// ChanSource adapts a plain channel into a Source. Used by tests and by
// in-process feeds that already produce Sample values.
type ChanSource struct {
	C chan Sample
}

func NewChanSource() *ChanSource {
	return &ChanSource{C: make(chan Sample, 16)}
}

func (s *ChanSource) Watch(ctx context.Context) (<-chan Sample, error) {
	out := make(chan Sample)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case sample, ok := <-s.C:
				if !ok {
					return
				}
				select {
				case out <- sample:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// ReaderSource decodes newline-delimited JSON samples from r, one fix per
// line. cmd/rider uses it to consume a gpsd-style pipe on stdin.
type ReaderSource struct {
	r io.Reader
}

func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Watch(ctx context.Context) (<-chan Sample, error) {
	out := make(chan Sample)
	scanner := bufio.NewScanner(s.r)
	go func() {
		defer close(out)
		for scanner.Scan() {
			// Scan blocks on the underlying read, so cancellation takes
			// effect at the next line boundary
			if ctx.Err() != nil {
				return
			}
			var sample Sample
			if err := json.Unmarshal(scanner.Bytes(), &sample); err != nil {
				continue
			}
			select {
			case out <- sample:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			log.Printf("location: sample feed read error: %v", err)
		}
	}()
	return out, nil
}
