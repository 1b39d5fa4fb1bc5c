package pool

import (
	"bufio"
	"errors"
	"io"
	"os"
	"sync"
)

// Output aggregates worker streams into one writer, one whole line at a time
type Output struct {
	mux    sync.Mutex
	writer io.Writer
}

// Copy forwards r into the output until r is exhausted
func (o *Output) Copy(r io.Reader) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if wErr := o.write(line); wErr != nil {
				_, _ = io.Copy(io.Discard, reader)
				return wErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

func (o *Output) write(line []byte) error {
	o.mux.Lock()
	defer o.mux.Unlock()
	_, err := o.writer.Write(line)
	return err
}

// NewOutput creates an output writing to w
func NewOutput(w io.Writer) *Output {
	if w == nil {
		w = io.Discard
	}
	return &Output{writer: w}
}
