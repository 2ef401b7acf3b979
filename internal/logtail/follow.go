package logtail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

const defaultPollInterval = time.Second

// Follower reads lines appended to a file since the previous poll.
type Follower struct {
	path    string
	offset  int64
	partial []byte
}

// NewFollower starts following path at its current end, so only lines
// written afterwards are reported.
func NewFollower(path string) *Follower {
	f := &Follower{path: path}
	if info, err := os.Stat(path); err == nil {
		f.offset = info.Size()
	}
	return f
}

// Poll returns the complete lines written since the last call. A truncated
// or replaced file is read again from the start.
func (f *Follower) Poll() ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < f.offset {
		f.offset = 0
		f.partial = nil
	}
	if info.Size() == f.offset {
		return nil, nil
	}
	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	f.offset += int64(len(data))

	data = append(f.partial, data...)
	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		f.partial = data
		return nil, nil
	}
	f.partial = append([]byte(nil), data[last+1:]...)

	var lines []string
	for _, line := range bytes.Split(data[:last], []byte{'\n'}) {
		lines = append(lines, string(bytes.TrimRight(line, "\r")))
	}
	return lines, nil
}

// Watch polls f every interval until ctx is done and hands each non-empty
// batch, or error, to fn. It returns immediately.
func Watch(ctx context.Context, f *Follower, interval time.Duration, fn func([]string, error)) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			lines, err := f.Poll()
			if err != nil || len(lines) > 0 {
				fn(lines, err)
			}
		}
	}()
}
