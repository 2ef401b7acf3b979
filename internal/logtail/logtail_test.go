package logtail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeLines(t *testing.T, path string, from, to int) []string {
	t.Helper()
	var content strings.Builder
	var lines []string
	for i := from; i <= to; i++ {
		line := fmt.Sprintf("Line %d", i)
		content.WriteString(line + "\n")
		lines = append(lines, line)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(content.String()); err != nil {
		t.Fatalf("write: %v", err)
	}
	return lines
}

func TestRead(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	expectedAll := writeLines(t, logPath, 1, 10)

	tests := []struct {
		name     string
		maxLines int
		expected []string
	}{
		{"read all (0)", 0, expectedAll},
		{"read all (negative)", -1, expectedAll},
		{"read partial (5)", 5, expectedAll[5:]},
		{"read exactly all (10)", 10, expectedAll},
		{"read more than exists (20)", 20, expectedAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Read(logPath, tt.maxLines)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("Read() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRead_MissingFile(t *testing.T) {
	got, err := Read(filepath.Join(t.TempDir(), "missing.log"), 10)
	if err != nil || got != nil {
		t.Fatalf("Read() = %v, %v; want nil, nil", got, err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Entry
	}{
		{
			name: "slog text line",
			line: `time=2024-05-01T10:00:00.000+02:00 level=INFO msg="page applied" component=paging kind=initial count=20`,
			want: Entry{
				Time:      "2024-05-01T10:00:00.000+02:00",
				Level:     "INFO",
				Message:   "page applied",
				Component: "paging",
				Attrs:     []Attr{{"kind", "initial"}, {"count", "20"}},
			},
		},
		{
			name: "escaped quotes",
			line: `level=warn msg="filter reload failed" error="fetch \"initial\" flights: 502"`,
			want: Entry{
				Level:   "WARN",
				Message: "filter reload failed",
				Attrs:   []Attr{{"error", `fetch "initial" flights: 502`}},
			},
		},
		{
			name: "free text",
			line: "panic: something broke",
			want: Entry{Message: "panic: something broke"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want.Raw = tt.line
			got := Parse(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEntry_ShortTime(t *testing.T) {
	e := Entry{Time: "2024-05-01T10:11:12.345+02:00"}
	if got := e.ShortTime(); got != "10:11:12" {
		t.Fatalf("ShortTime() = %q", got)
	}
}

func TestFollower_ReportsAppendedLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	writeLines(t, logPath, 1, 3)

	f := NewFollower(logPath)
	if got, err := f.Poll(); err != nil || got != nil {
		t.Fatalf("Poll() = %v, %v; want nothing new", got, err)
	}

	want := writeLines(t, logPath, 4, 5)
	got, err := f.Poll()
	if err != nil {
		t.Fatalf("Poll() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Poll() = %v, want %v", got, want)
	}
}

func TestFollower_HoldsPartialLine(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	f := NewFollower(logPath)

	if err := os.WriteFile(logPath, []byte("first\nsec"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := f.Poll()
	if err != nil || !reflect.DeepEqual(got, []string{"first"}) {
		t.Fatalf("Poll() = %v, %v", got, err)
	}

	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = file.WriteString("ond\n")
	file.Close()

	got, err = f.Poll()
	if err != nil || !reflect.DeepEqual(got, []string{"second"}) {
		t.Fatalf("Poll() = %v, %v", got, err)
	}
}

func TestFollower_RestartsAfterTruncate(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	writeLines(t, logPath, 1, 5)
	f := NewFollower(logPath)

	if err := os.WriteFile(logPath, []byte("fresh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := f.Poll()
	if err != nil || !reflect.DeepEqual(got, []string{"fresh"}) {
		t.Fatalf("Poll() = %v, %v", got, err)
	}
}

func TestWatch_DeliversBatches(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "app.log")
	f := NewFollower(logPath)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := make(chan []string, 4)
	Watch(ctx, f, 10*time.Millisecond, func(lines []string, err error) {
		if err == nil {
			batches <- lines
		}
	})
	want := writeLines(t, logPath, 1, 2)

	select {
	case got := <-batches:
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("batch = %v, want %v", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no batch delivered")
	}
}
