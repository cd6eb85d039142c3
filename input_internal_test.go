package wschat

import (
	"errors"
	"strings"
	"testing"
)

func TestReadLines(t *testing.T) {
	huge := strings.Repeat("x", maxPayloadSize+1)
	input := "a\r\n" + huge + "\nok\n" + strings.Repeat("y", 70000) + "\nlast"

	done := make(chan struct{})
	defer close(done)
	var lines []line
	for l := range readLines(strings.NewReader(input), done) {
		lines = append(lines, l)
	}

	if want, got := 5, len(lines); want != got {
		t.Fatalf("want %d lines, got %d", want, got)
	}
	for i, want := range []string{"a", "", "ok", strings.Repeat("y", 70000), "last"} {
		if want != lines[i].text {
			t.Errorf("line %d: want %d bytes, got %d bytes", i, len(want), len(lines[i].text))
		}
		if lines[i].err != nil {
			t.Errorf("line %d: want no error, got %v", i, lines[i].err)
		}
	}
	if want, got := true, errors.Is(lines[1].bad, ErrLineTooLong); want != got {
		t.Errorf("want %v, got %v", ErrLineTooLong, lines[1].bad)
	}
}

func TestReadLinesEmpty(t *testing.T) {
	done := make(chan struct{})
	defer close(done)
	n := 0
	for range readLines(strings.NewReader(""), done) {
		n++
	}
	if want, got := 0, n; want != got {
		t.Errorf("want %d, got %d", want, got)
	}
}
