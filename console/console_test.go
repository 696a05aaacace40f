package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestSimple_WriteConsole(t *testing.T) {
	tests := []struct {
		msg   string
		want  string
		lines int
	}{
		{"", "", 0},
		{"one", "one\n", 1},
		{"one\ntwo\n", "one\ntwo\n", 2},
		{"\n\nthree\n\n", "three\n", 1},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		c := NewSimple(&buf)
		if err := c.WriteConsole(tt.msg); err != nil {
			t.Fatal(err)
		}
		if buf.String() != tt.want {
			t.Errorf("WriteConsole(%q) wrote %q, expected %q", tt.msg, buf.String(), tt.want)
		}
		if c.Lines() != tt.lines {
			t.Errorf("WriteConsole(%q): %d lines, expected %d", tt.msg, c.Lines(), tt.lines)
		}
	}
}

func TestDiscard(t *testing.T) {
	var c Console = Discard{}
	if err := c.WriteConsole("anything"); err != nil {
		t.Error(err)
	}
}

func TestHistory(t *testing.T) {
	h := NewHistory(3)
	if !h.IsEmpty() {
		t.Error("new history not empty")
	}
	for _, l := range []string{"a", "b", "c", "d", "e"} {
		h.Add(l)
	}
	got := strings.Join(h.Lines(), ",")
	if got != "c,d,e" {
		t.Errorf("Lines() = %q, want c,d,e", got)
	}

	h = NewHistory(0)
	h.Add("a")
	if !h.IsEmpty() {
		t.Error("zero sized history kept a line")
	}
}
