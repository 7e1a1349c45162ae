package console

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteString(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	c.WriteString("hello")
	c.WriteString(" world")
	if buf.String() != "hello world" {
		t.Fatalf("unexpected console output: %q", buf.String())
	}
}

func TestPanicWritesThenPanics(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)
	defer func() {
		r := recover()
		if r != "out of memory" {
			t.Fatalf("expected panic value %q, got %v", "out of memory", r)
		}
		if !strings.Contains(buf.String(), "PANIC: out of memory") {
			t.Fatalf("expected panic message on console, got %q", buf.String())
		}
	}()
	c.Panic("out of memory")
}
