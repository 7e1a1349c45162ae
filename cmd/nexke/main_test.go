package main

import (
	"bytes"
	"strings"
	"testing"

	"nexke/internal/console"
	"nexke/internal/klog"
)

func TestBootCompletesAllStages(t *testing.T) {
	var buf bytes.Buffer
	logger := klog.New(klog.NewConsoleSink(console.New(&buf)), klog.Debug)

	if err := boot(logger); err != nil {
		t.Fatalf("boot returned an error: %v", err)
	}

	out := buf.String()
	for _, want := range []string{
		"stage 0", "stage 1", "stage 2", "stage 3", "stage 4",
		"stage 5", "stage 6", "stage 7", "stage 8", "stage 9", "stage 10",
		"boot complete",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected boot log to mention %q, got:\n%s", want, out)
		}
	}
	if !strings.Contains(out, "counter=200 (want 200)") {
		t.Fatalf("expected demo threads to finish with counter=200, got:\n%s", out)
	}
}

func TestDemoHandoffValidates(t *testing.T) {
	ho := demoHandoff()
	if err := ho.Validate(); err != nil {
		t.Fatalf("demoHandoff() produced an invalid record: %v", err)
	}
}
