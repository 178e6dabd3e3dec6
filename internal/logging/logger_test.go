package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerFiltersBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Warn)

	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("first warning")
	l.Error("an error")

	out := buf.String()
	if strings.Contains(out, "should not appear") {
		t.Errorf("output contains filtered lines: %q", out)
	}
	if !strings.Contains(out, "first warning") || !strings.Contains(out, "an error") {
		t.Errorf("output missing expected lines: %q", out)
	}
}

func TestLoggerSetLevelIsLive(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Error)

	l.Info("still filtered")
	l.SetLevel(Debug)
	l.Info("now visible")

	out := buf.String()
	if strings.Contains(out, "still filtered") {
		t.Errorf("output contains line logged before SetLevel: %q", out)
	}
	if !strings.Contains(out, "now visible") {
		t.Errorf("output missing line logged after SetLevel: %q", out)
	}
}

func TestTwoInstancesHaveIndependentLevels(t *testing.T) {
	var bufA, bufB bytes.Buffer
	a := New(&bufA, Debug)
	b := New(&bufB, Error)

	a.Debug("a sees debug")
	b.Debug("b should not see debug")

	if !strings.Contains(bufA.String(), "a sees debug") {
		t.Error("logger a did not log at its own configured level")
	}
	if strings.Contains(bufB.String(), "b should not see debug") {
		t.Error("logger b logged below its configured level")
	}
}
