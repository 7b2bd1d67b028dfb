package utils

import (
	"strings"
	"testing"
)

func TestFileWithLineNum(t *testing.T) {
	got := FileWithLineNum()
	if got == "" {
		t.Fatal("expected a caller")
	}
	t.Log("file line with num: ", got)
}

func TestCallerFrame(t *testing.T) {
	frame := CallerFrame()
	if frame.File == "" {
		t.Fatal("expected a caller frame")
	}
}

func TestInternalFile(t *testing.T) {
	if !internalFile(sourceRoot + "session.go") {
		t.Fatal("module file should be internal")
	}
	if internalFile(sourceRoot + "session_test.go") {
		t.Fatal("test files are reported as callers")
	}
	if !strings.HasSuffix(sourceRoot, "/") {
		t.Fatalf("source root %q should end with a slash", sourceRoot)
	}
}
