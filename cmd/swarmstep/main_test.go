package main

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")
	err := writeFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "run_id,step\n")
		return err
	})
	if err != nil {
		t.Fatalf("writeFile: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "run_id,step\n" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteFile_Errors(t *testing.T) {
	boom := errors.New("boom")
	path := filepath.Join(t.TempDir(), "out.csv")
	if err := writeFile(path, func(io.Writer) error { return boom }); !errors.Is(err, boom) {
		t.Errorf("writeFile() = %v; want the write error", err)
	}

	missing := filepath.Join(t.TempDir(), "no", "such", "dir", "out.csv")
	if err := writeFile(missing, func(io.Writer) error { return nil }); err == nil {
		t.Error("expected an error for a missing directory")
	}
}

func TestParseLevel(t *testing.T) {
	if parseLevel("debug") == parseLevel("error") {
		t.Error("debug and error map to the same level")
	}
	if parseLevel("nonsense") != parseLevel("info") {
		t.Error("unknown level should default to info")
	}
}
