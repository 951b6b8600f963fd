package provider

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalProvider_Stat(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.root")
	if err := os.WriteFile(file, []byte("12345"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	p := NewLocalProvider()

	info, err := p.Stat(context.Background(), file)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Name() != "file.root" {
		t.Errorf("Expected name file.root, got %s", info.Name())
	}
	if info.Size() != 5 {
		t.Errorf("Expected size 5, got %d", info.Size())
	}
	if info.IsDir() {
		t.Error("Expected a regular file")
	}

	info, err = p.Stat(context.Background(), dir)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !info.IsDir() {
		t.Error("Expected a directory")
	}
}

func TestLocalProvider_ReadWrite(t *testing.T) {
	dir := t.TempDir()
	p := NewLocalProvider()
	ctx := context.Background()

	// OpenWrite creates missing parents.
	target := filepath.Join(dir, "a", "b", "file.root")
	w, err := p.OpenWrite(ctx, target)
	if err != nil {
		t.Fatalf("OpenWrite failed: %v", err)
	}
	if _, err := w.Write([]byte("hello")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := p.OpenRead(ctx, target)
	if err != nil {
		t.Fatalf("OpenRead failed: %v", err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("Expected %q, got %q", "hello", data)
	}
}

func TestLocalProvider_CancelledContext(t *testing.T) {
	p := NewLocalProvider()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Stat(ctx, "/tmp"); err == nil {
		t.Error("Expected error from cancelled context")
	}
	if _, err := p.OpenRead(ctx, "/tmp"); err == nil {
		t.Error("Expected error from cancelled context")
	}
}
