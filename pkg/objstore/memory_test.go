package objstore

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryPutGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "data/train.jsonl", []byte("a\nb\n"), false); err != nil {
		t.Fatalf("put: %v", err)
	}
	ok, err := s.Exists(ctx, "data/train.jsonl")
	if err != nil || !ok {
		t.Fatalf("exists = %v, %v", ok, err)
	}
	got, err := s.Get(ctx, "data/train.jsonl")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != "a\nb\n" {
		t.Fatalf("unexpected body %q", got)
	}
}

func TestMemoryConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "p", []byte("one"), false); err != nil {
		t.Fatalf("put: %v", err)
	}
	err := s.Put(ctx, "p", []byte("two"), false)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := s.Put(ctx, "p", []byte("two"), true); err != nil {
		t.Fatalf("overwrite put: %v", err)
	}
	got, _ := s.Get(ctx, "p")
	if string(got) != "two" {
		t.Fatalf("overwrite did not take: %q", got)
	}
}

func TestMemoryGetLine(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Put(ctx, "p", []byte("first\nsecond\n"), false); err != nil {
		t.Fatalf("put: %v", err)
	}
	line, err := s.GetLine(ctx, "p")
	if err != nil {
		t.Fatalf("getline: %v", err)
	}
	if string(line) != "first" {
		t.Fatalf("unexpected line %q", line)
	}
	if _, err := s.GetLine(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
