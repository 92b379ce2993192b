package kv

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if _, ok, _ := s.Get(ctx, "pgnForQuiz"); ok {
		t.Fatalf("expected empty store")
	}
	if err := s.Set(ctx, "pgnForQuiz", `{"game_id":5}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := s.Get(ctx, "pgnForQuiz")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if val != `{"game_id":5}` {
		t.Fatalf("unexpected value: %q", val)
	}
	if err := s.Delete(ctx, "pgnForQuiz"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "pgnForQuiz"); ok {
		t.Fatalf("expected key gone after delete")
	}
}

func TestMemoryStoreSetReplaces(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Set(ctx, "batchQuizTitle", "old"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(ctx, "batchQuizTitle", "new"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, _, _ := s.Get(ctx, "batchQuizTitle")
	if val != "new" {
		t.Fatalf("expected replacement, got %q", val)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	srv := miniredis.RunT(t)
	s := NewRedisStore(srv.Addr(), "", time.Minute)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "pgnBatchForQuiz"); ok || err != nil {
		t.Fatalf("expected absent key: ok=%v err=%v", ok, err)
	}
	if err := s.Set(ctx, "pgnBatchForQuiz", `{"questions":[]}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := s.Get(ctx, "pgnBatchForQuiz")
	if err != nil || !ok || val != `{"questions":[]}` {
		t.Fatalf("get: val=%q ok=%v err=%v", val, ok, err)
	}
	if err := s.Delete(ctx, "pgnBatchForQuiz"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "pgnBatchForQuiz"); err != nil {
		t.Fatalf("delete absent key: %v", err)
	}
}

func TestRedisStoreExpiresWithTTL(t *testing.T) {
	srv := miniredis.RunT(t)
	s := NewRedisStore(srv.Addr(), "", time.Minute)
	ctx := context.Background()

	if err := s.Set(ctx, "pgnForQuiz", "x"); err != nil {
		t.Fatalf("set: %v", err)
	}
	srv.FastForward(2 * time.Minute)
	if _, ok, _ := s.Get(ctx, "pgnForQuiz"); ok {
		t.Fatalf("expected key expired after TTL")
	}
}

func TestPrefixedScopesKeys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	a := Prefixed(s, "sess:a:")
	b := Prefixed(s, "sess:b:")

	if err := a.Set(ctx, "pgnForQuiz", "for-a"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, ok, _ := b.Get(ctx, "pgnForQuiz"); ok {
		t.Fatalf("prefixes must not collide")
	}
	val, ok, _ := a.Get(ctx, "pgnForQuiz")
	if !ok || val != "for-a" {
		t.Fatalf("get via prefix: val=%q ok=%v", val, ok)
	}
	raw, ok, _ := s.Get(ctx, "sess:a:pgnForQuiz")
	if !ok || raw != "for-a" {
		t.Fatalf("expected raw key to carry prefix, got %q ok=%v", raw, ok)
	}
}
