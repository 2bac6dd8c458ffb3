package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Strob0t/ValidationHub/internal/domain"
	"github.com/Strob0t/ValidationHub/internal/domain/validation"
)

func newTestRecord(actionID string) *validation.Record {
	return validation.NewRecord(validation.SubmitRequest{
		AgentID:    "agent-1",
		UserID:     "user-1",
		ActionID:   actionID,
		ActionType: "email_draft",
		Content:    "draft body",
	})
}

func TestStorePutGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	rec := newTestRecord("a1")
	if err := s.Put(ctx, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ValidationID != rec.ValidationID {
		t.Fatalf("expected validation_id %q, got %q", rec.ValidationID, got.ValidationID)
	}
	if got.Status != validation.StatusPending {
		t.Fatalf("expected pending, got %q", got.Status)
	}
}

func TestStoreGetNotFound(t *testing.T) {
	s := NewStore()

	_, err := s.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorePutOverwrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	first := newTestRecord("a1")
	second := newTestRecord("a1")

	if err := s.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, second); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ValidationID != second.ValidationID {
		t.Fatalf("expected overwrite with %q, got %q", second.ValidationID, got.ValidationID)
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 record after overwrite, got %d", len(all))
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Put(ctx, newTestRecord("a1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	updated, err := s.Update(ctx, "a1", func(r *validation.Record) error {
		r.Status = validation.StatusApproved
		r.Feedback = "looks good"
		return nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != validation.StatusApproved || updated.Feedback != "looks good" {
		t.Fatalf("unexpected record after update: %+v", updated)
	}

	got, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != validation.StatusApproved {
		t.Fatalf("update not persisted, status %q", got.Status)
	}
}

func TestStoreUpdateNotFound(t *testing.T) {
	s := NewStore()

	_, err := s.Update(context.Background(), "missing", func(*validation.Record) error { return nil })
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStoreUpdateFnErrorAborts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Put(ctx, newTestRecord("a1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	boom := errors.New("boom")
	_, err := s.Update(ctx, "a1", func(r *validation.Record) error {
		r.Status = validation.StatusRejected
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	got, _ := s.Get(ctx, "a1")
	if got.Status != validation.StatusPending {
		t.Fatalf("aborted update must not persist, got status %q", got.Status)
	}
}

func TestStoreListFilter(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := range 3 {
		if err := s.Put(ctx, newTestRecord(fmt.Sprintf("a%d", i))); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}
	if _, err := s.Update(ctx, "a1", func(r *validation.Record) error {
		r.Status = validation.StatusApproved
		return nil
	}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	pending, err := s.List(ctx, validation.StatusPending)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d", len(pending))
	}
	if _, ok := pending["a1"]; ok {
		t.Fatal("approved record leaked into pending filter")
	}

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
}

func TestStoreGetReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Put(ctx, newTestRecord("a1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _ := s.Get(ctx, "a1")
	got.Status = validation.StatusRejected

	again, _ := s.Get(ctx, "a1")
	if again.Status != validation.StatusPending {
		t.Fatal("mutating a returned record must not affect the store")
	}
}

func TestStoreConcurrentUpdates(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.Put(ctx, newTestRecord("a1")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	const writers = 50
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := range writers {
		go func() {
			defer wg.Done()
			_, _ = s.Update(ctx, "a1", func(r *validation.Record) error {
				r.Feedback = fmt.Sprintf("review %d", i)
				return nil
			})
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, "a1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Feedback == "" {
		t.Fatal("expected feedback from one of the concurrent updates")
	}
}

func TestStoreConcurrentDistinctKeys(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	wg.Add(n)
	for i := range n {
		go func() {
			defer wg.Done()
			_ = s.Put(ctx, newTestRecord(fmt.Sprintf("a%d", i)))
		}()
	}
	wg.Wait()

	all, err := s.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != n {
		t.Fatalf("expected %d independent records, got %d", n, len(all))
	}
}
