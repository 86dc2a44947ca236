package store

import (
	"sync"
	"testing"

	"storythingy/storyboard-api/models"
)

func publishN(n int) *Store {
	scenes := make([]models.Scene, n)
	for i := range scenes {
		scenes[i] = models.Scene{ID: i, Text: "text", ImageStatus: models.ImagePending}
	}
	s := New()
	s.Publish(scenes)
	return s
}

func TestPublishAndGet(t *testing.T) {
	s := publishN(3)
	if s.Len() != 3 {
		t.Fatalf("Len = %d, want 3", s.Len())
	}
	sc, ok := s.Get(1)
	if !ok || sc.ID != 1 {
		t.Fatalf("Get(1) = %+v, %v", sc, ok)
	}
	if _, ok := s.Get(99); ok {
		t.Error("Get(99) found a scene that was never published")
	}
}

func TestUpdateMutatesRecord(t *testing.T) {
	s := publishN(2)
	if !s.Update(0, func(sc *models.Scene) { sc.ImageStatus = models.ImageCompleted }) {
		t.Fatal("Update(0) = false")
	}
	sc, _ := s.Get(0)
	if sc.ImageStatus != models.ImageCompleted {
		t.Errorf("ImageStatus = %v after update", sc.ImageStatus)
	}
	if s.Update(99, func(*models.Scene) {}) {
		t.Error("Update(99) = true for missing scene")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := publishN(1)
	sc, _ := s.Get(0)
	sc.ImageStatus = models.ImageError

	fresh, _ := s.Get(0)
	if fresh.ImageStatus != models.ImagePending {
		t.Error("mutating a Get result leaked into the store")
	}
}

func TestSnapshotOrder(t *testing.T) {
	// Publish out of order; Snapshot must return id order.
	s := New()
	s.Publish([]models.Scene{{ID: 2}, {ID: 0}, {ID: 1}})

	snap := s.Snapshot()
	for i, sc := range snap {
		if sc.ID != i {
			t.Errorf("snapshot[%d].ID = %d", i, sc.ID)
		}
	}
}

func TestConcurrentUpdates(t *testing.T) {
	s := publishN(4)
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		for j := 0; j < 50; j++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				s.Update(id, func(sc *models.Scene) { sc.ImageRetries++ })
			}(i)
		}
	}
	wg.Wait()
	for i := 0; i < 4; i++ {
		sc, _ := s.Get(i)
		if sc.ImageRetries != 50 {
			t.Errorf("scene %d retries = %d, want 50", i, sc.ImageRetries)
		}
	}
}
