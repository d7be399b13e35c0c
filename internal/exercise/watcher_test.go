package exercise

import (
	"context"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/goleak"

	"fcetrainer/internal/models"
)

func cachedItems(s *Store, part models.Part) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[part]
	if !ok {
		return -1
	}
	return len(p.items) + len(p.cloze)
}

func TestWatcherReloadsEditedSource(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := writeCSV(t, dir, "part3.csv", "Root,Sentence,Answer\nHAPPY,He was ______.,happiness\n")
	store := NewStore(map[models.Part]string{models.PartWordFormation: path})
	if _, err := store.WordFormationPool(); err != nil {
		t.Fatalf("initial load: %v", err)
	}

	w, err := NewWatcher(store)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.debounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	writeCSV(t, dir, "part3.csv", "Root,Sentence,Answer\nHAPPY,He was ______.,happiness\nCARE,Be ______.,careful\nKIND,Such ______.,kindness\n")

	deadline := time.Now().Add(5 * time.Second)
	for cachedItems(store, models.PartWordFormation) != 3 {
		if time.Now().After(deadline) {
			cancel()
			<-done
			t.Fatalf("pool was not reloaded, cached items = %d", cachedItems(store, models.PartWordFormation))
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	<-done
}

func TestWatcherMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeCSV(t, dir, "part1.csv", "Title,Text,Answers,Options\n")
	store := NewStore(map[models.Part]string{models.PartMultipleChoice: path})

	w, err := NewWatcher(store)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	defer w.watcher.Close()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"write to source", fsnotify.Event{Name: path, Op: fsnotify.Write}, true},
		{"source renamed away", fsnotify.Event{Name: path, Op: fsnotify.Rename}, true},
		{"chmod only", fsnotify.Event{Name: path, Op: fsnotify.Chmod}, false},
		{"other file", fsnotify.Event{Name: path + ".swp", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, ok := w.match(tt.event)
			if ok != tt.want {
				t.Fatalf("match() = %v, want %v", ok, tt.want)
			}
			if ok && part != models.PartMultipleChoice {
				t.Errorf("match() part = %s, want %s", part, models.PartMultipleChoice)
			}
		})
	}
}

func TestNewWatcherMissingDirectory(t *testing.T) {
	store := NewStore(map[models.Part]string{
		models.PartOpenCloze: "/nonexistent/fce/part2.csv",
	})
	if _, err := NewWatcher(store); err == nil {
		t.Error("expected an error watching a missing directory")
	}
}
