package exercise

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fcetrainer/internal/models"
)

// ErrDataUnavailable means a part's data source is missing, unreadable or has no valid rows
var ErrDataUnavailable = errors.New("exercise data unavailable")

// Store loads and caches the record pool of each part.
// A pool is reloaded whenever its source file changes on disk.
type Store struct {
	sources map[models.Part]string

	// Debug logs every cache hit and reload
	Debug bool

	mu    sync.RWMutex
	pools map[models.Part]*pool

	// loads coalesces concurrent reloads of the same part
	loads singleflight.Group
}

type pool struct {
	modTime time.Time
	size    int64
	stats   LoadStats
	cloze   []models.ClozeExercise
	items   []models.WordFormationItem
}

// NewStore creates a store reading each part from its source path
func NewStore(sources map[models.Part]string) *Store {
	return &Store{
		sources: sources,
		pools:   make(map[models.Part]*pool),
	}
}

// Source returns the configured data source path of a part
func (s *Store) Source(part models.Part) string {
	return s.sources[part]
}

// ClozePool returns the Part 1 or Part 2 exercises. The slice is shared; do not modify it.
func (s *Store) ClozePool(part models.Part) ([]models.ClozeExercise, error) {
	if !part.IsCloze() {
		return nil, fmt.Errorf("part %s is not a cloze part", part)
	}
	p, err := s.load(part)
	if err != nil {
		return nil, err
	}
	if len(p.cloze) == 0 {
		return nil, fmt.Errorf("%s: %w", part.Title(), ErrDataUnavailable)
	}
	return p.cloze, nil
}

// WordFormationPool returns the Part 3 items. The slice is shared; do not modify it.
func (s *Store) WordFormationPool() ([]models.WordFormationItem, error) {
	p, err := s.load(models.PartWordFormation)
	if err != nil {
		return nil, err
	}
	if len(p.items) == 0 {
		return nil, fmt.Errorf("%s: %w", models.PartWordFormation.Title(), ErrDataUnavailable)
	}
	return p.items, nil
}

// Stats reports the outcome of the most recent load of a part
func (s *Store) Stats(part models.Part) LoadStats {
	p, err := s.load(part)
	if err != nil {
		return LoadStats{Path: s.sources[part]}
	}
	return p.stats
}

func (s *Store) load(part models.Part) (*pool, error) {
	path, ok := s.sources[part]
	if !ok || path == "" {
		return nil, fmt.Errorf("%s: no data source configured: %w", part.Title(), ErrDataUnavailable)
	}

	var modTime time.Time
	var size int64
	if info, err := os.Stat(path); err == nil {
		modTime = info.ModTime()
		size = info.Size()
	}

	s.mu.RLock()
	cached, ok := s.pools[part]
	s.mu.RUnlock()
	if ok && cached.modTime.Equal(modTime) && cached.size == size {
		if s.Debug {
			log.Printf("[DEBUG] Exercise store: %s unchanged, using cached pool", path)
		}
		return cached, nil
	}
	if ok && s.Debug {
		log.Printf("[DEBUG] Exercise store: %s changed on disk, reloading", path)
	}

	v, err, _ := s.loads.Do(string(part), func() (interface{}, error) {
		return s.read(part, path, modTime, size)
	})
	if err != nil {
		return nil, err
	}
	return v.(*pool), nil
}

// Reload drops the cached pool of a part and reads its source again
func (s *Store) Reload(part models.Part) (LoadStats, error) {
	s.mu.Lock()
	delete(s.pools, part)
	s.mu.Unlock()

	p, err := s.load(part)
	if err != nil {
		return LoadStats{Path: s.sources[part]}, err
	}
	return p.stats, nil
}

// read parses the source file and caches the result
func (s *Store) read(part models.Part, path string, modTime time.Time, size int64) (*pool, error) {
	rows, stats, err := LoadRows(path, part.RequiredFields())
	if err != nil {
		log.Printf("Exercise store: %v", err)
		return nil, fmt.Errorf("%s: %w", part.Title(), ErrDataUnavailable)
	}

	fresh := &pool{modTime: modTime, size: size, stats: stats}
	for _, row := range rows {
		if part.IsCloze() {
			exercise, err := ParseCloze(part, row)
			if err != nil {
				continue
			}
			fresh.cloze = append(fresh.cloze, exercise)
		} else {
			item, err := ParseWordFormation(row)
			if err != nil {
				continue
			}
			fresh.items = append(fresh.items, item)
		}
	}

	if stats.Found {
		log.Printf("Exercise store: %s loaded %d rows (%d valid, %d skipped)", path, stats.Loaded, stats.Valid, stats.Skipped)
	} else {
		log.Printf("Exercise store: data source %s not found", path)
	}

	s.mu.Lock()
	s.pools[part] = fresh
	s.mu.Unlock()

	return fresh, nil
}
