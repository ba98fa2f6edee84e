// Package cache keeps search results, package to bucket mappings and the set
// of registered buckets on disk between runs.
//
// Persistence is best-effort: a record that cannot be read starts empty and a
// record that cannot be written is only logged. Every mutation is flushed
// straight away while the record's lock is held, so the last successful
// write wins.
package cache

import (
	"encoding/json"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	SearchFile     = "search_cache.json"
	BucketFile     = "bucket_cache.json"
	BucketListFile = "bucket_list_cache.json"
)

// Manager owns the three cache records. It is safe for concurrent use.
type Manager struct {
	fs     afero.Fs
	dir    string
	logger *zap.Logger

	searchMu sync.RWMutex
	search   map[string][]string

	bucketMu sync.RWMutex
	buckets  map[string]string

	listMu sync.RWMutex
	list   map[string]struct{} // nil until loaded
}

// Open loads every record from dir on fs. It never fails; unreadable
// records start empty.
func Open(fs afero.Fs, dir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		fs:      fs,
		dir:     dir,
		logger:  logger.Named("cache"),
		search:  make(map[string][]string),
		buckets: make(map[string]string),
	}
	m.load()
	return m
}

// Dir returns the directory the records live in.
func (m *Manager) Dir() string {
	return m.dir
}

func (m *Manager) ensureDir() error {
	return m.fs.MkdirAll(m.dir, 0755)
}

func (m *Manager) load() {
	if err := m.ensureDir(); err != nil {
		m.logger.Warn("cannot create cache directory", zap.String("dir", m.dir), zap.Error(err))
	}

	var search map[string][]string
	if m.readJSON(SearchFile, &search) && search != nil {
		m.search = search
	}

	var buckets map[string]string
	if m.readJSON(BucketFile, &buckets) && buckets != nil {
		m.buckets = buckets
	}

	var list []string
	if m.readJSON(BucketListFile, &list) && list != nil {
		m.list = toSet(list)
	}

	m.logger.Debug("cache loaded",
		zap.Int("searches", len(m.search)),
		zap.Int("buckets", len(m.buckets)),
		zap.Bool("bucket_list_loaded", m.list != nil),
	)
}

// readJSON reports whether name existed and decoded into v.
func (m *Manager) readJSON(name string, v any) bool {
	path := filepath.Join(m.dir, name)
	data, err := afero.ReadFile(m.fs, path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		m.logger.Warn("ignoring malformed cache record", zap.String("path", path), zap.Error(err))
		return false
	}
	return true
}

func (m *Manager) writeJSON(name string, v any) {
	path := filepath.Join(m.dir, name)
	if err := m.ensureDir(); err != nil {
		m.logger.Warn("cannot create cache directory", zap.String("dir", m.dir), zap.Error(err))
		return
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		m.logger.Warn("cannot encode cache record", zap.String("path", path), zap.Error(err))
		return
	}
	if err := afero.WriteFile(m.fs, path, data, 0644); err != nil {
		m.logger.Warn("cannot write cache record", zap.String("path", path), zap.Error(err))
	}
}

// Search returns a copy of the cached results for term.
func (m *Manager) Search(term string) ([]string, bool) {
	m.searchMu.RLock()
	defer m.searchMu.RUnlock()
	names, ok := m.search[term]
	if !ok {
		return nil, false
	}
	return append([]string(nil), names...), true
}

func (m *Manager) HasSearch(term string) bool {
	m.searchMu.RLock()
	defer m.searchMu.RUnlock()
	_, ok := m.search[term]
	return ok
}

// PutSearch stores names for term and persists the search record.
func (m *Manager) PutSearch(term string, names []string) {
	m.searchMu.Lock()
	defer m.searchMu.Unlock()
	m.search[term] = append([]string(nil), names...)
	m.writeJSON(SearchFile, m.search)
}

// Bucket looks up the bucket for pkg, ignoring case.
func (m *Manager) Bucket(pkg string) (string, bool) {
	m.bucketMu.RLock()
	defer m.bucketMu.RUnlock()
	b, ok := m.buckets[strings.ToLower(pkg)]
	return b, ok
}

// PutBucket records pkg as living in bucket and persists the bucket record.
func (m *Manager) PutBucket(pkg, bucket string) {
	m.bucketMu.Lock()
	defer m.bucketMu.Unlock()
	m.buckets[strings.ToLower(pkg)] = strings.ToLower(bucket)
	m.writeJSON(BucketFile, m.buckets)
}

// MergeBuckets adds every mapping whose package is not cached yet. Existing
// entries stay authoritative. The record is persisted once.
func (m *Manager) MergeBuckets(mappings map[string]string) {
	m.bucketMu.Lock()
	defer m.bucketMu.Unlock()
	for pkg, bucket := range mappings {
		pkg = strings.ToLower(pkg)
		if _, ok := m.buckets[pkg]; ok {
			continue
		}
		m.buckets[pkg] = strings.ToLower(bucket)
	}
	m.writeJSON(BucketFile, m.buckets)
}

// BucketListLoaded reports whether the registered bucket set is known.
func (m *Manager) BucketListLoaded() bool {
	m.listMu.RLock()
	defer m.listMu.RUnlock()
	return m.list != nil
}

// HasBucket reports whether bucket is in the registered set. It is false
// while the set is not loaded.
func (m *Manager) HasBucket(bucket string) bool {
	m.listMu.RLock()
	defer m.listMu.RUnlock()
	_, ok := m.list[strings.ToLower(bucket)]
	return ok
}

// BucketList returns the registered buckets sorted, and whether the set has
// been loaded at all.
func (m *Manager) BucketList() ([]string, bool) {
	m.listMu.RLock()
	defer m.listMu.RUnlock()
	if m.list == nil {
		return nil, false
	}
	return sortedKeys(m.list), true
}

// SetBucketList replaces the registered set and persists it.
func (m *Manager) SetBucketList(buckets []string) {
	m.listMu.Lock()
	defer m.listMu.Unlock()
	m.list = toSet(buckets)
	m.writeJSON(BucketListFile, sortedKeys(m.list))
}

// AddBucket marks bucket as registered and persists the set. It does
// nothing while the set is not loaded: a set holding only bucket would read
// as complete and stop the next full listing.
func (m *Manager) AddBucket(bucket string) {
	m.listMu.Lock()
	defer m.listMu.Unlock()
	if m.list == nil {
		return
	}
	m.list[strings.ToLower(bucket)] = struct{}{}
	m.writeJSON(BucketListFile, sortedKeys(m.list))
}

// Stats summarises the cache contents.
type Stats struct {
	Searches         int
	Packages         int
	Buckets          int
	BucketListLoaded bool
}

func (m *Manager) Stats() Stats {
	m.searchMu.RLock()
	s := Stats{Searches: len(m.search)}
	m.searchMu.RUnlock()

	m.bucketMu.RLock()
	s.Packages = len(m.buckets)
	m.bucketMu.RUnlock()

	m.listMu.RLock()
	s.Buckets = len(m.list)
	s.BucketListLoaded = m.list != nil
	m.listMu.RUnlock()
	return s
}

// Clear empties every record and persists the empty state. The bucket set
// returns to "not loaded" so the next bucket check asks the tool again.
func (m *Manager) Clear() {
	m.searchMu.Lock()
	m.search = make(map[string][]string)
	m.writeJSON(SearchFile, m.search)
	m.searchMu.Unlock()

	m.bucketMu.Lock()
	m.buckets = make(map[string]string)
	m.writeJSON(BucketFile, m.buckets)
	m.bucketMu.Unlock()

	m.listMu.Lock()
	m.list = nil
	if err := m.fs.Remove(filepath.Join(m.dir, BucketListFile)); err != nil {
		m.logger.Debug("bucket list record not removed", zap.Error(err))
	}
	m.listMu.Unlock()
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
