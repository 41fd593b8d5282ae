package artifact

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"authorship/internal/logging"
)

// staleTempAge is how old an orphaned temp file must be before Prune removes it.
const staleTempAge = time.Hour

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Entry summarizes one stored artifact without its payload.
type Entry struct {
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	Kind        Kind      `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
	SizeBytes   int64     `json:"size_bytes"`
	Path        string    `json:"path"`
}

// Stats describes current store usage.
type Stats struct {
	Entries      int            `json:"entries"`
	Names        int            `json:"names"`
	TotalBytes   int64          `json:"total_bytes"`
	FreeBytes    uint64         `json:"free_bytes"`
	TotalFSBytes uint64         `json:"total_fs_bytes"`
	FreeRatio    float64        `json:"free_ratio"`
	ByKind       map[Kind]int64 `json:"by_kind"`
}

// PruneResult reports what Prune removed.
type PruneResult struct {
	Removed    []Entry `json:"removed"`
	FreedBytes int64   `json:"freed_bytes"`
	TempFiles  int     `json:"temp_files"`
}

// List returns every stored artifact ordered by name, then newest first.
func (s *Store) List() ([]Entry, error) {
	entries, _, err := s.scan()
	return entries, err
}

// Stats returns current store usage and filesystem free space.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	entries, _, err := s.scan()
	if err != nil {
		return Stats{}, err
	}
	totalFS, freeFS, err := s.statfs(s.root)
	if err != nil {
		return Stats{}, fmt.Errorf("artifact: statfs: %w", err)
	}
	stats := Stats{
		Entries:      len(entries),
		FreeBytes:    freeFS,
		TotalFSBytes: totalFS,
		FreeRatio:    1,
		ByKind:       make(map[Kind]int64),
	}
	if totalFS > 0 {
		stats.FreeRatio = float64(freeFS) / float64(totalFS)
	}
	names := make(map[string]struct{})
	for _, e := range entries {
		stats.TotalBytes += e.SizeBytes
		stats.ByKind[e.Kind] += e.SizeBytes
		names[e.Name] = struct{}{}
	}
	stats.Names = len(names)
	if len(entries) == 0 {
		s.logger.InfoContext(ctx, "artifact store empty", logging.String("root", s.root))
	}
	return stats, nil
}

// Prune keeps the keepLatest newest fingerprints of every artifact name and
// removes the rest, along with temp files abandoned by interrupted saves.
// Entries listed in protect (as name/fingerprint pairs) are always kept.
func (s *Store) Prune(ctx context.Context, keepLatest int, protect map[string]string) (PruneResult, error) {
	if keepLatest < 1 {
		return PruneResult{}, fmt.Errorf("artifact: prune must keep at least one entry per name, got %d", keepLatest)
	}
	entries, temps, err := s.scan()
	if err != nil {
		return PruneResult{}, err
	}
	var result PruneResult
	kept := make(map[string]int)
	for _, e := range entries {
		if fp, ok := protect[e.Name]; ok && fp == e.Fingerprint {
			continue
		}
		if kept[e.Name] < keepLatest {
			kept[e.Name]++
			continue
		}
		if err := os.Remove(e.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return result, fmt.Errorf("artifact: remove %s: %w", e.Path, err)
		}
		result.Removed = append(result.Removed, e)
		result.FreedBytes += e.SizeBytes
		s.logger.InfoContext(ctx, "pruned artifact",
			logging.String(logging.FieldArtifact, e.Name),
			logging.String(logging.FieldFingerprint, Short(e.Fingerprint)),
			logging.Int64("size_bytes", e.SizeBytes),
		)
	}
	cutoff := s.now().Add(-staleTempAge)
	for _, tmp := range temps {
		info, err := os.Stat(tmp)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(tmp); err == nil {
			result.TempFiles++
		}
	}
	return result, nil
}

// scan walks the store and returns entries sorted by name then newest first,
// plus any leftover temp files.
func (s *Store) scan() ([]Entry, []string, error) {
	var entries []Entry
	var temps []string
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		base := d.Name()
		if strings.HasSuffix(base, ".tmp") {
			temps = append(temps, path)
			return nil
		}
		if !strings.HasSuffix(base, fileExt) || strings.HasPrefix(base, ".") {
			return nil
		}
		entry, ok := readEntry(path)
		if !ok {
			s.logger.Debug("skipping unreadable artifact file", logging.String("path", path))
			return nil
		}
		entries = append(entries, entry)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("artifact: scan %s: %w", s.root, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].Fingerprint < entries[j].Fingerprint
	})
	return entries, temps, nil
}

// envelopeHeader decodes an envelope without its payload.
type envelopeHeader struct {
	Name        string    `json:"name"`
	Fingerprint string    `json:"fingerprint"`
	Kind        Kind      `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}

func readEntry(path string) (Entry, bool) {
	f, err := os.Open(path)
	if err != nil {
		return Entry{}, false
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return Entry{}, false
	}
	var header envelopeHeader
	if err := json.NewDecoder(f).Decode(&header); err != nil || header.Name == "" {
		return Entry{}, false
	}
	return Entry{
		Name:        header.Name,
		Fingerprint: header.Fingerprint,
		Kind:        header.Kind,
		CreatedAt:   header.CreatedAt,
		SizeBytes:   info.Size(),
		Path:        path,
	}, true
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
