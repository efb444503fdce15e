// Package snapshot indexes the chain snapshots persisted in an output
// directory.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dgnsrekt/optionschain/internal/chain"
)

var ErrNotFound = errors.New("snapshot not found")

// Entry is one persisted snapshot file.
type Entry struct {
	chain.SnapshotName
	Name string
	Path string
	Size int64
}

type Store struct {
	dir      string
	location *time.Location
	logger   *zap.Logger
}

// NewStore reads snapshot file names in loc, the zone they were captured in.
func NewStore(dir string, loc *time.Location, logger *zap.Logger) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{dir: dir, location: loc, logger: logger}
}

func (s *Store) Dir() string {
	return s.dir
}

// List returns every snapshot in the directory, oldest first. Files whose
// names do not parse are ignored.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".csv" {
			continue
		}
		name, err := chain.ParseSnapshotFileName(de.Name(), s.location)
		if err != nil {
			s.logger.Debug("ignoring file", zap.String("file", de.Name()), zap.Error(err))
			continue
		}
		var size int64
		if info, err := de.Info(); err == nil {
			size = info.Size()
		}
		entries = append(entries, Entry{
			SnapshotName: name,
			Name:         de.Name(),
			Path:         filepath.Join(s.dir, de.Name()),
			Size:         size,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CapturedAt.Equal(entries[j].CapturedAt) {
			return entries[i].CapturedAt.Before(entries[j].CapturedAt)
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

// Latest returns the newest snapshot for exchange and ticker, matched
// case-insensitively.
func (s *Store) Latest(exchange, ticker string) (Entry, error) {
	entries, err := s.List()
	if err != nil {
		return Entry{}, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if strings.EqualFold(e.Exchange, exchange) && strings.EqualFold(e.Ticker, ticker) {
			return e, nil
		}
	}
	return Entry{}, fmt.Errorf("%w: %s %s", ErrNotFound, exchange, ticker)
}

// Load reads a persisted chain file.
func Load(path string) ([]chain.Contract, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	contracts, err := chain.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return contracts, nil
}
