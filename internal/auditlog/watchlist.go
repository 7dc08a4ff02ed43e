// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package auditlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SaveWatchlist writes entries to the watchlist file as a JSON array,
// via write-temp-then-rename so a reader never observes a partially
// written file (spec.md §4.6). It bypasses the queue: watchlist saves
// are periodic snapshots, not a stream of independent records.
func (s *Sink) SaveWatchlist(entries []WatchlistEntry) error {
	if s.signer != nil && s.signer.Enabled() {
		for i := range entries {
			entries[i].Sig = ""
			body, err := json.Marshal(entries[i])
			if err != nil {
				return fmt.Errorf("auditlog: marshal watchlist entry: %w", err)
			}
			entries[i].Sig = s.signer.Sign(body)
		}
	}

	body, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("auditlog: marshal watchlist: %w", err)
	}

	path := filepath.Join(s.dir, watchlistFile)
	tmp, err := os.CreateTemp(s.dir, ".watchlist-*.tmp")
	if err != nil {
		return fmt.Errorf("auditlog: create watchlist temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("auditlog: write watchlist temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("auditlog: sync watchlist temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("auditlog: close watchlist temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("auditlog: rename watchlist temp file: %w", err)
	}
	return nil
}

// LoadWatchlist reads and verifies the persisted watchlist, if any. A
// missing file is not an error; it returns an empty slice.
func (s *Sink) LoadWatchlist() ([]WatchlistEntry, error) {
	path := filepath.Join(s.dir, watchlistFile)
	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("auditlog: read watchlist: %w", err)
	}

	var entries []WatchlistEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("auditlog: decode watchlist: %w", err)
	}

	if s.signer != nil && s.signer.Enabled() {
		for i := range entries {
			sig := entries[i].Sig
			entries[i].Sig = ""
			check, err := json.Marshal(entries[i])
			if err != nil {
				return nil, fmt.Errorf("auditlog: remarshal watchlist entry: %w", err)
			}
			if !s.signer.Verify(check, sig) {
				return nil, fmt.Errorf("auditlog: watchlist entry %s failed integrity check", entries[i].IP)
			}
		}
	}
	return entries, nil
}
