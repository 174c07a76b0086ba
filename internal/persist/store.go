// Package persist provides atomic on-disk checkpointing, adapted from the
// same write-to-tmp-then-rename pattern used for position snapshots, here
// repurposed to checkpoint a wallet's SequenceState so STARTING can seed
// its first refresh with a recent value instead of always trusting a cold
// start.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/InjectiveLabs/testnet-liquidity-engine/pkg/types"
)

// Store persists one SequenceState file per wallet under dir.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates (if needed) dir and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("persist: create store dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(walletID string) string {
	return filepath.Join(s.dir, walletID+".sequence.json")
}

// SaveSequence writes state for walletID atomically: write to a temp file
// in the same directory, then rename over the target.
func (s *Store) SaveSequence(walletID string, state types.SequenceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("persist: marshal sequence state: %w", err)
	}

	target := s.path(walletID)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("persist: write temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		return fmt.Errorf("persist: rename into place: %w", err)
	}
	return nil
}

// LoadSequence reads the last checkpointed state for walletID. A missing
// file is not an error — it returns the zero value so a fresh wallet
// starts cold.
func (s *Store) LoadSequence(walletID string) (types.SequenceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(walletID))
	if err != nil {
		if os.IsNotExist(err) {
			return types.SequenceState{}, nil
		}
		return types.SequenceState{}, fmt.Errorf("persist: read sequence file: %w", err)
	}

	var state types.SequenceState
	if err := json.Unmarshal(data, &state); err != nil {
		return types.SequenceState{}, fmt.Errorf("persist: unmarshal sequence state: %w", err)
	}
	return state, nil
}
