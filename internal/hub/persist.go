package hub

import (
	"errors"
	"fmt"

	"github.com/sneh-joshi/notifyring/internal/storage"
	"github.com/sneh-joshi/notifyring/internal/types"
)

// Save stores a snapshot of every player's store.
func (h *Hub) Save() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.saveLocked()
}

func (h *Hub) saveLocked() error {
	if h.engine == nil {
		return ErrNoStorage
	}
	turn := h.sess.GameTurn()
	for i, s := range h.stores {
		blob, err := s.MarshalBinary()
		if err != nil {
			return fmt.Errorf("hub: save player %d: %w", i, err)
		}
		info, err := h.engine.Save(types.PlayerID(i), turn, blob)
		if err != nil {
			return fmt.Errorf("hub: save player %d: %w", i, err)
		}
		h.log.Debug("snapshot saved", "player", i, "id", info.ID, "turn", turn, "bytes", info.Size)
	}
	return nil
}

// Load restores every player's store from its newest snapshot. A player with
// no snapshot keeps its current store. Restored records are redelivered by
// the next Tick, and the game turn resumes at the newest snapshot's turn.
//
// Load stops at the first failing player; stores restored before it stay
// restored.
func (h *Hub) Load() (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.engine == nil {
		return 0, ErrNoStorage
	}
	restored := 0
	turn := h.sess.GameTurn()
	defer func() {
		if restored > 0 {
			h.sess.SetTurn(turn)
		}
	}()
	for i, s := range h.stores {
		p := types.PlayerID(i)
		info, blob, err := h.engine.Latest(p)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return restored, fmt.Errorf("hub: load player %v: %w", p, err)
		}
		if err := s.UnmarshalBinary(blob); err != nil {
			return restored, fmt.Errorf("hub: load player %v snapshot %s: %w", p, info.ID, err)
		}
		if s.Owner() != p {
			err := fmt.Errorf("hub: load player %v snapshot %s: owned by %v", p, info.ID, s.Owner())
			s.Init(p)
			return restored, err
		}
		restored++
		turn = max(turn, info.Turn)
		h.log.Info("snapshot restored", "player", i, "id", info.ID, "turn", info.Turn, "records", s.Count())
	}
	return restored, nil
}
