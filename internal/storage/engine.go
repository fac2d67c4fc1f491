// Package storage defines the Engine abstraction through which notification
// store snapshots are persisted.
//
// The hub only talks to storage through this interface, never to files or
// bbolt directly. A snapshot blob is whatever notification.Store.MarshalBinary
// produced; engines treat it as opaque bytes.
package storage

import (
	"errors"
	"time"

	"github.com/sneh-joshi/notifyring/internal/types"
)

// ErrNotFound is returned when no snapshot exists for the requested key.
var ErrNotFound = errors.New("storage: not found")

// ErrCorrupted is returned when a stored blob cannot be decompressed.
var ErrCorrupted = errors.New("storage: entry corrupted")

// SnapshotInfo describes one stored snapshot without its payload.
type SnapshotInfo struct {
	Player types.PlayerID `json:"player"`
	// ID is the time-sortable snapshot id; later snapshots sort higher.
	ID        string    `json:"id"`
	Turn      int32     `json:"turn"`
	CreatedAt time.Time `json:"created_at"`
	// Size is the uncompressed blob length in bytes.
	Size int `json:"size"`
}

// Engine persists snapshots per player.
//
// All methods must be safe for concurrent use.
type Engine interface {
	// Save stores blob as the newest snapshot for player and returns its id.
	// Older snapshots beyond the engine's retention are pruned.
	Save(player types.PlayerID, turn int32, blob []byte) (SnapshotInfo, error)

	// Latest returns the newest snapshot for player.
	// Returns ErrNotFound if the player has none.
	Latest(player types.PlayerID) (SnapshotInfo, []byte, error)

	// Get returns one snapshot by id.
	Get(player types.PlayerID, id string) (SnapshotInfo, []byte, error)

	// List returns every snapshot, newest first per player, players ascending.
	List() ([]SnapshotInfo, error)

	// HostID returns the persistent identity of the data directory.
	HostID() string

	// Close flushes pending writes and releases file handles.
	Close() error
}
