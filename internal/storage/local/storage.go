// Package local is the single-node, disk-backed storage.Engine. Snapshots
// live in one bbolt file, zstd-compressed, keyed by player and a
// time-sortable snapshot id.
package local

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"go.etcd.io/bbolt"

	"github.com/sneh-joshi/notifyring/internal/ids"
	"github.com/sneh-joshi/notifyring/internal/storage"
	"github.com/sneh-joshi/notifyring/internal/types"
)

const (
	dbFileName  = "snapshots.db"
	openTimeout = time.Second
)

// ErrReadOnly is returned by Save on a Storage from OpenReadOnly.
var ErrReadOnly = errors.New("local: storage is read-only")

// ─── Local Storage Config ────────────────────────────────────────────────────

// Config tunes local.Storage. All zero-values are safe: Open fills in the
// defaults from DefaultConfig.
type Config struct {
	// KeepSnapshots is how many snapshots are retained per player.
	KeepSnapshots int
	// CompressionLevel is one of "fastest", "default", "better", "best".
	CompressionLevel string
	// NoSync skips fsync on commit. Faster, but a crash can lose the last
	// commit. Meant for tests and throwaway dev hosts.
	NoSync bool
	// HostID overrides the persisted host identity when not "" or "auto".
	HostID string
}

// DefaultConfig returns a Config with production-safe defaults.
func DefaultConfig() Config {
	return Config{
		KeepSnapshots:    5,
		CompressionLevel: "default",
	}
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for open, prune and recovery messages.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) { s.log = l }
}

// ─── Storage ─────────────────────────────────────────────────────────────────

// Storage implements storage.Engine on bbolt.
//
// All methods are safe for concurrent use: bbolt serialises writers, and the
// zstd encoder and decoder are only used through their stateless
// EncodeAll/DecodeAll entry points.
type Storage struct {
	db     *bbolt.DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	cfg    Config
	hostID ids.ID
	log    *slog.Logger
}

var _ storage.Engine = (*Storage)(nil)

// Open opens (or creates) the snapshot database inside dir.
func Open(dir string, cfg Config, opts ...Option) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("local: data dir must not be empty")
	}
	def := DefaultConfig()
	if cfg.KeepSnapshots <= 0 {
		cfg.KeepSnapshots = def.KeepSnapshots
	}
	if cfg.CompressionLevel == "" {
		cfg.CompressionLevel = def.CompressionLevel
	}
	ok, level := zstd.EncoderLevelFromString(cfg.CompressionLevel)
	if !ok {
		return nil, fmt.Errorf("local: unknown compression level %q", cfg.CompressionLevel)
	}

	s := &Storage{cfg: cfg, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("local: create data dir: %w", err)
	}
	path := filepath.Join(dir, dbFileName)
	db, err := bbolt.Open(path, 0o640, &bbolt.Options{Timeout: openTimeout, NoSync: cfg.NoSync})
	if err != nil {
		return nil, fmt.Errorf("local: open %s: %w", path, err)
	}
	s.db = db

	if s.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(level)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("local: zstd encoder: %w", err)
	}
	if s.dec, err = zstd.NewReader(nil); err != nil {
		_ = s.enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("local: zstd decoder: %w", err)
	}

	if err := s.initBuckets(); err != nil {
		_ = s.Close()
		return nil, err
	}

	s.log.Info("snapshot storage opened",
		"path", path,
		"host_id", s.hostID.String(),
		"keep_snapshots", cfg.KeepSnapshots,
		"compression", cfg.CompressionLevel,
	)
	return s, nil
}

// OpenReadOnly opens an existing snapshot database inside dir without
// writing to it. It never creates the directory or the file, and fails after
// a short timeout while another process holds the database for writing.
func OpenReadOnly(dir string, opts ...Option) (*Storage, error) {
	if dir == "" {
		return nil, errors.New("local: data dir must not be empty")
	}
	path := filepath.Join(dir, dbFileName)
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("local: open %s: %w", path, err)
	}

	s := &Storage{cfg: DefaultConfig(), log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	db, err := bbolt.Open(path, 0o640, &bbolt.Options{ReadOnly: true, Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("local: open %s read-only: %w", path, err)
	}
	s.db = db
	if s.dec, err = zstd.NewReader(nil); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("local: zstd decoder: %w", err)
	}

	err = db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket(bucketMeta)
		if meta == nil || tx.Bucket(bucketSnapshots) == nil {
			return fmt.Errorf("local: %s is not a snapshot database", path)
		}
		s.hostID = ids.ID(meta.Get(keyHostID))
		return nil
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.log.Debug("snapshot storage opened read-only", "path", path, "host_id", s.hostID.String())
	return s, nil
}

// HostID returns the persistent identity of this data directory.
func (s *Storage) HostID() string { return s.hostID.String() }

// Save compresses blob and stores it as the newest snapshot for player.
func (s *Storage) Save(player types.PlayerID, turn int32, blob []byte) (storage.SnapshotInfo, error) {
	if s.enc == nil {
		return storage.SnapshotInfo{}, ErrReadOnly
	}
	id, err := ids.New()
	if err != nil {
		return storage.SnapshotInfo{}, fmt.Errorf("local: save: %w", err)
	}
	info := storage.SnapshotInfo{
		Player:    player,
		ID:        id.String(),
		Turn:      turn,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		Size:      len(blob),
	}
	val := marshalSnapshot(info, s.enc.EncodeAll(blob, nil))

	var pruned int
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketSnapshots)
		if err := b.Put(snapshotKey(player, info.ID), val); err != nil {
			return err
		}
		var err error
		pruned, err = prune(b, player, s.cfg.KeepSnapshots)
		return err
	})
	if err != nil {
		return storage.SnapshotInfo{}, fmt.Errorf("local: save player %v: %w", player, err)
	}
	if pruned > 0 {
		s.log.Debug("snapshots pruned", "player", int32(player), "count", pruned)
	}
	return info, nil
}

// Latest returns the newest snapshot for player.
func (s *Storage) Latest(player types.PlayerID) (storage.SnapshotInfo, []byte, error) {
	var (
		info storage.SnapshotInfo
		raw  []byte
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		k, v := lastWithPrefix(tx.Bucket(bucketSnapshots).Cursor(), playerPrefix(player))
		if k == nil {
			return storage.ErrNotFound
		}
		var err error
		info, raw, err = unmarshalSnapshot(k, v)
		return err
	})
	if err != nil {
		return storage.SnapshotInfo{}, nil, fmt.Errorf("local: latest player %v: %w", player, err)
	}
	blob, err := s.decode(raw)
	return info, blob, err
}

// Get returns one snapshot by id.
func (s *Storage) Get(player types.PlayerID, id string) (storage.SnapshotInfo, []byte, error) {
	var (
		info storage.SnapshotInfo
		raw  []byte
	)
	key := snapshotKey(player, id)
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketSnapshots).Get(key)
		if v == nil {
			return storage.ErrNotFound
		}
		var err error
		info, raw, err = unmarshalSnapshot(key, v)
		return err
	})
	if err != nil {
		return storage.SnapshotInfo{}, nil, fmt.Errorf("local: get %s: %w", key, err)
	}
	blob, err := s.decode(raw)
	return info, blob, err
}

// List returns every snapshot: players ascending, newest first within a
// player.
func (s *Storage) List() ([]storage.SnapshotInfo, error) {
	var out []storage.SnapshotInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketSnapshots).ForEach(func(k, v []byte) error {
			info, _, err := unmarshalSnapshot(k, v)
			if err != nil {
				return err
			}
			out = append(out, info)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("local: list: %w", err)
	}
	// Keys sort ascending by id within a player; flip each player's run.
	for i := 0; i < len(out); {
		j := i
		for j < len(out) && out[j].Player == out[i].Player {
			j++
		}
		for a, b := i, j-1; a < b; a, b = a+1, b-1 {
			out[a], out[b] = out[b], out[a]
		}
		i = j
	}
	return out, nil
}

// Close releases the database and codec resources.
func (s *Storage) Close() error {
	if s.dec != nil {
		s.dec.Close()
	}
	if s.enc != nil {
		_ = s.enc.Close()
	}
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("local: close: %w", err)
	}
	return nil
}

func (s *Storage) decode(raw []byte) ([]byte, error) {
	blob, err := s.dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, fmt.Errorf("local: decompress: %v: %w", err, storage.ErrCorrupted)
	}
	return blob, nil
}

// initBuckets creates the buckets and resolves the host identity.
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketSnapshots); err != nil {
			return fmt.Errorf("local: init snapshots bucket: %w", err)
		}
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return fmt.Errorf("local: init meta bucket: %w", err)
		}
		id, fresh, err := ids.ResolveHost(s.cfg.HostID, string(meta.Get(keyHostID)))
		if err != nil {
			return fmt.Errorf("local: host id: %w", err)
		}
		if fresh {
			if err := meta.Put(keyHostID, []byte(id.String())); err != nil {
				return fmt.Errorf("local: persist host id: %w", err)
			}
		}
		s.hostID = id
		return nil
	})
}
