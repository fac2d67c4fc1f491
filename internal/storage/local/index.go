package local

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.etcd.io/bbolt"

	"github.com/sneh-joshi/notifyring/internal/storage"
	"github.com/sneh-joshi/notifyring/internal/types"
)

var (
	bucketSnapshots = []byte("snapshots")
	bucketMeta      = []byte("meta")
	keyHostID       = []byte("host_id")
)

// ---- keys ------------------------------------------------------------------
// Snapshot keys are "<player>/<snapshot id>". The player is zero-padded so
// that bbolt's byte order groups players numerically, and the ULID suffix
// sorts snapshots of one player oldest to newest.

const playerWidth = 6

func playerPrefix(p types.PlayerID) []byte {
	return []byte(fmt.Sprintf("%0*d/", playerWidth, int32(p)))
}

func snapshotKey(p types.PlayerID, id string) []byte {
	return append(playerPrefix(p), id...)
}

func parseKey(k []byte) (types.PlayerID, string, error) {
	player, id, ok := strings.Cut(string(k), "/")
	if !ok {
		return 0, "", fmt.Errorf("key %q: %w", k, storage.ErrCorrupted)
	}
	n, err := strconv.ParseInt(player, 10, 32)
	if err != nil {
		return 0, "", fmt.Errorf("key %q: %w", k, storage.ErrCorrupted)
	}
	return types.PlayerID(n), id, nil
}

// lastWithPrefix positions c on the greatest key starting with prefix.
func lastWithPrefix(c *bbolt.Cursor, prefix []byte) ([]byte, []byte) {
	// '0' sorts right after '/', so prefix with '/' replaced by '0' is the
	// first key past every key in the range.
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1] = '0'
	k, v := c.Seek(upper)
	if k == nil {
		k, v = c.Last()
	} else {
		k, v = c.Prev()
	}
	if k == nil || !bytes.HasPrefix(k, prefix) {
		return nil, nil
	}
	return k, v
}

// prune deletes the oldest snapshots of player beyond keep.
func prune(b *bbolt.Bucket, player types.PlayerID, keep int) (int, error) {
	prefix := playerPrefix(player)
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	n := len(keys) - keep
	for i := 0; i < n; i++ {
		if err := b.Delete(keys[i]); err != nil {
			return i, err
		}
	}
	if n < 0 {
		n = 0
	}
	return n, nil
}

// ---- serialisation helpers -------------------------------------------------
// A snapshot value is a fixed header followed by the zstd payload:
//
//	[turn      : 4 bytes, int32  ]
//	[createdMs : 8 bytes, int64  ]
//	[size      : 4 bytes, uint32 ]  ← uncompressed length
//	[payload   : rest            ]

const snapshotHeaderLen = 16

func marshalSnapshot(info storage.SnapshotInfo, payload []byte) []byte {
	buf := make([]byte, snapshotHeaderLen, snapshotHeaderLen+len(payload))
	binary.BigEndian.PutUint32(buf[0:], uint32(info.Turn))
	binary.BigEndian.PutUint64(buf[4:], uint64(info.CreatedAt.UnixMilli()))
	binary.BigEndian.PutUint32(buf[12:], uint32(info.Size))
	return append(buf, payload...)
}

// unmarshalSnapshot decodes a key/value pair. The returned payload is a copy:
// bbolt values are only valid inside their transaction.
func unmarshalSnapshot(k, v []byte) (storage.SnapshotInfo, []byte, error) {
	player, id, err := parseKey(k)
	if err != nil {
		return storage.SnapshotInfo{}, nil, err
	}
	if len(v) < snapshotHeaderLen {
		return storage.SnapshotInfo{}, nil, fmt.Errorf("snapshot %q too short (%d bytes): %w", k, len(v), storage.ErrCorrupted)
	}
	info := storage.SnapshotInfo{
		Player:    player,
		ID:        id,
		Turn:      int32(binary.BigEndian.Uint32(v[0:])),
		CreatedAt: time.UnixMilli(int64(binary.BigEndian.Uint64(v[4:]))).UTC(),
		Size:      int(binary.BigEndian.Uint32(v[12:])),
	}
	return info, append([]byte(nil), v[snapshotHeaderLen:]...), nil
}
