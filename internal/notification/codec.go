package notification

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/sneh-joshi/notifyring/internal/types"
)

// ErrBadSnapshot is returned when saved store bytes cannot be decoded.
var ErrBadSnapshot = errors.New("notification: bad snapshot")

// maxStringLen caps message and summary lengths read from a snapshot.
const maxStringLen = 64 << 10

// Snapshot layout, all little-endian:
//
//	owner        int32
//	nextLookupID int32
//	begin        int32
//	end          int32
//	records      MaxNotifications × record
//
// record:
//
//	kind int32 | message str | summary str | x, y, primary, secondary,
//	turn, lookup int32 | dismissed byte | owner int32
//
// str is a uint32 byte length followed by UTF-8 bytes. NeedsBroadcast and
// WaitExtraTurn are not stored.

// MarshalBinary encodes the full store, dead slots included.
func (s *Store) MarshalBinary() ([]byte, error) {
	w := &byteWriter{buf: make([]byte, 0, 16+MaxNotifications*48)}
	w.writeInt32(int32(s.owner))
	w.writeInt32(s.nextLookupID)
	w.writeInt32(s.begin)
	w.writeInt32(s.end)
	for i := range s.records {
		r := &s.records[i]
		w.writeInt32(int32(r.Kind))
		w.writeString(r.Message)
		w.writeString(r.Summary)
		w.writeInt32(r.X)
		w.writeInt32(r.Y)
		w.writeInt32(r.PrimaryData)
		w.writeInt32(r.SecondaryData)
		w.writeInt32(r.Turn)
		w.writeInt32(r.LookupID)
		w.writeBool(r.Dismissed)
		w.writeInt32(int32(r.Owner))
	}
	return w.buf, nil
}

// UnmarshalBinary replaces the store's contents with a decoded snapshot. On
// error the store is left unchanged. Every record comes back with
// NeedsBroadcast set and WaitExtraTurn clear.
func (s *Store) UnmarshalBinary(data []byte) error {
	rd := &byteReader{buf: data}
	owner := types.PlayerID(rd.readInt32())
	next := rd.readInt32()
	begin := rd.readInt32()
	end := rd.readInt32()
	if rd.err != nil {
		return fmt.Errorf("notification: unmarshal header: %w", rd.err)
	}
	if err := checkRange(begin, end); err != nil {
		return err
	}

	var recs [MaxNotifications]types.Record
	for i := range recs {
		r := &recs[i]
		r.Kind = types.Kind(rd.readInt32())
		r.Message = rd.readString()
		r.Summary = rd.readString()
		r.X = rd.readInt32()
		r.Y = rd.readInt32()
		r.PrimaryData = rd.readInt32()
		r.SecondaryData = rd.readInt32()
		r.Turn = rd.readInt32()
		r.LookupID = rd.readInt32()
		r.Dismissed = rd.readBool()
		r.Owner = types.PlayerID(rd.readInt32())
		r.NeedsBroadcast = true
		r.WaitExtraTurn = false
		if rd.err != nil {
			return fmt.Errorf("notification: unmarshal record %d: %w", i, rd.err)
		}
	}
	if rd.offset != len(data) {
		return fmt.Errorf("notification: unmarshal: %d trailing bytes: %w", len(data)-rd.offset, ErrBadSnapshot)
	}

	s.owner, s.nextLookupID, s.begin, s.end = owner, next, begin, end
	s.records = recs
	return nil
}

// WriteTo implements io.WriterTo.
func (s *Store) WriteTo(w io.Writer) (int64, error) {
	b, err := s.MarshalBinary()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(b)
	if err != nil {
		return int64(n), fmt.Errorf("notification: write: %w", err)
	}
	return int64(n), nil
}

// ReadFrom implements io.ReaderFrom. It consumes r to EOF.
func (s *Store) ReadFrom(r io.Reader) (int64, error) {
	var buf bytes.Buffer
	n, err := buf.ReadFrom(r)
	if err != nil {
		return n, fmt.Errorf("notification: read: %w", err)
	}
	return n, s.UnmarshalBinary(buf.Bytes())
}

func checkRange(begin, end int32) error {
	if begin == -1 && end == -1 {
		return nil
	}
	if begin < 0 || begin >= MaxNotifications || end < 0 || end >= MaxNotifications {
		return fmt.Errorf("notification: unmarshal: range [%d,%d) out of bounds: %w", begin, end, ErrBadSnapshot)
	}
	return nil
}

// ─── byte-level writer / reader ───────────────────────────────────────────────

type byteWriter struct{ buf []byte }

func (w *byteWriter) writeInt32(v int32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v)) }

func (w *byteWriter) writeBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
		return
	}
	w.buf = append(w.buf, 0)
}

func (w *byteWriter) writeString(v string) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(len(v)))
	w.buf = append(w.buf, v...)
}

// byteReader records the first error and returns zero values after it.
type byteReader struct {
	buf    []byte
	offset int
	err    error
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.buf)-r.offset < n {
		r.err = fmt.Errorf("truncated at offset %d: %w", r.offset, ErrBadSnapshot)
		return nil
	}
	v := r.buf[r.offset : r.offset+n]
	r.offset += n
	return v
}

func (r *byteReader) readInt32() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(b))
}

func (r *byteReader) readBool() bool {
	b := r.take(1)
	return b != nil && b[0] != 0
}

func (r *byteReader) readString() string {
	n := uint32(r.readInt32())
	if r.err != nil {
		return ""
	}
	if n > maxStringLen {
		r.err = fmt.Errorf("string of %d bytes at offset %d: %w", n, r.offset-4, ErrBadSnapshot)
		return ""
	}
	return string(r.take(int(n)))
}
