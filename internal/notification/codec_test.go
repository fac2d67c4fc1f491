package notification_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/sneh-joshi/notifyring/internal/notification"
	"github.com/sneh-joshi/notifyring/internal/session"
	"github.com/sneh-joshi/notifyring/internal/types"
)

func TestCodec_RoundTrip(t *testing.T) {
	h := newHarness(t, session.Options{}, notification.Env{})
	h.add(t, types.KindGeneric, 1, 2, 3, 4)
	dismissed := h.add(t, types.KindWar, -1, -1, 7, -1)
	h.store.Dismiss(dismissed, true)
	h.sess.SetAutoMoves(me, true)
	h.add(t, types.KindBarbarian, 9, 9, -1, -1) // WaitExtraTurn
	h.sess.SetAutoMoves(me, false)
	h.add(t, types.KindPlayerEvent, -1, -1, 11, -1)
	h.add(t, types.HashKind("mod_kind"), -1, -1, -1, -1)

	var buf bytes.Buffer
	if _, err := h.store.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	restored, err := notification.New(notification.Env{Session: h.sess}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := restored.ReadFrom(&buf); err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}

	if restored.Owner() != me || restored.NextLookupID() != h.store.NextLookupID() {
		t.Fatalf("header: want owner %v next %d, got %v %d",
			me, h.store.NextLookupID(), restored.Owner(), restored.NextLookupID())
	}
	if restored.Count() != 5 {
		t.Fatalf("Count: want 5, got %d", restored.Count())
	}
	for i := 0; i < restored.Count(); i++ {
		want, _ := h.store.RecordAt(i)
		got, _ := restored.RecordAt(i)
		if !got.NeedsBroadcast {
			t.Fatalf("record %d: NeedsBroadcast should be forced true", i)
		}
		if got.WaitExtraTurn {
			t.Fatalf("record %d: WaitExtraTurn should be forced false", i)
		}
		want.NeedsBroadcast, want.WaitExtraTurn = true, false
		if got != want {
			t.Fatalf("record %d: want %+v, got %+v", i, want, got)
		}
	}
	if !restored.DismissedAt(1) {
		t.Fatal("dismissed state was not restored")
	}
}

func TestCodec_RoundTripAfterWrap(t *testing.T) {
	h := newHarness(t, session.Options{}, notification.Env{})
	for i := 0; i < notification.MaxNotifications+37; i++ {
		h.add(t, types.KindGeneric, -1, -1, int32(i), -1)
	}
	blob, err := h.store.MarshalBinary()
	if err != nil {
		t.Fatalf("MarshalBinary: %v", err)
	}
	restored, _ := notification.New(notification.Env{Session: h.sess}, nil)
	if err := restored.UnmarshalBinary(blob); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if restored.IDAt(0) != h.store.IDAt(0) || restored.Count() != h.store.Count() {
		t.Fatalf("want first id %d count %d, got %d %d",
			h.store.IDAt(0), h.store.Count(), restored.IDAt(0), restored.Count())
	}
}

func TestCodec_UninitRoundTrip(t *testing.T) {
	sess := session.New(session.Options{})
	st, _ := notification.New(notification.Env{Session: sess}, nil)
	blob, _ := st.MarshalBinary()

	restored, _ := notification.New(notification.Env{Session: sess}, nil)
	restored.Init(3)
	if err := restored.UnmarshalBinary(blob); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if restored.Owner() != types.PlayerNone || restored.Count() != 0 {
		t.Fatalf("want unbound empty store, got owner %v count %d", restored.Owner(), restored.Count())
	}
}

func TestCodec_RejectsBadInput(t *testing.T) {
	h := newHarness(t, session.Options{}, notification.Env{})
	h.add(t, types.KindGeneric, -1, -1, -1, -1)
	good, _ := h.store.MarshalBinary()

	badRange := append([]byte(nil), good...)
	binary.LittleEndian.PutUint32(badRange[8:], uint32(notification.MaxNotifications))

	hugeString := append([]byte(nil), good[:20]...)
	hugeString = binary.LittleEndian.AppendUint32(hugeString, 1<<20)

	cases := map[string][]byte{
		"empty":       nil,
		"truncated":   good[:len(good)-3],
		"trailing":    append(append([]byte(nil), good...), 0),
		"bad range":   badRange,
		"huge string": hugeString,
	}
	for name, data := range cases {
		st, _ := notification.New(notification.Env{Session: h.sess}, nil)
		st.Init(me)
		err := st.UnmarshalBinary(data)
		if !errors.Is(err, notification.ErrBadSnapshot) {
			t.Fatalf("%s: want ErrBadSnapshot, got %v", name, err)
		}
		if st.Owner() != me || st.Count() != 0 {
			t.Fatalf("%s: failed load modified the store", name)
		}
	}
}
