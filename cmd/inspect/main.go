// Command notifyd-inspect prints the snapshots kept in a notifyd data
// directory. Without --player it lists every snapshot; with it, it decodes
// one (the newest unless --id is given) and prints its records.
//
// Usage:
//
//	notifyd-inspect --data ./data
//	notifyd-inspect --data ./data --player 0 [--id 01J...] [--json]
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sneh-joshi/notifyring/internal/notification"
	"github.com/sneh-joshi/notifyring/internal/session"
	"github.com/sneh-joshi/notifyring/internal/storage"
	"github.com/sneh-joshi/notifyring/internal/storage/local"
	"github.com/sneh-joshi/notifyring/internal/types"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "notifyd-inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("notifyd-inspect", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "notifyd data directory")
	player := fs.Int("player", -1, "decode the snapshot of this player")
	id := fs.String("id", "", "snapshot id (default: newest)")
	asJSON := fs.Bool("json", false, "print records as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Read-only: a mistyped path must not become a fresh data directory.
	engine, err := local.OpenReadOnly(*dataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer engine.Close()

	if *player < 0 {
		return list(engine)
	}
	return dump(engine, types.PlayerID(*player), *id, *asJSON)
}

func list(engine storage.Engine) error {
	infos, err := engine.List()
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	fmt.Printf("host %s, %d snapshots\n", engine.HostID(), len(infos))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLAYER\tID\tTURN\tSIZE\tCREATED")
	for _, in := range infos {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\n",
			in.Player, in.ID, in.Turn, in.Size, in.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func dump(engine storage.Engine, p types.PlayerID, id string, asJSON bool) error {
	var (
		info storage.SnapshotInfo
		blob []byte
		err  error
	)
	if id == "" {
		info, blob, err = engine.Latest(p)
	} else {
		info, blob, err = engine.Get(p, id)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("no snapshot for player %d", p)
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	s, err := notification.New(notification.Env{Session: session.New(session.Options{})}, nil)
	if err != nil {
		return err
	}
	if err := s.UnmarshalBinary(blob); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", info.ID, err)
	}
	recs := s.Records()

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Snapshot storage.SnapshotInfo `json:"snapshot"`
			Owner    types.PlayerID       `json:"owner"`
			NextID   int32                `json:"next_lookup_id"`
			Records  []types.Record       `json:"records"`
		}{info, s.Owner(), s.NextLookupID(), recs})
	}

	fmt.Printf("snapshot %s  player %d  turn %d  next id %d  %d records\n",
		info.ID, s.Owner(), info.Turn, s.NextLookupID(), len(recs))
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tTURN\tX,Y\tDATA\tDISMISSED\tMESSAGE")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d,%d\t%d,%d\t%t\t%s\n",
			r.LookupID, r.Kind, r.Turn, r.X, r.Y, r.PrimaryData, r.SecondaryData, r.Dismissed, r.Message)
	}
	return tw.Flush()
}
