package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"islandlimits.dev/internal/sim/entities"
	"islandlimits.dev/internal/sim/islands"
)

const Version = 1

type Header struct {
	Version  int    `json:"version"`
	SavedAt  string `json:"saved_at"`
	Islands  int    `json:"islands"`
	Entities int    `json:"entities"`
}

type SnapshotV1 struct {
	Header   Header     `json:"header"`
	Islands  []IslandV1 `json:"islands"`
	Entities []EntityV1 `json:"entities"`
}

type IslandV1 struct {
	ID      string      `json:"id"`
	World   string      `json:"world"`
	Owner   uuid.UUID   `json:"owner"`
	Members []uuid.UUID `json:"members,omitempty"`
	Center  [3]int      `json:"center"`
	Range   int         `json:"range"`
}

type EntityV1 struct {
	ID    uuid.UUID `json:"id"`
	Type  string    `json:"type"`
	World string    `json:"world"`
	Pos   [3]int    `json:"pos"`
}

// Capture copies the current islands and entities into a snapshot.
func Capture(isl *islands.Registry, ents *entities.Registry) SnapshotV1 {
	var snap SnapshotV1
	if isl != nil {
		for _, is := range isl.All() {
			snap.Islands = append(snap.Islands, IslandV1{
				ID:      is.ID(),
				World:   is.World(),
				Owner:   is.Owner(),
				Members: is.Members(),
				Center:  is.Center(),
				Range:   is.Range(),
			})
		}
	}
	if ents != nil {
		for _, e := range ents.Snapshot() {
			snap.Entities = append(snap.Entities, EntityV1{ID: e.ID, Type: e.Type, World: e.World, Pos: e.Pos})
		}
	}
	snap.Header = Header{
		Version:  Version,
		SavedAt:  time.Now().UTC().Format(time.RFC3339),
		Islands:  len(snap.Islands),
		Entities: len(snap.Entities),
	}
	return snap
}

// Restore rebuilds the registries from a snapshot.
func Restore(snap SnapshotV1) (*islands.Registry, *entities.Registry, error) {
	if snap.Header.Version != 0 && snap.Header.Version != Version {
		return nil, nil, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	isl := islands.NewRegistry()
	for _, is := range snap.Islands {
		v, err := islands.New(islands.Spec{
			ID:      is.ID,
			World:   is.World,
			Owner:   is.Owner,
			Members: is.Members,
			Center:  is.Center,
			Range:   is.Range,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := isl.Add(v); err != nil {
			return nil, nil, err
		}
	}
	ents := entities.NewRegistry()
	for _, e := range snap.Entities {
		if _, err := ents.Spawn(entities.Entity{ID: e.ID, Type: e.Type, World: e.World, Pos: e.Pos}); err != nil {
			return nil, nil, err
		}
	}
	return isl, ents, nil
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The header line is for humans and tooling; gob carries it too.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}
	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()
	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}

const fileSuffix = ".snap.zst"

// PathFor names a snapshot file in dir by its save time.
func PathFor(dir string, t time.Time) string {
	return filepath.Join(dir, strconv.FormatInt(t.UTC().UnixMilli(), 10)+fileSuffix)
}

// Latest returns the newest snapshot in dir, or "" if there is none.
func Latest(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestAt int64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		at, err := strconv.ParseInt(strings.TrimSuffix(name, fileSuffix), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || at > bestAt {
			bestAt = at
			best = filepath.Join(dir, name)
		}
	}
	return best
}
