// Package persist saves and restores fleet state between runs: a
// compressed snapshot of the agents and a SQLite store for the learned
// behavior records.
package persist

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/skirmishlab/vanguard/learning"
	"github.com/skirmishlab/vanguard/world"
)

const snapshotVersion = 1

// AgentRecord is the persisted state of one agent.
type AgentRecord struct {
	ID          string     `json:"id"`
	Entity      uint64     `json:"entity"`
	Disposition uint8      `json:"disposition"`
	Behavior    string     `json:"behavior"`
	Position    world.Vec3 `json:"position"`
	Home        world.Vec3 `json:"home"`
	Health      float64    `json:"health"`
}

// Snapshot is a point-in-time capture of a fleet.
type Snapshot struct {
	Version  int                     `json:"version"`
	SavedAt  time.Time               `json:"saved_at"`
	Agents   []AgentRecord           `json:"agents"`
	Registry []learning.RecordExport `json:"registry"`
}

// WriteSnapshot writes a zstd-compressed JSON snapshot to path.
func WriteSnapshot(path string, snap Snapshot) error {
	snap.Version = snapshotVersion

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
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
	defer enc.Close()

	bw := bufio.NewWriter(enc)
	defer bw.Flush()

	if err := json.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot reads a snapshot written by WriteSnapshot.
func ReadSnapshot(path string) (Snapshot, error) {
	var snap Snapshot
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

	if err := json.NewDecoder(bufio.NewReader(dec)).Decode(&snap); err != nil {
		return snap, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap, nil
}
