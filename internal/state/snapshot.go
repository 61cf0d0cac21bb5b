package state

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/tianhm/nautilus-trader/internal/model"
	"github.com/tianhm/nautilus-trader/internal/model/enum"
)

// Snapshot captures positions at a point in time.
type Snapshot struct {
	Timestamp int64           `json:"timestamp"`
	Positions []PositionEntry `json:"positions"`
}

// PositionEntry is a single position summary.
type PositionEntry struct {
	PositionID  model.PositionID  `json:"positionId"`
	AccountID   model.AccountID   `json:"accountId"`
	Symbol      model.Symbol      `json:"symbol"`
	Side        enum.PositionSide `json:"side"`
	Qty         model.Quantity    `json:"qty"`
	AvgOpen     string            `json:"avgOpen"`
	RealizedPnL model.Money       `json:"realizedPnl"`
}

// Snapshot builds a snapshot from current positions.
func (a *Aggregator) Snapshot() Snapshot {
	entries := make([]PositionEntry, 0, len(a.seq))
	for _, id := range a.seq {
		p := a.positions[id]
		entries = append(entries, PositionEntry{
			PositionID:  p.id,
			AccountID:   p.accountID,
			Symbol:      p.symbol,
			Side:        p.side,
			Qty:         p.qty,
			AvgOpen:     p.avgOpen.String(),
			RealizedPnL: p.realized,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].PositionID < entries[j].PositionID
	})
	return Snapshot{
		Timestamp: a.clock.Now().UnixNano(),
		Positions: entries,
	}
}

// WriteSnapshot writes a snapshot to disk as JSON.
func WriteSnapshot(path string, snapshot Snapshot) error {
	data, err := sonic.ConfigStd.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSnapshot loads a snapshot from disk.
func ReadSnapshot(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	var snap Snapshot
	if err := sonic.ConfigStd.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// CompareSnapshots checks if two snapshots match.
func CompareSnapshots(expected, actual Snapshot) error {
	if len(expected.Positions) != len(actual.Positions) {
		return fmt.Errorf("snapshot length mismatch: expected=%d actual=%d", len(expected.Positions), len(actual.Positions))
	}
	expectedMap := make(map[model.PositionID]PositionEntry, len(expected.Positions))
	for _, entry := range expected.Positions {
		expectedMap[entry.PositionID] = entry
	}
	for _, entry := range actual.Positions {
		want, ok := expectedMap[entry.PositionID]
		if !ok {
			return fmt.Errorf("snapshot missing position: %s", entry.PositionID)
		}
		if !want.Qty.Equal(entry.Qty) || want.Side != entry.Side {
			return fmt.Errorf("snapshot qty mismatch: position=%s expected=%s %s actual=%s %s",
				entry.PositionID, want.Side, want.Qty, entry.Side, entry.Qty)
		}
		if want.RealizedPnL != entry.RealizedPnL {
			return fmt.Errorf("snapshot pnl mismatch: position=%s expected=%s actual=%s",
				entry.PositionID, want.RealizedPnL, entry.RealizedPnL)
		}
	}
	return nil
}
