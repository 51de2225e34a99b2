package convert

import (
	"encoding/json"
	"fmt"

	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/pkg/core"
)

// SlotToCore restores a core.Slot from its stored row.
func SlotToCore(rec model.SlotRecord) (core.Slot, error) {
	slot := core.Slot{Index: rec.Index, Reason: rec.Reason}
	if len(rec.Entry) == 0 || string(rec.Entry) == "null" {
		return slot, nil
	}
	var e core.Entry
	if err := json.Unmarshal(rec.Entry, &e); err != nil {
		return slot, fmt.Errorf("unmarshal slot %d: %w", rec.Index, err)
	}
	slot.Entry = &e
	return slot, nil
}

// CollectionToCore restores a core.CollectionSnapshot with its slots.
func CollectionToCore(c model.CollectionSnapshot) (core.CollectionSnapshot, error) {
	out := core.CollectionSnapshot{
		Kind:  c.Kind,
		Box:   c.Box,
		Frame: c.Frame,
		Time:  c.Time,
		Count: c.Count,
		Slots: make([]core.Slot, 0, len(c.Slots)),
	}
	for _, rec := range c.Slots {
		s, err := SlotToCore(rec)
		if err != nil {
			return out, err
		}
		out.Slots = append(out.Slots, s)
	}
	return out, nil
}

// SessionToCore converts a stored session back to core.Session.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:      s.ID,
		Started: s.Started,
		Game:    core.GameInfo{Code: s.GameCode, Title: s.GameTitle, Patch: s.Patch},
		Version: s.Version,
	}
}
