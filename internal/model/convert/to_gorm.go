// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/monreader/extension/internal/model"
	"github.com/monreader/extension/pkg/core"
)

// movesToJSON converts the move name array to datatypes.JSON, skipping empty slots.
func movesToJSON(names [4]string) datatypes.JSON {
	moves := make([]string, 0, len(names))
	for _, n := range names {
		if n != "" {
			moves = append(moves, n)
		}
	}
	data, _ := json.Marshal(moves)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		ID:        s.ID,
		Started:   s.Started,
		GameCode:  s.Game.Code,
		GameTitle: s.Game.Title,
		Patch:     s.Game.Patch,
		Version:   s.Version,
	}
}

// CoreToSlot converts one slot. Empty and failed slots keep only their
// index and reason.
func CoreToSlot(sessionID string, s core.Slot) (model.SlotRecord, error) {
	rec := model.SlotRecord{
		SessionID: sessionID,
		Index:     s.Index,
		Reason:    s.Reason,
		Moves:     datatypes.JSON("[]"),
		Entry:     datatypes.JSON("null"),
	}
	if s.Entry == nil {
		return rec, nil
	}
	e := s.Entry
	entry, err := json.Marshal(e)
	if err != nil {
		return rec, fmt.Errorf("marshal slot %d: %w", s.Index, err)
	}
	rec.Personality = e.Personality
	rec.OTID = e.OTID
	rec.Species = e.Species
	rec.SpeciesName = e.SpeciesName
	rec.Nickname = e.Nickname
	rec.Level = e.Level
	rec.CurrentHP = e.CurrentHP
	rec.MaxHP = e.Stats.HP
	rec.Shiny = e.Shiny
	rec.ChecksumValid = e.ChecksumValid
	rec.Moves = movesToJSON(e.MoveNames)
	rec.Entry = datatypes.JSON(entry)
	return rec, nil
}

// CoreToCollection converts a snapshot and its slots.
func CoreToCollection(sessionID string, c core.CollectionSnapshot) (model.CollectionSnapshot, error) {
	out := model.CollectionSnapshot{
		SessionID: sessionID,
		Kind:      c.Kind,
		Box:       c.Box,
		Frame:     c.Frame,
		Time:      c.Time,
		Count:     c.Count,
		Filled:    c.Filled(),
		Slots:     make([]model.SlotRecord, 0, len(c.Slots)),
	}
	for _, s := range c.Slots {
		rec, err := CoreToSlot(sessionID, s)
		if err != nil {
			return out, err
		}
		out.Slots = append(out.Slots, rec)
	}
	return out, nil
}

// CoreToBattle converts a core.BattleSnapshot to a GORM model.BattleEvent.
func CoreToBattle(sessionID string, b core.BattleSnapshot) model.BattleEvent {
	return model.BattleEvent{
		SessionID: sessionID,
		Frame:     b.Frame,
		Time:      b.Time,
		Flags:     b.Flags,
		InBattle:  b.InBattle,
		Wild:      b.Wild,
		Trainer:   b.Trainer,
		Double:    b.Double,
		Link:      b.Link,
	}
}

// CoreToPlayer converts a core.PlayerSnapshot. Play time is stored in seconds.
func CoreToPlayer(sessionID string, p core.PlayerSnapshot) model.PlayerSnapshot {
	return model.PlayerSnapshot{
		SessionID: sessionID,
		Frame:     p.Frame,
		Time:      p.Time,
		Name:      p.Name,
		Female:    p.Female,
		TrainerID: p.TrainerID,
		SecretID:  p.SecretID,
		PlayTime:  uint32(p.PlayHours)*3600 + uint32(p.PlayMinutes)*60 + uint32(p.PlaySeconds),
		Money:     p.Money,
	}
}
