// Package v1 contains the v1 export format for a recorded session.
package v1

import "time"

// FormatVersion is written into every export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	FormatVersion    int         `json:"formatVersion"`
	ExtensionVersion string      `json:"extensionVersion"`
	Session          SessionInfo `json:"session"`
	EndFrame         uint64      `json:"endFrame"`
	Party            []Frame     `json:"party"`
	Enemy            []Frame     `json:"enemy"`
	Boxes            []Box       `json:"boxes"`
	Battles          [][]any     `json:"battles"`
	Player           *Player     `json:"player,omitempty"`
	Mons             []Mon       `json:"mons"`
}

// SessionInfo identifies the session and cartridge.
type SessionInfo struct {
	ID        string    `json:"id"`
	Started   time.Time `json:"started"`
	Ended     time.Time `json:"ended"`
	GameCode  string    `json:"gameCode"`
	GameTitle string    `json:"gameTitle"`
	Patch     string    `json:"patch,omitempty"`
}

// Frame is a collection as it looked from FrameNum until the next Frame.
// Slots hold one row per position: [personality, species, level, hp, maxHp]
// or nil for an empty position.
type Frame struct {
	FrameNum uint64  `json:"frameNum"`
	Slots    [][]any `json:"slots"`
}

// Box is the last seen content of one PC box.
type Box struct {
	Number   int     `json:"number"`
	FrameNum uint64  `json:"frameNum"`
	Slots    [][]any `json:"slots"`
}

// Player is the last trainer card read.
type Player struct {
	Name      string `json:"name"`
	Female    bool   `json:"female"`
	TrainerID uint16 `json:"trainerId"`
	SecretID  uint16 `json:"secretId"`
	PlayTime  string `json:"playTime"`
	Money     uint32 `json:"money"`
}

// Mon summarizes one individual, keyed by personality, across the session.
type Mon struct {
	Personality uint32   `json:"personality"`
	Species     uint16   `json:"species"`
	SpeciesName string   `json:"speciesName"`
	Nickname    string   `json:"nickname"`
	Types       []string `json:"types"`
	Nature      string   `json:"nature"`
	Shiny       bool     `json:"shiny"`
	FirstFrame  uint64   `json:"firstFrame"`
	LastFrame   uint64   `json:"lastFrame"`
	FirstLevel  int      `json:"firstLevel"`
	LastLevel   int      `json:"lastLevel"`
	Tier        string   `json:"tier,omitempty"`
	Seen        []string `json:"seen"`
}
