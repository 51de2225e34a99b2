package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/monreader/extension/internal/layout"
	"github.com/monreader/extension/internal/memory"
	"github.com/monreader/extension/internal/romdata"
	"github.com/monreader/extension/internal/tracker"
	"github.com/monreader/extension/internal/util"
	"github.com/monreader/extension/pkg/core"
)

// decodeOptions are the decode command's flags.
type decodeOptions struct {
	IWRAM, EWRAM, ROM string
	Overrides         string
	Boxes             bool
	Strict            bool
	Rate              bool
}

// decodeOutput is what decode prints.
type decodeOutput struct {
	Game      *core.GameInfo             `json:"game,omitempty"`
	Party     *core.CollectionSnapshot   `json:"party,omitempty"`
	Enemy     *core.CollectionSnapshot   `json:"enemy,omitempty"`
	Boxes     []*core.CollectionSnapshot `json:"boxes,omitempty"`
	Player    *core.PlayerSnapshot       `json:"player,omitempty"`
	Battle    *core.BattleSnapshot       `json:"battle,omitempty"`
	Reference romdata.LoadReport         `json:"reference"`
	Reads     memory.Stats               `json:"reads"`
}

func runDecode(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	var opts decodeOptions
	dir := fs.String("dir", "", "directory holding iwram.bin, ewram.bin and rom.gba")
	fs.StringVar(&opts.IWRAM, "iwram", "", "IWRAM dump")
	fs.StringVar(&opts.EWRAM, "ewram", "", "EWRAM dump")
	fs.StringVar(&opts.ROM, "rom", "", "ROM image")
	fs.StringVar(&opts.Overrides, "override", "", "address overrides, e.g. partyBase=0x020244EC")
	fs.BoolVar(&opts.Boxes, "boxes", true, "decode the PC boxes")
	fs.BoolVar(&opts.Strict, "strict", false, "drop records whose checksum does not match")
	fs.BoolVar(&opts.Rate, "rate", true, "attach tier ratings")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir != "" {
		opts.IWRAM, opts.EWRAM, opts.ROM = dumpPaths(*dir)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	out, err := decode(opts, logger)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// dumpPaths returns the dump files decode reads from dir.
func dumpPaths(dir string) (iwram, ewram, rom string) {
	return filepath.Join(dir, "iwram.bin"), filepath.Join(dir, "ewram.bin"), filepath.Join(dir, "rom.gba")
}

// decode reads every collection out of memory dumps once.
func decode(opts decodeOptions, logger *slog.Logger) (*decodeOutput, error) {
	if opts.IWRAM == "" || opts.EWRAM == "" {
		return nil, errors.New("decode needs at least -iwram and -ewram")
	}
	img, err := memory.LoadImageFiles(opts.IWRAM, opts.EWRAM, opts.ROM)
	if err != nil {
		return nil, err
	}
	reader, err := memory.NewReader(img, memory.DefaultRegions(memory.DefaultEWRAMWindow), logger)
	if err != nil {
		return nil, fmt.Errorf("creating memory reader: %w", err)
	}

	table := layout.Emerald()
	if opts.Overrides != "" {
		overrides, err := util.ParseAddressMap(opts.Overrides)
		if err != nil {
			return nil, err
		}
		if table, err = table.Apply(overrides); err != nil {
			return nil, fmt.Errorf("applying address overrides: %w", err)
		}
	}

	ref := romdata.New(reader, table, logger)
	t, err := tracker.New(reader, ref, table, tracker.Config{Strict: opts.Strict, Rate: opts.Rate}, logger)
	if err != nil {
		return nil, err
	}
	t.SetFrame(1)

	out := &decodeOutput{Reference: ref.Load()}
	if g, ok := t.Game(); ok {
		out.Game = &g
	}
	if p, ok := t.Party(); ok {
		out.Party = p
	}
	if e, ok := t.EnemyParty(); ok {
		out.Enemy = e
	}
	if opts.Boxes {
		out.Boxes = t.Boxes()
	}
	if p, ok := t.Player(); ok {
		out.Player = p
	}
	if b, ok := t.Battle(); ok {
		out.Battle = b
	}
	out.Reads = reader.Stats()
	return out, nil
}
