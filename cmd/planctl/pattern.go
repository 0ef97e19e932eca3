package main

import (
	"fmt"

	"alcyxob/runplan/internal/planner"

	"github.com/BurntSushi/toml"
)

// patternFile is the TOML layout accepted by --pattern:
//
//	pattern = ["rest", "quality", "easy", "quality", "rest", "long_run", "easy"]
//
//	[long_run]
//	share = 0.3
//	cap = 18
type patternFile struct {
	Pattern []string `toml:"pattern"`
	LongRun struct {
		Share float64 `toml:"share"`
		Cap   float64 `toml:"cap"`
	} `toml:"long_run"`
}

// loadDistributor builds a distributor from a pattern file, or the default
// one when path is empty.
func loadDistributor(path string) (*planner.Distributor, error) {
	if path == "" {
		return planner.DefaultDistributor(), nil
	}
	var f patternFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("failed to read pattern file: %w", err)
	}

	pattern := planner.DefaultPattern
	if len(f.Pattern) > 0 {
		p, err := planner.ParsePattern(f.Pattern)
		if err != nil {
			return nil, err
		}
		pattern = p
	}
	longRun := planner.DefaultLongRunPolicy
	if f.LongRun.Share > 0 {
		longRun.Share = f.LongRun.Share
	}
	if f.LongRun.Cap > 0 {
		longRun.Cap = f.LongRun.Cap
	}
	return planner.NewDistributor(pattern, longRun, planner.DefaultZonePolicy)
}
