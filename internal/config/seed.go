// Package config holds the file-based configuration of the import tool.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptySeed is returned when a seed file lists no channels.
var ErrEmptySeed = errors.New("seed file lists no channels")

// Seed is the channel list read by cmd/import.
//
//	channels:
//	  - https://www.youtube.com/@example
//	  - https://www.youtube.com/channel/UCxxxxxxxxxxxxxxxxxxxxxx
type Seed struct {
	Channels []string `yaml:"channels"`
}

// sampleChannels is the built-in list imported when no seed file is given.
var sampleChannels = []string{
	"https://www.youtube.com/@JOJOCARTOON-p7p",
	"https://www.youtube.com/@Rasingcartoon",
	"https://www.youtube.com/@RonaldoNo1-j6j",
	"https://www.youtube.com/@Iconiccartoon-y5i",
	"https://www.youtube.com/@ilukpaaaa",
	"https://www.youtube.com/@Fibzy%E0%B8%88%E0%B8%B0%E0%B9%82%E0%B8%9A%E0%B8%99%E0%B8%9A%E0%B8%B4%E0%B8%99",
	"https://www.youtube.com/@XcghFs",
	"https://www.youtube.com/@Rolando7k-z9d",
	"https://www.youtube.com/@ttsundayxremix468",
	"https://www.youtube.com/@%E0%B8%84%E0%B8%99%E0%B8%95%E0%B8%B7%E0%B9%88%E0%B8%99%E0%B8%9A%E0%B8%B21",
	"https://www.youtube.com/@LyricsxThailand7",
}

// SampleSeed returns a copy of the built-in sample list.
func SampleSeed() *Seed {
	return &Seed{Channels: append([]string(nil), sampleChannels...)}
}

// LoadSeed reads and normalizes a YAML seed file. The path comes from the
// command line.
func LoadSeed(path string) (*Seed, error) {
	// #nosec G304 -- path is an operator-supplied CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes a seed document, drops blank entries and repeats, and
// keeps the first-seen order.
func ParseSeed(data []byte) (*Seed, error) {
	var raw Seed
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	seen := make(map[string]struct{}, len(raw.Channels))
	out := make([]string, 0, len(raw.Channels))
	for _, ref := range raw.Channels {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	if len(out) == 0 {
		return nil, ErrEmptySeed
	}
	return &Seed{Channels: out}, nil
}
