package logger

import (
	"flag"
	"fmt"
	"strings"
)

// Flags holds all logging-related command-line flags
type Flags struct {
	LogLevel         string
	LogFormat        string
	LogFile          string
	DebugDemux       bool
	DebugCorrelator  bool
	DebugSession     bool
	DebugDepacketize bool
	DebugTimestamp   bool
	DebugAll         bool
}

// RegisterFlags registers logging flags with the given FlagSet
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}

	fs.StringVar(&f.LogLevel, "log-level", "info",
		"Log level: debug, info, warn, error")
	fs.StringVar(&f.LogLevel, "l", "info",
		"Log level (shorthand)")

	fs.StringVar(&f.LogFormat, "log-format", "text",
		"Log output format: text, json")

	fs.StringVar(&f.LogFile, "log-file", "",
		"Log output file path (default: stdout)")
	fs.StringVar(&f.LogFile, "o", "",
		"Log output file path (shorthand)")

	fs.BoolVar(&f.DebugDemux, "debug-demux", false,
		"Enable RTSP demuxer framing debugging")
	fs.BoolVar(&f.DebugCorrelator, "debug-correlator", false,
		"Enable CSeq correlation debugging")
	fs.BoolVar(&f.DebugSession, "debug-session", false,
		"Enable session state-machine debugging")
	fs.BoolVar(&f.DebugDepacketize, "debug-depacketize", false,
		"Enable RTP depacketizer debugging (bitstream prefix, sizes)")
	fs.BoolVar(&f.DebugTimestamp, "debug-timestamp", false,
		"Enable RTP timestamp normalisation debugging")
	fs.BoolVar(&f.DebugAll, "debug-all", false,
		"Enable all debug categories")

	return f
}

// ToConfig converts Flags to a logger Config
func (f *Flags) ToConfig() (*Config, error) {
	cfg := NewConfig()

	level, err := ParseLevel(f.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	format, err := ParseFormat(f.LogFormat)
	if err != nil {
		return nil, err
	}
	cfg.Format = format

	cfg.OutputFile = f.LogFile

	if f.DebugAll {
		cfg.EnableCategory(DebugAll)
		cfg.Level = LevelDebug
	} else {
		if f.DebugDemux {
			cfg.EnableCategory(DebugDemux)
			cfg.Level = LevelDebug
		}
		if f.DebugCorrelator {
			cfg.EnableCategory(DebugCorrelator)
			cfg.Level = LevelDebug
		}
		if f.DebugSession {
			cfg.EnableCategory(DebugSession)
			cfg.Level = LevelDebug
		}
		if f.DebugDepacketize {
			cfg.EnableCategory(DebugDepacketize)
			cfg.Level = LevelDebug
		}
		if f.DebugTimestamp {
			cfg.EnableCategory(DebugTimestamp)
			cfg.Level = LevelDebug
		}
	}

	return cfg, nil
}

// PrintUsageExamples prints usage examples for logging flags
func PrintUsageExamples() {
	examples := `
Logging Examples:

  Basic usage (INFO level, text format to stdout):
    ./rtspull -url rtsp://camera.local/stream

  Enable DEBUG level:
    ./rtspull --log-level debug
    ./rtspull -l debug

  Log to file:
    ./rtspull --log-file rtspull.log
    ./rtspull -o rtspull.log

  JSON format for structured logging:
    ./rtspull --log-format json -o rtspull.json

  Debug the session state machine only:
    ./rtspull --debug-session

  Debug multiple categories:
    ./rtspull --debug-demux --debug-correlator

  Debug everything:
    ./rtspull --debug-all -o debug.log

  Production logging (WARN level, JSON to file):
    ./rtspull -l warn --log-format json -o production.log
`
	fmt.Println(examples)
}

// String returns a string representation of enabled flags
func (f *Flags) String() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("level=%s", f.LogLevel))
	parts = append(parts, fmt.Sprintf("format=%s", f.LogFormat))

	if f.LogFile != "" {
		parts = append(parts, fmt.Sprintf("output=%s", f.LogFile))
	} else {
		parts = append(parts, "output=stdout")
	}

	var debugCategories []string
	if f.DebugAll {
		debugCategories = append(debugCategories, "all")
	} else {
		if f.DebugDemux {
			debugCategories = append(debugCategories, "demux")
		}
		if f.DebugCorrelator {
			debugCategories = append(debugCategories, "correlator")
		}
		if f.DebugSession {
			debugCategories = append(debugCategories, "session")
		}
		if f.DebugDepacketize {
			debugCategories = append(debugCategories, "depacketize")
		}
		if f.DebugTimestamp {
			debugCategories = append(debugCategories, "timestamp")
		}
	}

	if len(debugCategories) > 0 {
		parts = append(parts, fmt.Sprintf("debug=[%s]", strings.Join(debugCategories, ",")))
	}

	return strings.Join(parts, " ")
}
