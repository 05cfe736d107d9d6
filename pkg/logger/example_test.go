package logger_test

import (
	"os"

	"github.com/brinkline/rtspull/pkg/logger"
)

// Example showing basic logger usage
func ExampleLogger_basic() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatText

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	log.Info("application started", "version", "1.0.0")
	log.Warn("deprecated option used", "option", "legacy_url")
	log.Error("failed to connect", "error", "connection timeout")
}

// Example showing debug category usage
func ExampleLogger_categories() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelDebug
	cfg.EnableCategory(logger.DebugDemux)
	cfg.EnableCategory(logger.DebugSession)

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	log.DebugRTPPacket(12345, 90000, 96, 1200)
	log.DebugSession("state transition", "from", "DESCRIBED", "to", "PLAYING")

	log.DebugDemux("framed interleaved chunk", "channel", 0, "len", 1200)
}

// Example showing JSON format output
func ExampleLogger_json() {
	cfg := logger.NewConfig()
	cfg.Level = logger.LevelInfo
	cfg.Format = logger.FormatJSON
	cfg.OutputFile = "rtspull.json"

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()
	defer os.Remove("rtspull.json")

	log.Info("session started",
		"url", "rtsp://camera.local/stream",
		"state", "CONNECTED")

	// Output will be in JSON format:
	// {"time":"...","level":"INFO","msg":"session started","url":"rtsp://camera.local/stream","state":"CONNECTED"}
}

// Example showing conditional debug logging
func ExampleLogger_conditional() {
	cfg := logger.NewConfig()
	cfg.EnableCategory(logger.DebugDepacketize)

	log, err := logger.New(cfg)
	if err != nil {
		panic(err)
	}
	defer log.Close()

	// Category methods automatically check if enabled; zero cost if
	// disabled.
	log.DebugBitstream(96, 1024, make([]byte, 1024))
	log.DebugDemux("frame dropped", "reason", "partial")
}
