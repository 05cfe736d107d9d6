package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/brinkline/rtspull/pkg/config"
	"github.com/brinkline/rtspull/pkg/logger"
	"github.com/brinkline/rtspull/pkg/rtp"
	"github.com/brinkline/rtspull/pkg/rtsp"
	"github.com/brinkline/rtspull/pkg/sdp"
	"github.com/brinkline/rtspull/sink/webrtcsink"
)

func main() {
	fs := flag.NewFlagSet("rtspull", flag.ExitOnError)
	logFlags := logger.RegisterFlags(fs)

	envPath := fs.String("config", "", "path to a key=value config file (overrides -url/env)")
	urlFlag := fs.String("url", "", "RTSP source URL (comma-separated for fallback candidates)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "RTSP pull client\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		logger.PrintUsageExamples()
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logConfig, err := logFlags.ToConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error configuring logger: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(logConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	logger.SetDefault(log)

	log.Info("starting rtspull", "log_config", logFlags.String())

	cfg, err := loadConfig(*envPath, *urlFlag)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	log.Info("configuration loaded", "url_list", cfg.URLList)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	sink, err := webrtcsink.New(log.Logger)
	if err != nil {
		log.Error("failed to create webrtc sink", "error", err)
		os.Exit(1)
	}
	defer sink.Close()

	// Reconnect attempts are rate-limited rather than retried in a tight
	// loop, per the "no automatic retry at this layer" note in spec §4.3
	// — the limiter lives in this command, not in the session itself.
	limiter := rate.NewLimiter(rate.Every(5*time.Second), 1)

	urlIdx := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return // context cancelled
		}

		candidates := rotateURLs(cfg.URLList, urlIdx)
		if err := runOnce(ctx, cfg, candidates, sink, log); err != nil {
			log.Error("session ended", "error", err)
		}
		urlIdx = (urlIdx + 1) % len(cfg.URLList)

		if ctx.Err() != nil {
			log.Info("shutdown complete")
			return
		}
	}
}

// rotateURLs returns cfg.URLList starting at idx and wrapping around,
// so each reconnect attempt builds a fresh session against the next
// url_list candidate rather than always retrying the first.
func rotateURLs(urls []string, idx int) []string {
	idx %= len(urls)
	rotated := make([]string, len(urls))
	copy(rotated, urls[idx:])
	copy(rotated[len(urls)-idx:], urls[:idx])
	return rotated
}

func loadConfig(envPath, urlFlag string) (*config.Config, error) {
	if envPath != "" {
		return config.Load(envPath)
	}
	if urlFlag != "" {
		cfg := &config.Config{
			URLList:        strings.Split(urlFlag, ","),
			ConnectTimeout: 3 * time.Second,
			RequestTimeout: 3 * time.Second,
			RecvBufferSize: 65535,
			UserAgent:      "rtspull/1.0",
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return config.FromEnv()
}

// runOnce drives one session lifecycle end to end: connect through
// DESCRIBE/SETUP, PLAY, then pump ProcessMediaPacket until failure or
// shutdown.
func runOnce(ctx context.Context, cfg *config.Config, urlList []string, sink *webrtcsink.Sink, log *logger.Logger) error {
	sessCfg := rtsp.Config{
		URLList:        urlList,
		ConnectTimeout: cfg.ConnectTimeout,
		RequestTimeout: cfg.RequestTimeout,
		RecvBufferSize: cfg.RecvBufferSize,
		UserAgent:      cfg.UserAgent,
	}

	sess := rtsp.New(sessCfg, &sdp.PionParser{}, sink, log)

	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}
	log.Info("session started", "state", sess.State().String())

	for _, track := range sess.Tracks() {
		format, packetType := rtp.OutputFor(track.Codec)
		if err := sink.AddTrack(track.ID, packetType, format); err != nil {
			log.Warn("failed to add outbound track", "track_id", track.ID, "error", err)
		}
	}

	if err := sess.Play(); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	log.Info("playing", "metrics", sess.Metrics())

	done := make(chan struct{})
	go func() {
		<-ctx.Done()
		_ = sess.Stop()
		close(done)
	}()

	for {
		switch sess.ProcessMediaPacket() {
		case rtsp.Success:
		case rtsp.TryAgain:
			time.Sleep(5 * time.Millisecond)
		case rtsp.Failure:
			select {
			case <-done:
			default:
			}
			return fmt.Errorf("process_media_packet: state %s", sess.State().String())
		}

		select {
		case <-done:
			return nil
		default:
		}
	}
}
