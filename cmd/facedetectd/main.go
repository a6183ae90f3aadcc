// Command facedetectd is the face-detection/replacement server: it accepts
// connections speaking the framed image protocol, delegates detection and
// compositing to the vision package, and reports live statistics to an
// operator signal.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danmuck/faceguard/internal/config"
	"github.com/danmuck/faceguard/internal/faceserver"
	"github.com/danmuck/faceguard/internal/logging"
	"github.com/danmuck/faceguard/internal/observability"
	"github.com/danmuck/faceguard/internal/stats"
	"github.com/danmuck/faceguard/internal/vision"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath, positional := extractConfigFlag(os.Args[1:])

	serverArgs, err := config.ParseServerArgs(positional)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.ExitServerCmdline
	}

	defaults, meta, err := config.LoadOperational(configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return config.ExitServerCmdline
	}

	logging.Configure(logging.ProfileRuntime, defaults.LogLevel)
	log := logging.Logger()
	for _, key := range meta.Keys() {
		log.Debug().Str("key", key.String()).Msg("operational default overridden")
	}

	if err := vision.PreflightScratchFile(defaults.ScratchFilePath); err != nil {
		log.Error().Err(err).Msg("scratch file is not writable")
		return config.ExitServerScratchFile
	}

	detector, err := vision.NewDetector(defaults.FaceCascadePath, defaults.EyeCascadePath, defaults.ScratchFilePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to load cascade classifiers")
		return config.ExitServerClassifierLoad
	}
	defer detector.Close()

	prefixResponse, err := os.ReadFile(defaults.PrefixResponsePath)
	if err != nil {
		log.Error().Err(err).Msg("failed to read prefix response file")
		return config.ExitServerScratchFile
	}

	st := stats.New()
	metrics := observability.NewServer(defaults.MetricsListenAddr)
	stopMetrics, err := metrics.ServeBackground()
	if err != nil {
		log.Warn().Err(err).Msg("metrics listener failed to start")
	}
	defer stopMetrics()

	srv := faceserver.New(faceserver.Config{
		MaxConnections: serverArgs.ConnectionLimit,
		MaxImageBytes:  serverArgs.MaxImageBytes,
		PrefixResponse: prefixResponse,
	}, detector, st)

	if err := srv.Listen(serverArgs.Port); err != nil {
		log.Error().Err(err).Msg("failed to bind listener")
		return config.ExitServerPortUnavailable
	}
	if err := srv.AnnouncePort(os.Stderr); err != nil {
		log.Error().Err(err).Msg("failed to announce bound port")
		return config.ExitServerPortUnavailable
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	done := make(chan struct{})
	reporter := stats.NewReporter(st, os.Stderr)
	go reporter.Run(done)

	err = srv.Run(ctx)
	close(done)
	if err != nil {
		log.Error().Err(err).Msg("accept loop exited")
		return config.ExitServerPortUnavailable
	}
	return 0
}

// extractConfigFlag pulls an optional leading "--config path" out of args
// without disturbing the positional contract that follows it.
func extractConfigFlag(args []string) (path string, rest []string) {
	for i := 0; i < len(args); i++ {
		if args[i] == "--config" && i+1 < len(args) {
			return args[i+1], append(append([]string{}, args[:i]...), args[i+2:]...)
		}
	}
	return "", args
}
