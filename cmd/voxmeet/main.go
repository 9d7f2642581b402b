// Command voxmeet runs the meeting assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voxmeet/voxmeet/internal/agent"
	"github.com/voxmeet/voxmeet/internal/config"
	"github.com/voxmeet/voxmeet/internal/health"
	"github.com/voxmeet/voxmeet/internal/meetings"
	"github.com/voxmeet/voxmeet/internal/observe"
	"github.com/voxmeet/voxmeet/internal/resilience"
	"github.com/voxmeet/voxmeet/internal/server"
	"github.com/voxmeet/voxmeet/internal/store"
	"github.com/voxmeet/voxmeet/pkg/provider/llm"
	"github.com/voxmeet/voxmeet/pkg/provider/llm/openai"
	"github.com/voxmeet/voxmeet/pkg/provider/llm/workersai"
	"github.com/voxmeet/voxmeet/pkg/provider/stt"
	"github.com/voxmeet/voxmeet/pkg/provider/stt/deepgram"
	"github.com/voxmeet/voxmeet/pkg/provider/tts"
	"github.com/voxmeet/voxmeet/pkg/provider/tts/elevenlabs"
	"github.com/voxmeet/voxmeet/pkg/transport"
	"github.com/voxmeet/voxmeet/pkg/transport/rtk"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxmeet: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxmeet: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxmeet starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// closers run in reverse order during shutdown.
	var closers []func(context.Context) error
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](shutdownCtx); err != nil {
				slog.Warn("shutdown step failed", "err", err)
			}
		}
	}()

	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxmeet"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	closers = append(closers, otelShutdown)

	transcripts, err := store.Open(ctx, cfg.Store.PostgresDSN)
	if err != nil {
		slog.Error("failed to open transcript store", "err", err)
		return 1
	}
	closers = append(closers, func(context.Context) error { transcripts.Close(); return nil })

	sttProvider, ttsProvider, voice, llmProvider, err := buildProviders(cfg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	directory := meetings.New(cfg.Meetings.BaseURL, cfg.Meetings.APIToken, logger)

	registry := server.NewRegistry(func() *agent.Session {
		return agent.NewSession(agent.Deps{
			STT:   sttProvider,
			TTS:   ttsProvider,
			Voice: voice,
			LLM:   llmProvider,
			NewTransport: func(meetingID, authToken, agentID, agentName string) (transport.Transport, error) {
				return rtk.New(rtk.Config{
					GatewayURL: cfg.Transport.GatewayURL,
					MeetingID:  meetingID,
					AuthToken:  authToken,
					AgentID:    agentID,
					AgentName:  agentName,
				})
			},
			Transcripts: transcripts,
			Logger:      logger,
		})
	})

	router := server.NewRouter(server.RouterConfig{
		Registry:         registry,
		Directory:        directory,
		WebhookLifecycle: cfg.Server.WebhookLifecycle,
		StaticDir:        cfg.Server.StaticDir,
		Logger:           logger,
	})

	srv := server.New(server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Router:     router,
		Checkers:   healthCheckers(cfg, transcripts, directory),
		Logger:     logger,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	slog.Info("server ready — press Ctrl+C to shut down")

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received, stopping…")
	case err := <-errCh:
		if err != nil {
			slog.Error("server error", "err", err)
			return 1
		}
		return 0
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// buildProviders instantiates the speech and completion backends named in
// the config. Every backend is wrapped in a circuit-breaking fallback group
// so a flapping provider is rejected fast instead of hammered; a configured
// llm_fallback entry becomes the completion group's secondary.
func buildProviders(cfg *config.Config) (stt.Provider, tts.Provider, tts.Voice, llm.Provider, error) {
	var voice tts.Voice

	sttPrimary, err := buildSTT(cfg.Providers.STT)
	if err != nil {
		return nil, nil, voice, nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	sttGroup := resilience.NewSTTFallback(sttPrimary, cfg.Providers.STT.Name, resilience.FallbackConfig{})

	ttsPrimary, err := buildTTS(cfg.Providers.TTS)
	if err != nil {
		return nil, nil, voice, nil, fmt.Errorf("create tts provider %q: %w", cfg.Providers.TTS.Name, err)
	}
	ttsGroup := resilience.NewTTSFallback(ttsPrimary, cfg.Providers.TTS.Name, resilience.FallbackConfig{})
	voice = tts.Voice{ID: cfg.Providers.TTS.VoiceID}

	primary, err := buildLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, voice, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	llmGroup := resilience.NewLLMFallback(primary, cfg.Providers.LLM.Name, resilience.FallbackConfig{})

	if name := cfg.Providers.LLMFallback.Name; name != "" {
		secondary, err := buildLLM(cfg.Providers.LLMFallback)
		if err != nil {
			return nil, nil, voice, nil, fmt.Errorf("create llm fallback provider %q: %w", name, err)
		}
		llmGroup.AddFallback(name, secondary)
		slog.Info("llm fallback configured", "primary", cfg.Providers.LLM.Name, "secondary", name)
	}

	slog.Info("providers created",
		"stt", cfg.Providers.STT.Name,
		"tts", cfg.Providers.TTS.Name,
		"llm", cfg.Providers.LLM.Name,
	)
	return sttGroup, ttsGroup, voice, llmGroup, nil
}

func buildSTT(entry config.ProviderEntry) (stt.Provider, error) {
	var opts []deepgram.Option
	if entry.Model != "" {
		opts = append(opts, deepgram.WithModel(entry.Model))
	}
	if entry.BaseURL != "" {
		opts = append(opts, deepgram.WithEndpoint(entry.BaseURL))
	}
	return deepgram.New(entry.APIKey, opts...)
}

func buildTTS(entry config.ProviderEntry) (tts.Provider, error) {
	var opts []elevenlabs.Option
	if entry.Model != "" {
		opts = append(opts, elevenlabs.WithModel(entry.Model))
	}
	return elevenlabs.New(entry.APIKey, opts...)
}

func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	switch entry.Name {
	case "workersai":
		var opts []workersai.Option
		if entry.Model != "" {
			opts = append(opts, workersai.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, workersai.WithBaseURL(entry.BaseURL))
		}
		return workersai.New(entry.AccountID, entry.APIKey, opts...)
	default:
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	}
}

// healthCheckers assembles the readiness probes: config coherence plus
// connectivity to whichever optional backends are configured.
func healthCheckers(cfg *config.Config, transcripts *store.TranscriptLog, directory *meetings.Client) []health.Checker {
	checkers := []health.Checker{
		{
			Name:  "config",
			Check: func(context.Context) error { return config.Validate(cfg) },
		},
	}
	if transcripts.Enabled() {
		checkers = append(checkers, health.Checker{
			Name:  "store",
			Check: transcripts.Ping,
		})
	}
	if directory.Enabled() {
		checkers = append(checkers, health.Checker{
			Name:  "meetings",
			Check: directory.Ping,
		})
	}
	return checkers
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
