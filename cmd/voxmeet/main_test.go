package main

import (
	"context"
	"testing"

	"github.com/voxmeet/voxmeet/internal/config"
	"github.com/voxmeet/voxmeet/internal/meetings"
	"github.com/voxmeet/voxmeet/internal/resilience"
	"github.com/voxmeet/voxmeet/internal/store"
)

func testConfig() *config.Config {
	return &config.Config{
		Providers: config.ProvidersConfig{
			STT: config.ProviderEntry{Name: "deepgram", APIKey: "dg-key"},
			TTS: config.ProviderEntry{Name: "elevenlabs", APIKey: "el-key", VoiceID: "voice-1"},
			LLM: config.ProviderEntry{Name: "openai", APIKey: "oa-key", Model: "gpt-4o-mini"},
		},
	}
}

func TestBuildProvidersWrapsBackendsInFallbackGroups(t *testing.T) {
	t.Parallel()

	sttP, ttsP, voice, llmP, err := buildProviders(testConfig())
	if err != nil {
		t.Fatalf("buildProviders: %v", err)
	}

	if _, ok := sttP.(*resilience.STTFallback); !ok {
		t.Errorf("stt provider is %T, want *resilience.STTFallback", sttP)
	}
	if _, ok := ttsP.(*resilience.TTSFallback); !ok {
		t.Errorf("tts provider is %T, want *resilience.TTSFallback", ttsP)
	}
	if _, ok := llmP.(*resilience.LLMFallback); !ok {
		t.Errorf("llm provider is %T, want *resilience.LLMFallback", llmP)
	}
	if voice.ID != "voice-1" {
		t.Errorf("voice.ID = %q, want voice-1", voice.ID)
	}
}

func TestBuildProvidersSecondaryLLM(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Providers.LLMFallback = config.ProviderEntry{
		Name: "workersai", APIKey: "wa-key", AccountID: "acct-1",
	}
	if _, _, _, _, err := buildProviders(cfg); err != nil {
		t.Fatalf("buildProviders with llm_fallback: %v", err)
	}

	cfg.Providers.LLMFallback.AccountID = ""
	if _, _, _, _, err := buildProviders(cfg); err == nil {
		t.Fatal("buildProviders accepted a workersai fallback without an account id")
	}
}

func TestHealthCheckersTrackConfiguredBackends(t *testing.T) {
	t.Parallel()

	transcripts, err := store.Open(context.Background(), "")
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}

	names := func(cfg *config.Config, directory *meetings.Client) []string {
		var got []string
		for _, c := range healthCheckers(cfg, transcripts, directory) {
			got = append(got, c.Name)
		}
		return got
	}

	cfg := testConfig()
	if got := names(cfg, meetings.New("", "", nil)); len(got) != 1 || got[0] != "config" {
		t.Errorf("checkers without backends = %v, want [config]", got)
	}

	got := names(cfg, meetings.New("http://directory.local", "tok", nil))
	if len(got) != 2 || got[1] != "meetings" {
		t.Errorf("checkers with directory = %v, want [config meetings]", got)
	}
}
