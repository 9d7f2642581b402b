package deepgram

import (
	"net/url"
	"testing"

	"github.com/voxmeet/voxmeet/pkg/provider/stt"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Error("expected error for empty apiKey")
	}
	if _, err := New("key"); err != nil {
		t.Errorf("New() error: %v", err)
	}
}

func TestBuildURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts []Option
		cfg  stt.StreamConfig
		want map[string]string
	}{
		{
			name: "defaults",
			cfg:  stt.StreamConfig{},
			want: map[string]string{
				"model":       "nova-3",
				"language":    "en",
				"sample_rate": "16000",
				"encoding":    "linear16",
				"punctuate":   "true",
			},
		},
		{
			name: "config overrides",
			opts: []Option{WithModel("base"), WithLanguage("de-DE")},
			cfg:  stt.StreamConfig{SampleRate: 48000, Channels: 1, Language: "en-US"},
			want: map[string]string{
				"model":       "base",
				"language":    "en-US",
				"sample_rate": "48000",
				"channels":    "1",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New("key", tt.opts...)
			if err != nil {
				t.Fatalf("New() error: %v", err)
			}
			raw, err := p.buildURL(tt.cfg)
			if err != nil {
				t.Fatalf("buildURL() error: %v", err)
			}
			u, err := url.Parse(raw)
			if err != nil {
				t.Fatalf("parse %q: %v", raw, err)
			}
			q := u.Query()
			for k, want := range tt.want {
				if got := q.Get(k); got != want {
					t.Errorf("query %s = %q, want %q", k, got, want)
				}
			}
		})
	}
}
