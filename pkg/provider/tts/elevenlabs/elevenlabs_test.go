package elevenlabs

import "testing"

func TestNewValidation(t *testing.T) {
	t.Parallel()

	if _, err := New(""); err == nil {
		t.Error("New with empty api key succeeded, want error")
	}

	p, err := New("el-test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel {
		t.Errorf("model = %q, want default %q", p.model, defaultModel)
	}
	if p.outputFormat != defaultOutputFmt {
		t.Errorf("output format = %q, want default %q", p.outputFormat, defaultOutputFmt)
	}
}

func TestOptionsOverrideDefaults(t *testing.T) {
	t.Parallel()

	p, err := New("el-test", WithModel("eleven_turbo_v2"), WithOutputFormat("pcm_24000"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != "eleven_turbo_v2" {
		t.Errorf("model = %q", p.model)
	}
	if p.outputFormat != "pcm_24000" {
		t.Errorf("output format = %q", p.outputFormat)
	}
}
