package audio

import (
	"testing"
)

// pcm16 builds little-endian PCM bytes from int16 samples.
func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

func TestStereoToMono(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   []byte
		want []byte
	}{
		{
			name: "averages L and R",
			in:   pcm16(100, 200, -50, 50),
			want: pcm16(150, 0),
		},
		{
			name: "empty input",
			in:   nil,
			want: pcm16(),
		},
		{
			name: "clamps at int16 max",
			in:   pcm16(32767, 32767),
			want: pcm16(32767),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StereoToMono(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("length = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("byte %d = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestMonoToStereo(t *testing.T) {
	t.Parallel()

	got := MonoToStereo(pcm16(1000, -1000))
	want := pcm16(1000, 1000, -1000, -1000)
	if len(got) != len(want) {
		t.Fatalf("length = %d, want %d", len(got), len(want))
	}
	for i := range got {
		if got[i] != want[i] {
			t.Errorf("byte %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestResampleMono16(t *testing.T) {
	t.Parallel()

	t.Run("same rate is identity", func(t *testing.T) {
		in := pcm16(1, 2, 3, 4)
		got := ResampleMono16(in, 16000, 16000)
		if &got[0] != &in[0] {
			t.Error("expected input slice to be returned unchanged")
		}
	})

	t.Run("halves sample count downsampling 48k to 24k", func(t *testing.T) {
		in := make([]byte, 960*2)
		got := ResampleMono16(in, 48000, 24000)
		if len(got) != 480*2 {
			t.Errorf("output samples = %d, want %d", len(got)/2, 480)
		}
	})

	t.Run("triples down to a third at 48k to 16k", func(t *testing.T) {
		in := make([]byte, 960*2)
		got := ResampleMono16(in, 48000, 16000)
		if len(got) != 320*2 {
			t.Errorf("output samples = %d, want %d", len(got)/2, 320)
		}
	})
}

func TestConverter(t *testing.T) {
	t.Parallel()

	t.Run("fast path returns frame unchanged", func(t *testing.T) {
		conv := Converter{Target: Format{SampleRate: 16000, Channels: 1}}
		in := Frame{PCM: pcm16(1, 2), SampleRate: 16000, Channels: 1}
		got := conv.Convert(in)
		if &got.PCM[0] != &in.PCM[0] {
			t.Error("expected zero-copy pass-through for matching format")
		}
	})

	t.Run("stereo 48k to mono 16k", func(t *testing.T) {
		conv := Converter{Target: Format{SampleRate: 16000, Channels: 1}}
		in := Frame{PCM: make([]byte, 960*4), SampleRate: 48000, Channels: 2}
		got := conv.Convert(in)
		if got.SampleRate != 16000 || got.Channels != 1 {
			t.Fatalf("format = %dHz/%dch, want 16000Hz/1ch", got.SampleRate, got.Channels)
		}
		if len(got.PCM) != 320*2 {
			t.Errorf("output samples = %d, want %d", len(got.PCM)/2, 320)
		}
	})

	t.Run("odd byte count drops data", func(t *testing.T) {
		conv := Converter{Target: Format{SampleRate: 16000, Channels: 1}}
		got := conv.Convert(Frame{PCM: []byte{1, 2, 3}, SampleRate: 48000, Channels: 1})
		if len(got.PCM) != 0 {
			t.Errorf("expected dropped PCM, got %d bytes", len(got.PCM))
		}
	})
}
