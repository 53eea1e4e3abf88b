package audio

import "testing"

func TestFormatFromExtension(t *testing.T) {
	tests := []struct {
		ext         string
		want        Format
		wantOK      bool
		wantEncoder string
		wantMuxer   string
	}{
		{"mp3", FormatMP3, true, "libmp3lame", "mp3"},
		{".MP3", FormatMP3, true, "libmp3lame", "mp3"},
		{"aac", FormatAAC, true, "aac", "adts"},
		{"M4A", FormatAAC, true, "aac", "adts"},
		{"flac", FormatFLAC, true, "flac", "flac"},
		{".Flac", FormatFLAC, true, "flac", "flac"},
		{"wav", FormatWAV, true, "pcm_s16le", "wav"},
		{"WAV", FormatWAV, true, "pcm_s16le", "wav"},
		{"ogg", FormatCopy, false, "copy", ""},
		{"", FormatCopy, false, "copy", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			got, ok := FormatFromExtension(tt.ext)
			if got != tt.want || ok != tt.wantOK {
				t.Fatalf("FormatFromExtension(%q) = %v, %v, want %v, %v", tt.ext, got, ok, tt.want, tt.wantOK)
			}
			if enc := got.EncoderName(); enc != tt.wantEncoder {
				t.Errorf("EncoderName() = %q, want %q", enc, tt.wantEncoder)
			}
			if mux := got.MuxerName(); mux != tt.wantMuxer {
				t.Errorf("MuxerName() = %q, want %q", mux, tt.wantMuxer)
			}
		})
	}
}

func TestFormatFromPathDefaultsToMP3(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"/tmp/clip.wav", FormatWAV},
		{"/tmp/clip.M4A", FormatAAC},
		{"/tmp/clip.ogg", FormatMP3},
		{"/tmp/clip", FormatMP3},
	}

	for _, tt := range tests {
		if got := FormatFromPath(tt.path); got != tt.want {
			t.Errorf("FormatFromPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestFormatSampleFormat(t *testing.T) {
	tests := []struct {
		format Format
		want   SampleFormat
	}{
		{FormatMP3, SampleFmtS16P},
		{FormatAAC, SampleFmtFLTP},
		{FormatFLAC, SampleFmtS16},
		{FormatWAV, SampleFmtS16},
		{FormatCopy, SampleFmtNone},
	}

	for _, tt := range tests {
		if got := tt.format.SampleFormat(); got != tt.want {
			t.Errorf("%v.SampleFormat() = %d, want %d", tt.format, got, tt.want)
		}
	}
}

func TestParseCodec(t *testing.T) {
	tests := []struct {
		name    string
		want    Codec
		format  Format
		wantErr bool
	}{
		{"copy", CodecCopy, FormatCopy, false},
		{"aac", CodecAAC, FormatAAC, false},
		{"libmp3lame", CodecMP3, FormatMP3, false},
		{"mp3", CodecMP3, FormatMP3, false},
		{"flac", CodecFLAC, FormatFLAC, false},
		{"pcm_s16le", CodecPCM, FormatWAV, false},
		{"opus", CodecCopy, FormatCopy, true},
		{"AAC", CodecCopy, FormatCopy, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCodec(tt.name)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCodec(%q) expected error", tt.name)
				}
				if want := "unknown audio codec: " + tt.name; err.Error() != want {
					t.Errorf("error = %q, want %q", err.Error(), want)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCodec(%q) unexpected error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseCodec(%q) = %v, want %v", tt.name, got, tt.want)
			}
			if got.Format() != tt.format {
				t.Errorf("Format() = %v, want %v", got.Format(), tt.format)
			}
		})
	}
}
