package logging

import (
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/calm3366/bond-portfolio/internal/config"
)

type levelSink struct {
	levels []zerolog.Level
}

func (s *levelSink) Write(p []byte) (int, error) {
	return len(p), nil
}

func (s *levelSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s.levels = append(s.levels, level)
	return len(p), nil
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNew_FeedsSinksAboveLevel(t *testing.T) {
	sink := &levelSink{}
	logger := New(config.LoggingConfig{
		Level:      "warn",
		File:       filepath.Join(t.TempDir(), "logs", "app.log"),
		MaxSizeMB:  1,
		MaxBackups: 1,
		MaxAgeDays: 1,
	}, sink)

	logger.Info().Msg("filtered")
	logger.Warn().Msg("kept")
	logger.Error().Msg("kept")

	if len(sink.levels) != 2 {
		t.Fatalf("Expected sink to receive two entries, got %d", len(sink.levels))
	}
	if sink.levels[1] != zerolog.ErrorLevel {
		t.Errorf("Expected second entry at error level, got %v", sink.levels[1])
	}
}
