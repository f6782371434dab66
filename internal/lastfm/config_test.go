package lastfm

import (
	"errors"
	"testing"
	"time"

	"github.com/justestif/daily-song/internal/shared"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid API key",
			cfg:  Config{APIKey: "abc123def456abc123def456abc12345"},
		},
		{
			name:    "missing API key",
			cfg:     Config{},
			wantErr: true,
		},
		{
			name:    "negative timeout",
			cfg:     Config{APIKey: "k", Timeout: -time.Second},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMissingAPIKeyIsInvalidInput(t *testing.T) {
	if !errors.Is(Config{}.Validate(), shared.ErrInvalidInput) {
		t.Error("missing API key should be an invalid input error")
	}
}
