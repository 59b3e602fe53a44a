package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestApplyEnvConfig(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name: "applies all valid env vars",
			envVars: map[string]string{
				"DECKTERRA_BASE_URL":        "http://localhost:8080/api/",
				"DECKTERRA_TOTAL":           "500",
				"DECKTERRA_PAGE_SIZE":       "100",
				"DECKTERRA_OVERFETCH_RATIO": "1.5",
				"DECKTERRA_SORT":            "hot",
				"DECKTERRA_MIN_SPACING":     "100ms",
				"DECKTERRA_MAX_CONCURRENCY": "2",
				"DECKTERRA_BACKOFF":         "1s,2s",
				"DECKTERRA_SINK":            "redis",
				"DECKTERRA_REDIS_ADDR":      "redis:6379",
				"DECKTERRA_CACHE":           "true",
				"DECKTERRA_CARDS":           "1",
				"DECKTERRA_LOG_PRETTY":      "1",
			},
			changed: map[string]bool{},
			initial: Config{},
			expected: Config{
				BaseURL:        "http://localhost:8080/api/",
				Total:          500,
				PageSize:       100,
				OverfetchRatio: 1.5,
				Sort:           "hot",
				MinSpacing:     100 * time.Millisecond,
				MaxConcurrency: 2,
				Backoff:        []time.Duration{time.Second, 2 * time.Second},
				Sink:           "redis",
				RedisAddr:      "redis:6379",
				Cache:          true,
				Cards:          true,
				LogPretty:      true,
			},
		},
		{
			name: "respects changed flags",
			envVars: map[string]string{
				"DECKTERRA_SORT":     "hot",
				"DECKTERRA_CATEGORY": "BUDGET",
			},
			changed:  map[string]bool{"sort": true},
			initial:  Config{Sort: "popularity"},
			expected: Config{Sort: "popularity", Category: "BUDGET"},
		},
		{
			name:     "explicit zero total applies",
			envVars:  map[string]string{"DECKTERRA_TOTAL": "0"},
			changed:  map[string]bool{},
			initial:  Config{Total: 100_000},
			expected: Config{Total: 0},
		},
		{
			name:     "handles bool 'false' as false",
			envVars:  map[string]string{"DECKTERRA_CACHE": "false"},
			changed:  map[string]bool{},
			initial:  Config{Cache: true},
			expected: Config{Cache: false},
		},
		{
			name:    "returns error for invalid duration",
			envVars: map[string]string{"DECKTERRA_MIN_SPACING": "not-a-duration"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid total",
			envVars: map[string]string{"DECKTERRA_TOTAL": "-5"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid backoff",
			envVars: map[string]string{"DECKTERRA_BACKOFF": "1s,later"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "returns error for invalid float",
			envVars: map[string]string{"DECKTERRA_OVERFETCH_RATIO": "lots"},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg := tt.initial
			err := ApplyEnvConfig(&cfg, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyEnvConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnvConfig() unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.expected, cfg); diff != "" {
				t.Errorf("ApplyEnvConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
