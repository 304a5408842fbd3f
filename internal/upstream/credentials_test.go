package upstream

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestSelectMode(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantMode Mode
		wantErr  bool
	}{
		{
			name:     "hosted only",
			env:      map[string]string{EnvMeetbotAPIKey: "mb-key"},
			wantMode: ModeHosted,
		},
		{
			name:     "direct only",
			env:      map[string]string{EnvRecallAPIKey: "rc-key", EnvOpenAIAPIKey: "sk-key"},
			wantMode: ModeDirect,
		},
		{
			name: "hosted wins over direct",
			env: map[string]string{
				EnvMeetbotAPIKey: "mb-key",
				EnvRecallAPIKey:  "rc-key",
				EnvOpenAIAPIKey:  "sk-key",
			},
			wantMode: ModeHosted,
		},
		{
			name:    "half a direct set",
			env:     map[string]string{EnvRecallAPIKey: "rc-key"},
			wantErr: true,
		},
		{
			name:    "whitespace is not a key",
			env:     map[string]string{EnvMeetbotAPIKey: "   "},
			wantErr: true,
		},
		{
			name:    "nothing",
			env:     map[string]string{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds, err := SelectMode(envFrom(tt.env))
			if tt.wantErr {
				var cfgErr *ConfigError
				require.ErrorAs(t, err, &cfgErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantMode, creds.Mode)
		})
	}
}

func TestSelectMode_Defaults(t *testing.T) {
	hosted, err := SelectMode(envFrom(map[string]string{EnvMeetbotAPIKey: "mb-key"}))
	require.NoError(t, err)
	assert.Equal(t, DefaultMeetbotBaseURL, hosted.MeetbotBaseURL)
	assert.Empty(t, hosted.RecallAPIKey)

	direct, err := SelectMode(envFrom(map[string]string{EnvRecallAPIKey: "rc", EnvOpenAIAPIKey: "sk"}))
	require.NoError(t, err)
	assert.Equal(t, "https://us-east-1.recall.ai", direct.RecallBaseURL)
	assert.Equal(t, DefaultOpenAIBaseURL, direct.OpenAIBaseURL)
	assert.Equal(t, DefaultOpenAITTSModel, direct.OpenAITTSModel)
}

func TestSelectMode_Overrides(t *testing.T) {
	direct, err := SelectMode(envFrom(map[string]string{
		EnvRecallAPIKey:   "rc",
		EnvOpenAIAPIKey:   "sk",
		EnvRecallRegion:   "eu-central-1",
		EnvOpenAIBaseURL:  "http://localhost:8080",
		EnvOpenAITTSModel: "tts-1-hd",
	}))
	require.NoError(t, err)
	assert.Equal(t, "https://eu-central-1.recall.ai", direct.RecallBaseURL)
	assert.Equal(t, "http://localhost:8080", direct.OpenAIBaseURL)
	assert.Equal(t, "tts-1-hd", direct.OpenAITTSModel)

	explicit, err := SelectMode(envFrom(map[string]string{
		EnvRecallAPIKey:  "rc",
		EnvOpenAIAPIKey:  "sk",
		EnvRecallRegion:  "eu-central-1",
		EnvRecallBaseURL: "http://recall.local",
	}))
	require.NoError(t, err)
	assert.Equal(t, "http://recall.local", explicit.RecallBaseURL)
}

func TestCredentials_SummaryMasksKeys(t *testing.T) {
	creds, err := SelectMode(envFrom(map[string]string{EnvRecallAPIKey: "rc-secret", EnvOpenAIAPIKey: "sk-secret"}))
	require.NoError(t, err)

	summary := strings.Join(creds.Summary(), "\n")
	assert.Contains(t, summary, "mode: direct")
	assert.NotContains(t, summary, "rc-secret")
	assert.NotContains(t, summary, "sk-secret")
	assert.Contains(t, summary, "[token:9 chars]")
}
