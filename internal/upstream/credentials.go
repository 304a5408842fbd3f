package upstream

import (
	"fmt"
	"os"
	"strings"

	"github.com/teemow/meetbot/internal/logging"
)

// Environment variables read at startup.
const (
	EnvMeetbotAPIKey  = "MEETBOT_API_KEY"
	EnvMeetbotBaseURL = "MEETBOT_BASE_URL"

	EnvRecallAPIKey  = "RECALL_API_KEY"
	EnvRecallBaseURL = "RECALL_BASE_URL"
	EnvRecallRegion  = "RECALL_REGION"

	EnvOpenAIAPIKey   = "OPENAI_API_KEY"
	EnvOpenAIBaseURL  = "OPENAI_BASE_URL"
	EnvOpenAITTSModel = "OPENAI_TTS_MODEL"
)

const (
	DefaultMeetbotBaseURL = "https://api.meetbot.dev"
	DefaultRecallRegion   = "us-east-1"
	DefaultOpenAIBaseURL  = "https://api.openai.com"
	DefaultOpenAITTSModel = "tts-1"
)

// Credentials is the process-wide upstream configuration. Only the fields of
// the selected Mode are populated.
type Credentials struct {
	Mode Mode

	MeetbotAPIKey  string
	MeetbotBaseURL string

	RecallAPIKey  string
	RecallBaseURL string

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAITTSModel string
}

// LoadCredentialsFromEnv runs SelectMode against the process environment.
func LoadCredentialsFromEnv() (Credentials, error) {
	return SelectMode(os.Getenv)
}

// SelectMode picks the backend from the available credentials. The hosted
// key wins even when both direct keys are also set. Without a complete set a
// *ConfigError is returned.
func SelectMode(getenv func(string) string) (Credentials, error) {
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	if key := get(EnvMeetbotAPIKey); key != "" {
		return Credentials{
			Mode:           ModeHosted,
			MeetbotAPIKey:  key,
			MeetbotBaseURL: withDefault(get(EnvMeetbotBaseURL), DefaultMeetbotBaseURL),
		}, nil
	}

	recallKey := get(EnvRecallAPIKey)
	openAIKey := get(EnvOpenAIAPIKey)
	if recallKey != "" && openAIKey != "" {
		recallBase := get(EnvRecallBaseURL)
		if recallBase == "" {
			recallBase = fmt.Sprintf("https://%s.recall.ai", withDefault(get(EnvRecallRegion), DefaultRecallRegion))
		}
		return Credentials{
			Mode:           ModeDirect,
			RecallAPIKey:   recallKey,
			RecallBaseURL:  recallBase,
			OpenAIAPIKey:   openAIKey,
			OpenAIBaseURL:  withDefault(get(EnvOpenAIBaseURL), DefaultOpenAIBaseURL),
			OpenAITTSModel: withDefault(get(EnvOpenAITTSModel), DefaultOpenAITTSModel),
		}, nil
	}

	missing := []string{EnvMeetbotAPIKey}
	if recallKey == "" {
		missing = append(missing, EnvRecallAPIKey)
	}
	if openAIKey == "" {
		missing = append(missing, EnvOpenAIAPIKey)
	}
	return Credentials{}, &ConfigError{Missing: missing}
}

// Summary returns display lines for the selected configuration with keys
// masked.
func (c Credentials) Summary() []string {
	switch c.Mode {
	case ModeHosted:
		return []string{
			"mode: " + string(c.Mode),
			fmt.Sprintf("%s: %s", EnvMeetbotAPIKey, logging.SanitizeToken(c.MeetbotAPIKey)),
			"base url: " + c.MeetbotBaseURL,
		}
	case ModeDirect:
		return []string{
			"mode: " + string(c.Mode),
			fmt.Sprintf("%s: %s", EnvRecallAPIKey, logging.SanitizeToken(c.RecallAPIKey)),
			"meeting-bot base url: " + c.RecallBaseURL,
			fmt.Sprintf("%s: %s", EnvOpenAIAPIKey, logging.SanitizeToken(c.OpenAIAPIKey)),
			"speech base url: " + c.OpenAIBaseURL,
			"speech model: " + c.OpenAITTSModel,
		}
	default:
		return []string{"mode: unset"}
	}
}

func withDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
