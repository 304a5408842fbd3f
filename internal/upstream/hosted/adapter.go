package hosted

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/meetbot/internal/httpclient"
	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/upstream"
)

// Config configures the hosted adapter.
type Config struct {
	APIKey  string
	BaseURL string

	// RateLimit paces requests per second. 0 disables it.
	RateLimit float64

	Transport http.RoundTripper
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// ConfigFromCredentials copies the hosted fields of creds.
func ConfigFromCredentials(creds upstream.Credentials) Config {
	return Config{
		APIKey:  creds.MeetbotAPIKey,
		BaseURL: creds.MeetbotBaseURL,
	}
}

// Adapter talks to the intermediary platform.
type Adapter struct {
	client  *httpclient.Client
	apiKey  string
	baseURL string
}

var _ upstream.Adapter = (*Adapter)(nil)

// New creates a hosted Adapter.
func New(cfg Config) *Adapter {
	return &Adapter{
		client: httpclient.New(httpclient.Config{
			Upstream:  instrumentation.UpstreamHosted,
			RateLimit: cfg.RateLimit,
			Transport: cfg.Transport,
			Metrics:   cfg.Metrics,
			Logger:    cfg.Logger,
		}),
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

// Mode returns upstream.ModeHosted.
func (a *Adapter) Mode() upstream.Mode {
	return upstream.ModeHosted
}

type createBotRequest struct {
	MeetingURL string `json:"meeting_url"`
	BotName    string `json:"bot_name"`
}

type createBotResponse struct {
	BotID string `json:"bot_id"`
}

// CreateBot sends a bot into the meeting.
func (a *Adapter) CreateBot(ctx context.Context, meetingURL, displayName string) (string, error) {
	var resp createBotResponse
	err := a.do(ctx, instrumentation.OperationCreateBot, http.MethodPost, "/v1/bots",
		createBotRequest{MeetingURL: meetingURL, BotName: displayName}, &resp, httpclient.DefaultTimeout)
	if err != nil {
		return "", a.normalize(err, instrumentation.OperationCreateBot, "")
	}
	if resp.BotID == "" {
		return "", a.normalize(fmt.Errorf("create bot response did not contain a bot_id"), instrumentation.OperationCreateBot, "")
	}
	return resp.BotID, nil
}

type transcriptResponse struct {
	Entries []upstream.WireTranscriptEntry `json:"entries"`
}

// FetchTranscript returns the full transcript of the bot.
func (a *Adapter) FetchTranscript(ctx context.Context, botID string) ([]upstream.TranscriptEntry, error) {
	var resp transcriptResponse
	err := a.do(ctx, instrumentation.OperationTranscript, http.MethodGet, botPath(botID, "/transcript"),
		nil, &resp, httpclient.DefaultTimeout)
	if err != nil {
		return nil, a.normalize(err, instrumentation.OperationTranscript, botID)
	}
	return upstream.Entries(resp.Entries), nil
}

type speakRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

type speakResponse struct {
	EstimatedDurationSeconds *float64 `json:"estimated_duration_seconds"`
}

// Speak has the platform synthesize and play text. The platform's duration
// estimate is used when present.
func (a *Adapter) Speak(ctx context.Context, botID, text string, voice upstream.Voice) (float64, error) {
	if voice == "" {
		voice = upstream.DefaultVoice
	}

	var resp speakResponse
	err := a.do(ctx, instrumentation.OperationSpeak, http.MethodPost, botPath(botID, "/speak"),
		speakRequest{Text: text, Voice: string(voice)}, &resp, httpclient.SpeechTimeout)
	if err != nil {
		return 0, a.normalize(err, instrumentation.OperationSpeak, botID)
	}

	if resp.EstimatedDurationSeconds != nil && *resp.EstimatedDurationSeconds > 0 {
		return *resp.EstimatedDurationSeconds, nil
	}
	return upstream.EstimateSpeechSeconds(text), nil
}

type chatRequest struct {
	Message string `json:"message"`
}

// SendChat posts message to the meeting chat.
func (a *Adapter) SendChat(ctx context.Context, botID, message string) error {
	err := a.do(ctx, instrumentation.OperationChat, http.MethodPost, botPath(botID, "/chat"),
		chatRequest{Message: message}, nil, httpclient.DefaultTimeout)
	if err != nil {
		return a.normalize(err, instrumentation.OperationChat, botID)
	}
	return nil
}

type statusResponse struct {
	BotName    string `json:"bot_name"`
	Status     string `json:"status"`
	MeetingURL string `json:"meeting_url"`
	CreatedAt  string `json:"created_at"`
}

// GetStatus returns the bot's name, status and meeting.
func (a *Adapter) GetStatus(ctx context.Context, botID string) (upstream.BotStatus, error) {
	var resp statusResponse
	err := a.do(ctx, instrumentation.OperationStatus, http.MethodGet, botPath(botID, ""),
		nil, &resp, httpclient.DefaultTimeout)
	if err != nil {
		return upstream.BotStatus{}, a.normalize(err, instrumentation.OperationStatus, botID)
	}

	status := upstream.BotStatus{
		DisplayName: resp.BotName,
		StatusCode:  resp.Status,
		MeetingURL:  resp.MeetingURL,
	}
	if status.StatusCode == "" {
		status.StatusCode = "unknown"
	}
	if t, err := time.Parse(time.RFC3339Nano, resp.CreatedAt); err == nil {
		status.CreatedAt = t
	}
	return status, nil
}

// Leave removes the bot from the call.
func (a *Adapter) Leave(ctx context.Context, botID string) error {
	err := a.do(ctx, instrumentation.OperationLeave, http.MethodDelete, botPath(botID, ""),
		nil, nil, httpclient.DefaultTimeout)
	if err != nil {
		return a.normalize(err, instrumentation.OperationLeave, botID)
	}
	return nil
}

func (a *Adapter) do(ctx context.Context, operation, method, path string, body, out any, timeout time.Duration) error {
	return a.client.DoJSON(ctx, httpclient.Request{
		Operation: operation,
		Method:    method,
		URL:       a.baseURL + path,
		Header:    http.Header{"Authorization": []string{"Bearer " + a.apiKey}},
		JSON:      body,
		Timeout:   timeout,
	}, out)
}

func (a *Adapter) normalize(err error, operation, botID string) error {
	return upstream.Normalize(err, upstream.Scope{
		Operation:  operation,
		Credential: upstream.EnvMeetbotAPIKey,
		BotID:      botID,
	})
}

func botPath(botID, suffix string) string {
	return "/v1/bots/" + url.PathEscape(botID) + suffix
}
