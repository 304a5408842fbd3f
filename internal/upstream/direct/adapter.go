package direct

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/teemow/meetbot/internal/httpclient"
	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/logging"
	"github.com/teemow/meetbot/internal/upstream"
)

// Config configures the direct adapter.
type Config struct {
	RecallAPIKey  string
	RecallBaseURL string

	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAITTSModel string

	// RateLimit paces requests per second to each platform. 0 disables it.
	RateLimit float64

	Transport http.RoundTripper
	Metrics   *instrumentation.Metrics
	Logger    *slog.Logger
}

// ConfigFromCredentials copies the direct fields of creds.
func ConfigFromCredentials(creds upstream.Credentials) Config {
	return Config{
		RecallAPIKey:   creds.RecallAPIKey,
		RecallBaseURL:  creds.RecallBaseURL,
		OpenAIAPIKey:   creds.OpenAIAPIKey,
		OpenAIBaseURL:  creds.OpenAIBaseURL,
		OpenAITTSModel: creds.OpenAITTSModel,
	}
}

// Adapter talks to both platforms.
type Adapter struct {
	recall *httpclient.Client
	speech *httpclient.Client

	recallKey  string
	recallBase string
	openAIKey  string
	openAIBase string
	ttsModel   string

	logger *slog.Logger
}

var _ upstream.Adapter = (*Adapter)(nil)

// New creates a direct Adapter.
func New(cfg Config) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	model := cfg.OpenAITTSModel
	if model == "" {
		model = upstream.DefaultOpenAITTSModel
	}

	return &Adapter{
		recall: httpclient.New(httpclient.Config{
			Upstream:  instrumentation.UpstreamRecall,
			RateLimit: cfg.RateLimit,
			Transport: cfg.Transport,
			Metrics:   cfg.Metrics,
			Logger:    logger,
		}),
		speech: httpclient.New(httpclient.Config{
			Upstream:  instrumentation.UpstreamOpenAI,
			RateLimit: cfg.RateLimit,
			Transport: cfg.Transport,
			Metrics:   cfg.Metrics,
			Logger:    logger,
		}),
		recallKey:  cfg.RecallAPIKey,
		recallBase: strings.TrimRight(cfg.RecallBaseURL, "/"),
		openAIKey:  cfg.OpenAIAPIKey,
		openAIBase: strings.TrimRight(cfg.OpenAIBaseURL, "/"),
		ttsModel:   model,
		logger:     logging.WithUpstream(logger, string(upstream.ModeDirect)),
	}
}

// Mode returns upstream.ModeDirect.
func (a *Adapter) Mode() upstream.Mode {
	return upstream.ModeDirect
}

// CreateBot sends a bot into the meeting with meeting-caption transcription
// and an audio output channel enabled.
func (a *Adapter) CreateBot(ctx context.Context, meetingURL, displayName string) (string, error) {
	var resp createBotResponse
	err := a.recall.DoJSON(ctx, a.recallRequest(instrumentation.OperationCreateBot, http.MethodPost, "/api/v1/bot/",
		newCreateBotRequest(meetingURL, displayName)), &resp)
	if err != nil {
		return "", a.recallError(err, instrumentation.OperationCreateBot, "")
	}
	if resp.ID == "" {
		return "", a.recallError(fmt.Errorf("create bot response did not contain an id"), instrumentation.OperationCreateBot, "")
	}
	return resp.ID, nil
}

// FetchTranscript returns the full transcript of the bot.
func (a *Adapter) FetchTranscript(ctx context.Context, botID string) ([]upstream.TranscriptEntry, error) {
	var wire []upstream.WireTranscriptEntry
	err := a.recall.DoJSON(ctx, a.recallRequest(instrumentation.OperationTranscript, http.MethodGet,
		botPath(botID, "transcript/"), nil), &wire)
	if err != nil {
		return nil, a.recallError(err, instrumentation.OperationTranscript, botID)
	}
	return upstream.Entries(wire), nil
}

// Speak synthesizes text and plays it through the bot.
func (a *Adapter) Speak(ctx context.Context, botID, text string, voice upstream.Voice) (float64, error) {
	ctx, span := instrumentation.StartUpstreamSpan(ctx, string(upstream.ModeDirect), instrumentation.OperationSpeak,
		attribute.String(instrumentation.SpanAttrBotID, botID))
	defer span.End()

	audio, err := a.synthesize(ctx, text, voice)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return 0, err
	}

	payload := outputAudioRequest{Kind: "mp3", B64Data: base64.StdEncoding.EncodeToString(audio)}
	err = a.recall.DoJSON(ctx, a.recallRequest(instrumentation.OperationSpeak, http.MethodPost,
		botPath(botID, "output_audio/"), payload), nil)
	if err != nil {
		err = a.recallError(err, instrumentation.OperationSpeak, botID)
		instrumentation.SetSpanError(span, err)
		return 0, err
	}

	instrumentation.SetSpanSuccess(span)
	a.logger.Debug("audio delivered", logging.BotID(botID), slog.Int("audio_bytes", len(audio)))
	return upstream.EstimateSpeechSeconds(text), nil
}

// SendChat posts message to the meeting chat.
func (a *Adapter) SendChat(ctx context.Context, botID, message string) error {
	err := a.recall.DoJSON(ctx, a.recallRequest(instrumentation.OperationChat, http.MethodPost,
		botPath(botID, "send_chat_message/"), chatRequest{Message: message}), nil)
	if err != nil {
		return a.recallError(err, instrumentation.OperationChat, botID)
	}
	return nil
}

// GetStatus returns the bot's name, latest status and meeting.
func (a *Adapter) GetStatus(ctx context.Context, botID string) (upstream.BotStatus, error) {
	var resp botResponse
	err := a.recall.DoJSON(ctx, a.recallRequest(instrumentation.OperationStatus, http.MethodGet,
		botPath(botID, ""), nil), &resp)
	if err != nil {
		return upstream.BotStatus{}, a.recallError(err, instrumentation.OperationStatus, botID)
	}
	return resp.status(), nil
}

// Leave removes the bot from the call.
func (a *Adapter) Leave(ctx context.Context, botID string) error {
	err := a.recall.DoJSON(ctx, a.recallRequest(instrumentation.OperationLeave, http.MethodPost,
		botPath(botID, "leave_call/"), nil), nil)
	if err != nil {
		return a.recallError(err, instrumentation.OperationLeave, botID)
	}
	return nil
}

func (a *Adapter) recallRequest(operation, method, path string, body any) httpclient.Request {
	return httpclient.Request{
		Operation: operation,
		Method:    method,
		URL:       a.recallBase + path,
		Header:    http.Header{"Authorization": []string{"Token " + a.recallKey}},
		JSON:      body,
		Timeout:   httpclient.DefaultTimeout,
	}
}

func (a *Adapter) recallError(err error, operation, botID string) error {
	return upstream.Normalize(err, upstream.Scope{
		Operation:  operation,
		Credential: upstream.EnvRecallAPIKey,
		BotID:      botID,
	})
}

func botPath(botID, suffix string) string {
	return "/api/v1/bot/" + url.PathEscape(botID) + "/" + suffix
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
