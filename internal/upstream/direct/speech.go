package direct

import (
	"context"
	"errors"
	"net/http"

	"github.com/teemow/meetbot/internal/httpclient"
	"github.com/teemow/meetbot/internal/instrumentation"
	"github.com/teemow/meetbot/internal/upstream"
)

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice"`
	ResponseFormat string `json:"response_format"`
}

var errEmptyAudio = errors.New("speech synthesis returned no audio")

// synthesize returns MP3 bytes for text.
func (a *Adapter) synthesize(ctx context.Context, text string, voice upstream.Voice) ([]byte, error) {
	if voice == "" {
		voice = upstream.DefaultVoice
	}

	resp, err := a.speech.Do(ctx, httpclient.Request{
		Operation: instrumentation.OperationSynthesize,
		Method:    http.MethodPost,
		URL:       a.openAIBase + "/v1/audio/speech",
		Header:    http.Header{"Authorization": []string{"Bearer " + a.openAIKey}},
		JSON: speechRequest{
			Model:          a.ttsModel,
			Input:          text,
			Voice:          string(voice),
			ResponseFormat: "mp3",
		},
		Timeout: httpclient.SpeechTimeout,
	})
	if err == nil && len(resp.Body) == 0 {
		err = errEmptyAudio
	}
	if err != nil {
		return nil, upstream.Normalize(err, upstream.Scope{
			Operation:  instrumentation.OperationSynthesize,
			Credential: upstream.EnvOpenAIAPIKey,
		})
	}
	return resp.Body, nil
}
