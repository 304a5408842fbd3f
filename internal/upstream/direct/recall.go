package direct

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/teemow/meetbot/internal/upstream"
)

// silentFrameB64 is a single silent MPEG-1 Layer III frame (128 kbps,
// 44.1 kHz). The platform only accepts output audio for bots created with an
// automatic audio output, so every bot is created with this placeholder.
var silentFrameB64 = func() string {
	frame := make([]byte, 417)
	copy(frame, []byte{0xFF, 0xFB, 0x90, 0x64})
	return base64.StdEncoding.EncodeToString(frame)
}()

type createBotRequest struct {
	MeetingURL           string               `json:"meeting_url"`
	BotName              string               `json:"bot_name"`
	RecordingConfig      recordingConfig      `json:"recording_config"`
	AutomaticAudioOutput automaticAudioOutput `json:"automatic_audio_output"`
}

type recordingConfig struct {
	Transcript struct {
		Provider struct {
			MeetingCaptions struct{} `json:"meeting_captions"`
		} `json:"provider"`
	} `json:"transcript"`
}

type automaticAudioOutput struct {
	InCallRecording struct {
		Data outputAudioRequest `json:"data"`
	} `json:"in_call_recording"`
}

func newCreateBotRequest(meetingURL, displayName string) createBotRequest {
	req := createBotRequest{MeetingURL: meetingURL, BotName: displayName}
	req.AutomaticAudioOutput.InCallRecording.Data = outputAudioRequest{Kind: "mp3", B64Data: silentFrameB64}
	return req
}

type createBotResponse struct {
	ID string `json:"id"`
}

type outputAudioRequest struct {
	Kind    string `json:"kind"`
	B64Data string `json:"b64_data"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type statusChange struct {
	Code      string `json:"code"`
	CreatedAt string `json:"created_at"`
}

type botResponse struct {
	BotName       string         `json:"bot_name"`
	MeetingURL    meetingRef     `json:"meeting_url"`
	StatusChanges []statusChange `json:"status_changes"`
	CreatedAt     string         `json:"created_at"`
}

func (r botResponse) status() upstream.BotStatus {
	code := "unknown"
	if n := len(r.StatusChanges); n > 0 && r.StatusChanges[n-1].Code != "" {
		code = r.StatusChanges[n-1].Code
	}
	return upstream.BotStatus{
		DisplayName: r.BotName,
		StatusCode:  code,
		MeetingURL:  r.MeetingURL.String(),
		CreatedAt:   parseTime(r.CreatedAt),
	}
}

// meetingRef is returned either as a plain URL or as {meeting_id, platform}.
type meetingRef struct {
	URL       string
	MeetingID string
	Platform  string
}

func (m *meetingRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &m.URL)
	}
	var obj struct {
		MeetingID string `json:"meeting_id"`
		Platform  string `json:"platform"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("invalid meeting_url: %w", err)
	}
	m.MeetingID = obj.MeetingID
	m.Platform = obj.Platform
	return nil
}

func (m meetingRef) String() string {
	switch {
	case m.URL != "":
		return m.URL
	case m.MeetingID == "":
		return ""
	case m.Platform == "google_meet":
		return "https://meet.google.com/" + m.MeetingID
	case m.Platform == "":
		return m.MeetingID
	default:
		return m.Platform + ": " + m.MeetingID
	}
}
