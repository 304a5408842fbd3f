package upstream

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Mode identifies which backend serves the process.
type Mode string

const (
	ModeHosted Mode = "hosted"
	ModeDirect Mode = "direct"
)

// Voice is a speech synthesis voice.
type Voice string

const (
	VoiceAlloy   Voice = "alloy"
	VoiceEcho    Voice = "echo"
	VoiceFable   Voice = "fable"
	VoiceOnyx    Voice = "onyx"
	VoiceNova    Voice = "nova"
	VoiceShimmer Voice = "shimmer"

	DefaultVoice = VoiceNova
)

// Voices lists every supported voice in display order.
var Voices = []Voice{VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer}

// VoiceNames returns the voices as plain strings, for tool enums.
func VoiceNames() []string {
	names := make([]string, len(Voices))
	for i, v := range Voices {
		names[i] = string(v)
	}
	return names
}

// ParseVoice validates s. An empty string yields DefaultVoice.
func ParseVoice(s string) (Voice, error) {
	if s == "" {
		return DefaultVoice, nil
	}
	for _, v := range Voices {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("unsupported voice %q, must be one of: %s", s, strings.Join(VoiceNames(), ", "))
}

// SecondsPerCharacter is the rough speaking rate used when the upstream does
// not report a duration.
const SecondsPerCharacter = 0.065

// EstimateSpeechSeconds estimates how long text takes to speak.
func EstimateSpeechSeconds(text string) float64 {
	return float64(utf8.RuneCountInString(text)) * SecondsPerCharacter
}

// Word is one transcribed token. Timestamps are seconds on the upstream's
// relative meeting clock and may be missing.
type Word struct {
	Text  string
	Start *float64
	End   *float64
}

// TranscriptEntry is one speaker turn.
type TranscriptEntry struct {
	Speaker string
	Words   []Word
}

// Text joins the entry's words with single spaces.
func (e TranscriptEntry) Text() string {
	parts := make([]string, 0, len(e.Words))
	for _, w := range e.Words {
		if t := strings.TrimSpace(w.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// Line renders the entry as "speaker: text".
func (e TranscriptEntry) Line() string {
	return e.Speaker + ": " + e.Text()
}

// EffectiveTimestamp returns the end timestamp of the last word, if any.
func (e TranscriptEntry) EffectiveTimestamp() (float64, bool) {
	if len(e.Words) == 0 {
		return 0, false
	}
	end := e.Words[len(e.Words)-1].End
	if end == nil {
		return 0, false
	}
	return *end, true
}

// BotStatus is the upstream view of a bot.
type BotStatus struct {
	DisplayName string
	StatusCode  string
	MeetingURL  string
	CreatedAt   time.Time
}

// Adapter is implemented by each backend. Implementations must be safe for
// concurrent use and must return *Error for every upstream failure.
type Adapter interface {
	// CreateBot asks the platform to send a bot named displayName into the
	// meeting and returns the platform-issued bot id.
	CreateBot(ctx context.Context, meetingURL, displayName string) (string, error)

	// FetchTranscript returns the full transcript captured so far.
	FetchTranscript(ctx context.Context, botID string) ([]TranscriptEntry, error)

	// Speak plays text in the meeting and returns the estimated spoken
	// duration in seconds.
	Speak(ctx context.Context, botID, text string, voice Voice) (float64, error)

	SendChat(ctx context.Context, botID, message string) error
	GetStatus(ctx context.Context, botID string) (BotStatus, error)
	Leave(ctx context.Context, botID string) error

	Mode() Mode
}
