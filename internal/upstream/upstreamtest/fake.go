// Package upstreamtest provides an in-memory upstream.Adapter for tests.
package upstreamtest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/teemow/meetbot/internal/upstream"
)

// Operation names counted by Fake.
const (
	OpCreateBot  = "create_bot"
	OpTranscript = "transcript"
	OpSpeak      = "speak"
	OpChat       = "chat"
	OpStatus     = "status"
	OpLeave      = "leave"
)

// Fake is a scriptable adapter. Errors queued with FailNext are returned by
// the next calls of that operation in order.
type Fake struct {
	mu sync.Mutex

	mode        upstream.Mode
	nextID      int
	transcripts map[string][]upstream.TranscriptEntry
	statuses    map[string]upstream.BotStatus
	failures    map[string][]error
	calls       map[string]int

	// SpeakSeconds, when set, replaces the local duration estimate.
	SpeakSeconds float64

	// CreateDelay blocks CreateBot until it elapses or ctx is done.
	CreateDelay time.Duration

	// LeaveDelay blocks Leave until it elapses or ctx is done.
	LeaveDelay time.Duration

	Spoken []string
	Chats  []string
	Left   []string
}

var _ upstream.Adapter = (*Fake)(nil)

// NewFake creates a Fake reporting mode.
func NewFake(mode upstream.Mode) *Fake {
	return &Fake{
		mode:        mode,
		transcripts: make(map[string][]upstream.TranscriptEntry),
		statuses:    make(map[string]upstream.BotStatus),
		failures:    make(map[string][]error),
		calls:       make(map[string]int),
	}
}

// Entry builds a transcript entry whose words end at end.
func Entry(speaker, text string, end float64) upstream.TranscriptEntry {
	fields := strings.Fields(text)
	words := make([]upstream.Word, len(fields))
	for i, f := range fields {
		start := end - float64(len(fields)-i)*0.3
		stop := end - float64(len(fields)-i-1)*0.3
		words[i] = upstream.Word{Text: f, Start: &start, End: &stop}
	}
	return upstream.TranscriptEntry{Speaker: speaker, Words: words}
}

// EntryWithoutTimestamps builds an entry with no word timestamps.
func EntryWithoutTimestamps(speaker, text string) upstream.TranscriptEntry {
	var words []upstream.Word
	for _, f := range strings.Fields(text) {
		words = append(words, upstream.Word{Text: f})
	}
	return upstream.TranscriptEntry{Speaker: speaker, Words: words}
}

// SetTranscript replaces the transcript returned for botID.
func (f *Fake) SetTranscript(botID string, entries ...upstream.TranscriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts[botID] = entries
}

// AppendTranscript appends entries to the transcript of botID.
func (f *Fake) AppendTranscript(botID string, entries ...upstream.TranscriptEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts[botID] = append(f.transcripts[botID], entries...)
}

// SetStatus sets the status returned for botID.
func (f *Fake) SetStatus(botID string, status upstream.BotStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses[botID] = status
}

// FailNext queues errs for the next calls of op.
func (f *Fake) FailNext(op string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = append(f.failures[op], errs...)
}

// Calls returns how often op was invoked.
func (f *Fake) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (f *Fake) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *Fake) begin(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[op]++
	if queue := f.failures[op]; len(queue) > 0 {
		err := queue[0]
		f.failures[op] = queue[1:]
		return err
	}
	return nil
}

func (f *Fake) Mode() upstream.Mode {
	return f.mode
}

func (f *Fake) CreateBot(ctx context.Context, meetingURL, displayName string) (string, error) {
	if err := f.begin(OpCreateBot); err != nil {
		return "", err
	}

	if f.CreateDelay > 0 {
		select {
		case <-time.After(f.CreateDelay):
		case <-ctx.Done():
			return "", &upstream.Error{Category: upstream.CategoryTimeout, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	botID := fmt.Sprintf("bot-%d", f.nextID)
	f.statuses[botID] = upstream.BotStatus{
		DisplayName: displayName,
		StatusCode:  "joining_call",
		MeetingURL:  meetingURL,
		CreatedAt:   time.Now().UTC(),
	}
	return botID, nil
}

func (f *Fake) FetchTranscript(_ context.Context, botID string) ([]upstream.TranscriptEntry, error) {
	if err := f.begin(OpTranscript); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]upstream.TranscriptEntry(nil), f.transcripts[botID]...), nil
}

func (f *Fake) Speak(_ context.Context, botID, text string, _ upstream.Voice) (float64, error) {
	if err := f.begin(OpSpeak); err != nil {
		return 0, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Spoken = append(f.Spoken, text)
	if f.SpeakSeconds > 0 {
		return f.SpeakSeconds, nil
	}
	return upstream.EstimateSpeechSeconds(text), nil
}

func (f *Fake) SendChat(_ context.Context, _, message string) error {
	if err := f.begin(OpChat); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Chats = append(f.Chats, message)
	return nil
}

func (f *Fake) GetStatus(_ context.Context, botID string) (upstream.BotStatus, error) {
	if err := f.begin(OpStatus); err != nil {
		return upstream.BotStatus{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	status, ok := f.statuses[botID]
	if !ok {
		return upstream.BotStatus{}, &upstream.Error{Category: upstream.CategoryNotFound, StatusCode: 404, BotID: botID}
	}
	return status, nil
}

func (f *Fake) Leave(ctx context.Context, botID string) error {
	if err := f.begin(OpLeave); err != nil {
		return err
	}

	if f.LeaveDelay > 0 {
		select {
		case <-time.After(f.LeaveDelay):
		case <-ctx.Done():
			return &upstream.Error{Category: upstream.CategoryTimeout, BotID: botID, Err: ctx.Err()}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Left = append(f.Left, botID)
	return nil
}

// LeftBots returns a copy of the ids Leave succeeded for.
func (f *Fake) LeftBots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Left...)
}
