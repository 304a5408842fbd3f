package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// UnknownSpeaker labels entries the platform could not attribute.
const UnknownSpeaker = "Unknown"

// WireTimestamp decodes either {"relative": 1.5} or a bare number.
type WireTimestamp struct {
	Relative *float64
}

func (t *WireTimestamp) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '{' {
		var obj struct {
			Relative *float64 `json:"relative"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		t.Relative = obj.Relative
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	t.Relative = &v
	return nil
}

// WireWord is a transcribed word as sent by the platforms.
type WireWord struct {
	Text           string         `json:"text"`
	StartTimestamp *WireTimestamp `json:"start_timestamp"`
	EndTimestamp   *WireTimestamp `json:"end_timestamp"`
}

// WireTranscriptEntry is a transcript entry as sent by the platforms.
type WireTranscriptEntry struct {
	Speaker     *string `json:"speaker"`
	Participant *struct {
		Name string `json:"name"`
	} `json:"participant"`
	Words []WireWord `json:"words"`
}

// Entry converts the wire form.
func (w WireTranscriptEntry) Entry() TranscriptEntry {
	speaker := ""
	if w.Speaker != nil {
		speaker = strings.TrimSpace(*w.Speaker)
	}
	if speaker == "" && w.Participant != nil {
		speaker = strings.TrimSpace(w.Participant.Name)
	}
	if speaker == "" {
		speaker = UnknownSpeaker
	}

	entry := TranscriptEntry{Speaker: speaker, Words: make([]Word, 0, len(w.Words))}
	for _, ww := range w.Words {
		word := Word{Text: ww.Text}
		if ww.StartTimestamp != nil {
			word.Start = ww.StartTimestamp.Relative
		}
		if ww.EndTimestamp != nil {
			word.End = ww.EndTimestamp.Relative
		}
		entry.Words = append(entry.Words, word)
	}
	return entry
}

// Entries converts a list of wire entries, preserving order.
func Entries(wire []WireTranscriptEntry) []TranscriptEntry {
	entries := make([]TranscriptEntry, 0, len(wire))
	for _, w := range wire {
		entries = append(entries, w.Entry())
	}
	return entries
}
