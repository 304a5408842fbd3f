package meetbot

import (
	"errors"
	"regexp"
	"strings"
)

// MeetingBaseURL is prefixed to bare meeting codes.
const MeetingBaseURL = "https://meet.google.com/"

var (
	meetingCodePattern = regexp.MustCompile(`^[a-z]{3}-[a-z]{4}-[a-z]{3}$`)
	schemePattern      = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

	errEmptyMeeting = errors.New("meeting URL or code is required")
)

// NormalizeMeetingURL turns a bare meeting code such as "abc-defg-hij" into
// a full meeting URL. Anything without a scheme is treated as a code; full
// URLs are returned unchanged.
func NormalizeMeetingURL(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errEmptyMeeting
	}
	if meetingCodePattern.MatchString(ref) || !schemePattern.MatchString(ref) {
		return MeetingBaseURL + ref, nil
	}
	return ref, nil
}
