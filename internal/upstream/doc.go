// Package upstream defines the contract shared by the meeting-bot backends.
//
// An Adapter exposes the bot lifecycle (create, transcript, speak, chat,
// status, leave) independent of which platform serves it. Two
// implementations exist: direct, which talks to the meeting-bot platform and
// the speech platform with separate credentials, and hosted, which talks to a
// single intermediary. The mode is chosen once at startup by SelectMode.
//
// Every adapter reports failures as *Error so callers never branch on
// platform-specific payloads.
package upstream
