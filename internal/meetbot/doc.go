// Package meetbot composes an upstream.Adapter and a session.Registry into
// the operations exposed to agents: join a meeting, poll for new speech,
// speak, chat, check status and leave.
//
// Transcript polling is incremental. The upstream always returns the full
// transcript; the service keeps a per-bot cursor and only returns entries
// that end after it, minus the bot's own speech picked up by the meeting
// audio.
package meetbot
