// Package hosted implements upstream.Adapter against the intermediary
// platform, which fronts both the meeting-bot and the speech platform behind
// one bearer credential.
package hosted
