// Package direct implements upstream.Adapter against the meeting-bot
// platform and the speech platform using separate operator credentials.
//
// Speaking is a composite: text is synthesized to MP3 by the speech platform
// and the bytes are pushed to the bot as playback audio. Nothing is pushed
// when synthesis fails.
package direct
