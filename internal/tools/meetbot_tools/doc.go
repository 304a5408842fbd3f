// Package meetbot_tools provides the MCP tools that drive a meeting bot.
//
// Available tools:
//
// Bot Lifecycle (Write):
//   - meetbot_join_meeting - Create a bot and send it into a meeting
//   - meetbot_speak - Say text in the meeting with a synthesized voice
//   - meetbot_send_chat - Post a message to the meeting chat
//   - meetbot_leave_meeting - Remove the bot from the meeting
//
// Meeting State (Read):
//   - meetbot_get_transcript - New speech since the previous call
//   - meetbot_get_status - Upstream status of a bot
//   - meetbot_list_sessions - Bots created by this server
//
// Example usage:
//
//	meetbot_join_meeting(meeting_url="abc-defg-hij", bot_name="Agent")
//	meetbot_get_transcript(bot_id="...")
//	meetbot_speak(bot_id="...", text="Hello everyone", voice="nova")
package meetbot_tools
