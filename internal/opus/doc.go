// Package opus turns a stored clip into Opus frames for Discord voice.
//
// Encode runs FFmpeg against a clip location (a file path or URL) and
// produces length-prefixed frames ([uint16 LE length][opus bytes]).
// FrameReader reads them back and Stream paces them into a voice
// connection's send channel.
package opus
