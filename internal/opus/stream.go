package opus

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrSendTimeout = errors.New("voice connection send timeout")

// sendTimeout bounds how long a single frame may wait for the voice
// connection to accept it.
var sendTimeout = time.Minute

// Stream reads frames from source and sends them to sink, usually a
// discordgo.VoiceConnection's OpusSend channel. It returns nil at the end of
// the source and ctx.Err() if ctx is cancelled first.
func Stream(ctx context.Context, source *FrameReader, sink chan<- []byte) error {
	timer := time.NewTimer(sendTimeout)
	defer timer.Stop()

	for {
		frame, err := source.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		timer.Reset(sendTimeout)
		select {
		case sink <- frame:
		case <-timer.C:
			return ErrSendTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
