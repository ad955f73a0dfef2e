package opus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/jonas747/ogg"
)

// ffmpegArgs builds the FFmpeg command line for transcoding location to
// 48kHz stereo Opus in an Ogg container on stdout.
func ffmpegArgs(location string) []string {
	var args []string
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		args = append(args, "-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5")
	}
	return append(args,
		"-i", location,
		"-vn",
		"-map", "0:a",
		"-acodec", "libopus",
		"-f", "ogg",
		"-vbr", "on",
		"-compression_level", "10",
		"-ar", "48000",
		"-ac", "2",
		"-b:a", "64000",
		"-application", "audio",
		"-frame_duration", "20",
		"-packet_loss", "1",
		"-threads", "0",
		"-loglevel", "error",
		"pipe:1",
	)
}

// Encode starts FFmpeg on location and returns a reader of length-prefixed
// Opus frames. Cancelling ctx kills FFmpeg. The returned io.ReadCloser must
// be closed to reap the process.
func Encode(ctx context.Context, location string) (io.ReadCloser, error) {
	ffmpeg := exec.CommandContext(ctx, "ffmpeg", ffmpegArgs(location)...)

	var stderr strings.Builder
	ffmpeg.Stderr = &stderr

	stdout, err := ffmpeg.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := ffmpeg.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	pr, pw := io.Pipe()
	go func() {
		decoder := ogg.NewPacketDecoder(ogg.NewDecoder(stdout))
		err := repackage(func() ([]byte, error) {
			packet, _, err := decoder.Decode()
			return packet, err
		}, pw)
		if waitErr := ffmpeg.Wait(); err == nil && waitErr != nil {
			err = fmt.Errorf("ffmpeg exited: %w: %s", waitErr, strings.TrimSpace(stderr.String()))
		}
		pw.CloseWithError(err)
	}()

	return &encodeCloser{ReadCloser: pr, cmd: ffmpeg}, nil
}

// repackage copies Ogg packets to w as length-prefixed frames, skipping the
// two Opus header packets.
func repackage(next func() ([]byte, error), w io.Writer) error {
	skip := 2
	for {
		packet, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return fmt.Errorf("failed to decode ogg packet: %w", err)
		}
		if skip > 0 {
			skip--
			continue
		}
		if err := WriteFrame(w, packet); err != nil {
			return err
		}
	}
}

type encodeCloser struct {
	io.ReadCloser
	cmd *exec.Cmd
}

func (e *encodeCloser) Close() error {
	err := e.ReadCloser.Close()
	// FFmpeg may still be running if the reader stopped early.
	if e.cmd.Process != nil {
		_ = e.cmd.Process.Kill()
	}
	return err
}
