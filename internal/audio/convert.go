package audio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ConversionError reports a failed container conversion.
type ConversionError struct {
	Src string
	Err error
}

func (e *ConversionError) Error() string { return fmt.Sprintf("convert %s: %v", e.Src, e.Err) }
func (e *ConversionError) Unwrap() error { return e.Err }

// Converter turns a downloaded audio file into a format the
// transcription gateway accepts.
type Converter interface {
	Convert(ctx context.Context, src, dstFormat string) (string, error)
}

// FFmpeg shells out to the ffmpeg binary, like the original voice
// pipeline. The destination sits next to the source with the new
// extension.
type FFmpeg struct{}

func (FFmpeg) Convert(ctx context.Context, src, dstFormat string) (string, error) {
	dst := strings.TrimSuffix(src, filepath.Ext(src)) + "." + dstFormat
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y", "-i", src, dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &ConversionError{Src: src, Err: fmt.Errorf("%v: %s", err, lastLine(out))}
	}
	return dst, nil
}

// lastLine keeps error output short; ffmpeg prints its banner first and
// the actual failure last.
func lastLine(out []byte) string {
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
