// Package speech defines the audio-capture and speech-output
// collaborator boundaries, plus console implementations used when no
// audio hardware is wired up. Recognition and synthesis engines live
// behind these interfaces; the core only depends on the contracts.
package speech

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
)

// ErrUnrecognized reports that the capture backend heard audio but
// could not transcribe it. The turn is abandoned and the loop returns
// to listening.
var ErrUnrecognized = errors.New("could not understand audio")

// ErrBackendUnavailable reports that the capture backend itself failed
// (network, quota). Handled the same way as ErrUnrecognized.
var ErrBackendUnavailable = errors.New("speech backend unavailable")

// Listener yields one transcribed utterance per call, blocking until
// an utterance ends. io.EOF means the input source is exhausted and
// the session should end.
type Listener interface {
	Listen(ctx context.Context) (string, error)
}

// Speaker renders text audibly, best-effort. Failures are logged by
// callers, never fatal.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// maxUtteranceBytes bounds a single input line. Far beyond anything a
// recognizer produces, but keeps a runaway pipe from exhausting memory.
const maxUtteranceBytes = 1 << 20

// ConsoleListener reads utterances as lines from a reader. It is the
// default input when no microphone is configured.
type ConsoleListener struct {
	scanner *bufio.Scanner
	out     io.Writer
	failed  bool
}

// NewConsoleListener creates a listener over in, printing a prompt
// marker to out before each read.
func NewConsoleListener(in io.Reader, out io.Writer) *ConsoleListener {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxUtteranceBytes)
	return &ConsoleListener{
		scanner: scanner,
		out:     out,
	}
}

// Listen reads the next non-empty line. Blank lines count as
// unrecognized input; end of input returns io.EOF. A scanner error is
// sticky, so the first one is reported as ErrBackendUnavailable and
// every later call returns io.EOF: the stream is unusable and the
// session must end rather than retry forever.
func (l *ConsoleListener) Listen(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if l.failed {
		return "", io.EOF
	}
	fmt.Fprint(l.out, ">>> ")

	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			l.failed = true
			return "", fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return "", io.EOF
	}

	text := strings.TrimSpace(l.scanner.Text())
	if text == "" {
		return "", ErrUnrecognized
	}
	return text, nil
}

// ConsoleSpeaker writes spoken text to a writer. Used standalone when
// no player command is configured, and as the echo half of
// CommandSpeaker.
type ConsoleSpeaker struct {
	out io.Writer
}

// NewConsoleSpeaker creates a speaker that prints to out.
func NewConsoleSpeaker(out io.Writer) *ConsoleSpeaker {
	return &ConsoleSpeaker{out: out}
}

func (s *ConsoleSpeaker) Speak(_ context.Context, text string) error {
	_, err := fmt.Fprintln(s.out, text)
	return err
}

// CommandSpeaker shells out to an external synthesis program (espeak,
// say, a piper wrapper) with the text appended as the final argument.
// The text is always echoed to the console as well.
type CommandSpeaker struct {
	command []string
	echo    *ConsoleSpeaker
	logger  *slog.Logger
}

// NewCommandSpeaker parses a player command line like "espeak -v en".
// Returns an error for an empty command.
func NewCommandSpeaker(cmdline string, out io.Writer, logger *slog.Logger) (*CommandSpeaker, error) {
	fields := strings.Fields(cmdline)
	if len(fields) == 0 {
		return nil, errors.New("empty player command")
	}
	return &CommandSpeaker{
		command: fields,
		echo:    NewConsoleSpeaker(out),
		logger:  logger,
	}, nil
}

// Speak runs the player synchronously; playback blocks the calling
// goroutine, matching the turn loop's sequential speech contract.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	_ = s.echo.Speak(ctx, text)

	args := append(append([]string(nil), s.command[1:]...), text)
	cmd := exec.CommandContext(ctx, s.command[0], args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("player %s: %w (%s)", s.command[0], err, strings.TrimSpace(string(out)))
	}
	return nil
}
