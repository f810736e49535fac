package tuitest

import (
	"regexp"
	"strings"
	"time"
)

// Frame is one full-screen redraw.
type Frame struct {
	Index int
	ANSI  string
	Plain string
}

// Recording is the complete output of a finished program.
type Recording struct {
	Raw      []byte
	Frames   []Frame
	Duration time.Duration
}

// FinalFrame returns the last redraw, false when nothing was drawn.
func (r *Recording) FinalFrame() (Frame, bool) {
	if r == nil || len(r.Frames) == 0 {
		return Frame{}, false
	}
	return r.Frames[len(r.Frames)-1], true
}

var (
	// bubbletea clears the screen below the cursor before each redraw.
	eraseDisplay = regexp.MustCompile(`\x1b\[[0-9;]*J`)
	csiSequence  = regexp.MustCompile(`\x1b\[[0-9;?]*[A-Za-z]`)
	oscSequence  = regexp.MustCompile(`\x1b\][^\x07\x1b]*(\x07|\x1b\\)`)
	shiftChars   = strings.NewReplacer("\x0e", "", "\x0f", "", "\r", "")
)

func splitFrames(raw []byte) []Frame {
	text := strings.ReplaceAll(string(raw), "\r", "")
	var frames []Frame
	for _, segment := range eraseDisplay.Split(text, -1) {
		segment = strings.TrimPrefix(strings.Trim(segment, "\x00"), "\x1b[H")
		clean := tidy(plain([]byte(segment)))
		if strings.TrimSpace(clean) == "" {
			continue
		}
		frames = append(frames, Frame{Index: len(frames), ANSI: segment, Plain: clean})
	}
	if len(frames) == 0 && strings.TrimSpace(text) != "" {
		frames = append(frames, Frame{ANSI: text, Plain: tidy(plain(raw))})
	}
	return frames
}

// plain strips escape sequences.
func plain(raw []byte) string {
	s := oscSequence.ReplaceAllString(string(raw), "")
	s = csiSequence.ReplaceAllString(s, "")
	return shiftChars.Replace(s)
}

// tidy drops trailing spaces on every line and trailing blank lines.
func tidy(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}
