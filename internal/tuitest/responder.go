package tuitest

import (
	"bytes"
	"io"
)

// terminalQueries are the capability probes lipgloss and termenv send at
// startup, with the answer a plain dark xterm would give. Without an answer
// the program stalls until its query timeout.
var terminalQueries = []struct {
	query, reply string
}{
	{"\x1b[6n", "\x1b[1;1R"},
	{"\x1b]10;?\x07", "\x1b]10;rgb:cccc/cccc/cccc\x07"},
	{"\x1b]10;?\x1b\\", "\x1b]10;rgb:cccc/cccc/cccc\x1b\\"},
	{"\x1b]11;?\x07", "\x1b]11;rgb:0000/0000/0000\x07"},
	{"\x1b]11;?\x1b\\", "\x1b]11;rgb:0000/0000/0000\x1b\\"},
}

type responder struct {
	w       io.Writer
	pending []byte
}

func newResponder(w io.Writer) *responder {
	return &responder{w: w}
}

// observe scans program output for queries and answers each one once. A short
// tail is kept so a query split across reads is still seen.
func (r *responder) observe(chunk []byte) {
	r.pending = append(r.pending, chunk...)
	for r.answerNext() {
	}
	if len(r.pending) > 64 {
		r.pending = append([]byte(nil), r.pending[len(r.pending)-16:]...)
	}
}

func (r *responder) answerNext() bool {
	first, at := -1, len(r.pending)
	for i, q := range terminalQueries {
		if idx := bytes.Index(r.pending, []byte(q.query)); idx >= 0 && idx < at {
			first, at = i, idx
		}
	}
	if first < 0 {
		return false
	}
	q := terminalQueries[first]
	r.pending = r.pending[at+len(q.query):]
	_, _ = io.WriteString(r.w, q.reply)
	return true
}
