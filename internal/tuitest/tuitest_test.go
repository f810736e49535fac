package tuitest

import (
	"bytes"
	"testing"
)

func TestSplitFramesOnEraseDisplay(t *testing.T) {
	raw := []byte("\x1b[H\x1b[2Jfirst   \r\n\x1b[1mbold\x1b[0m\n\n\x1b[H\x1b[Jsecond\x1b]0;title\x07")
	frames := splitFrames(raw)
	if len(frames) != 2 {
		t.Fatalf("frames = %d (%q)", len(frames), frames)
	}
	if frames[0].Plain != "first\nbold" {
		t.Fatalf("first frame = %q", frames[0].Plain)
	}
	if frames[1].Plain != "second" || frames[1].Index != 1 {
		t.Fatalf("second frame = %+v", frames[1])
	}
	rec := &Recording{Frames: frames}
	if last, ok := rec.FinalFrame(); !ok || last.Plain != "second" {
		t.Fatalf("final frame = %+v %v", last, ok)
	}
	if _, ok := (*Recording)(nil).FinalFrame(); ok {
		t.Fatal("nil recording has no frames")
	}
}

func TestResponderAnswersSplitQueries(t *testing.T) {
	var replies bytes.Buffer
	r := newResponder(&replies)
	r.observe([]byte("hello \x1b]11"))
	r.observe([]byte(";?\x07 and \x1b[6n"))
	want := "\x1b]11;rgb:0000/0000/0000\x07\x1b[1;1R"
	if replies.String() != want {
		t.Fatalf("replies = %q", replies.String())
	}
	r.observe([]byte("no more queries"))
	if replies.String() != want {
		t.Fatal("a query must be answered once")
	}
}
