package llm

import (
	"context"
	"time"
)

const mockPrefix = "[模拟翻译] "

// Mock stands in for a model when none is configured. It echoes the head of
// the chunk behind a marker after an optional delay.
type Mock struct {
	Delay time.Duration
}

func NewMock(delay time.Duration) *Mock {
	return &Mock{Delay: delay}
}

func (m *Mock) Name() string { return "Mock" }

func (m *Mock) Translate(ctx context.Context, req Request, onDelta DeltaHandler) (string, error) {
	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	text := mockPrefix + Head(req.Text, 50)
	if len([]rune(req.Text)) > 50 {
		text += "..."
	}
	if onDelta != nil {
		if err := onDelta(text); err != nil {
			return "", err
		}
	}
	return text, nil
}
