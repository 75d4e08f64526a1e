package gesture

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MaxReplayInputs bounds the number of pointer inputs accepted by Replay
	MaxReplayInputs = 64
	// MaxReplaySpan bounds the timestamp of any input, in milliseconds
	MaxReplaySpan = int64(60 * time.Second / time.Millisecond)
)

var (
	ErrNoInputs       = errors.New("no pointer inputs")
	ErrTooManyInputs  = fmt.Errorf("more than %d pointer inputs", MaxReplayInputs)
	ErrOutOfOrder     = errors.New("pointer inputs are not in time order")
	ErrSpanTooLong    = fmt.Errorf("pointer inputs span more than %dms", MaxReplaySpan)
	ErrUnknownPointer = errors.New("unknown pointer input type")
)

// Input is a recorded pointer event. T is milliseconds since the first input.
type Input struct {
	Type string  `json:"type"` // press, move or release
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	T    int64   `json:"t"`
}

// Replay runs recorded inputs through a fresh classifier and returns every
// outcome, including a trailing Single whose window closes after the last input.
func Replay(cfg Config, inputs []Input) ([]Event, error) {
	if len(inputs) == 0 {
		return nil, ErrNoInputs
	}
	if len(inputs) > MaxReplayInputs {
		return nil, ErrTooManyInputs
	}

	c := NewClassifier(cfg)
	base := time.Unix(0, 0).UTC()
	var events []Event
	var last int64
	for i, in := range inputs {
		if in.T < last {
			return nil, fmt.Errorf("%w at input %d", ErrOutOfOrder, i)
		}
		if in.T > MaxReplaySpan {
			return nil, fmt.Errorf("%w at input %d", ErrSpanTooLong, i)
		}
		last = in.T

		at := base.Add(time.Duration(in.T) * time.Millisecond)
		p := Point{X: in.X, Y: in.Y}
		switch in.Type {
		case "press":
			events = append(events, c.Press(p, at)...)
		case "move":
			c.Move(p, at)
		case "release":
			events = append(events, c.Release(p, at)...)
		default:
			return nil, fmt.Errorf("%w %q", ErrUnknownPointer, in.Type)
		}
	}

	end := base.Add(time.Duration(last)*time.Millisecond + c.cfg.Window)
	events = append(events, c.Advance(end)...)
	return events, nil
}
