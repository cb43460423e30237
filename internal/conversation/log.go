package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"chat-widget/internal/chatapi"
)

// Kind tells the turn variants apart
type Kind int

const (
	KindUser Kind = iota
	KindPending
	KindAgent
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindPending:
		return "pending"
	case KindAgent:
		return "agent"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Turn is one entry of the conversation log
type Turn struct {
	ID         int
	Kind       Kind
	Text       string
	References []chatapi.Reference // agent turns only, linked references
	Markup     string
	Timestamp  time.Time
}

// Log is the append-only, ordered list of rendered turns. The only in-place
// change allowed is resolving a pending turn.
type Log struct {
	mu     sync.RWMutex
	turns  []Turn
	nextID int
}

// NewLog creates an empty log
func NewLog() *Log {
	return &Log{}
}

// Append adds a turn at the end and returns it with its ID assigned
func (l *Log) Append(t Turn) Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.nextID++
	t.ID = l.nextID
	if t.Timestamp.IsZero() {
		t.Timestamp = time.Now()
	}
	l.turns = append(l.turns, t)
	return t
}

// ResolvePending replaces the pending turn with the given ID by its terminal
// entry, keeping its position.
func (l *Log) ResolvePending(id int, t Turn) (Turn, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.turns {
		if l.turns[i].ID != id {
			continue
		}
		if l.turns[i].Kind != KindPending {
			return Turn{}, fmt.Errorf("turn %d is %s, not pending", id, l.turns[i].Kind)
		}
		if t.Kind == KindPending {
			return Turn{}, fmt.Errorf("turn %d cannot resolve to another pending turn", id)
		}
		t.ID = id
		if t.Timestamp.IsZero() {
			t.Timestamp = time.Now()
		}
		l.turns[i] = t
		return t, nil
	}
	return Turn{}, fmt.Errorf("turn %d not found", id)
}

// Turns returns a copy of the log in chronological order
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()

	copied := make([]Turn, len(l.turns))
	copy(copied, l.turns)
	return copied
}

// Len returns the number of turns
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// HasPending reports whether a request is still awaiting its result
func (l *Log) HasPending() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, t := range l.turns {
		if t.Kind == KindPending {
			return true
		}
	}
	return false
}

// HTML renders the whole log as the widget's message list
func (l *Log) HTML() string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString(`<div id="chatMessages">`)
	for _, t := range l.turns {
		sb.WriteString(t.Markup)
	}
	sb.WriteString(`</div>`)
	return sb.String()
}
