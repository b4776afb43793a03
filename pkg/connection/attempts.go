package connection

import "veilo/pkg/models"

// attemptLog is a fixed-capacity ring of connection attempts. Once full, the
// oldest entry is overwritten first.
type attemptLog struct {
	entries []models.ConnectionAttempt
	next    int
	full    bool
}

func newAttemptLog(size int) *attemptLog {
	if size <= 0 {
		size = 1
	}
	return &attemptLog{entries: make([]models.ConnectionAttempt, size)}
}

func (l *attemptLog) add(attempt models.ConnectionAttempt) {
	l.entries[l.next] = attempt
	l.next = (l.next + 1) % len(l.entries)
	if l.next == 0 {
		l.full = true
	}
}

func (l *attemptLog) len() int {
	if l.full {
		return len(l.entries)
	}
	return l.next
}

// snapshot returns the retained attempts, oldest first.
func (l *attemptLog) snapshot() []models.ConnectionAttempt {
	out := make([]models.ConnectionAttempt, 0, l.len())
	if l.full {
		out = append(out, l.entries[l.next:]...)
	}
	return append(out, l.entries[:l.next]...)
}
