package tui

import "sync"

type noteKind int

const (
	noteInfo noteKind = iota
	noteSuccess
	noteError
)

type note struct {
	kind noteKind
	text string
}

// flashNotifier queues editor notifications until the model drains them
// into the flash line. Editors call it from command goroutines.
type flashNotifier struct {
	mu    sync.Mutex
	queue []note
}

func (n *flashNotifier) push(kind noteKind, msg string) {
	n.mu.Lock()
	n.queue = append(n.queue, note{kind: kind, text: msg})
	n.mu.Unlock()
}

func (n *flashNotifier) Info(msg string)    { n.push(noteInfo, msg) }
func (n *flashNotifier) Success(msg string) { n.push(noteSuccess, msg) }
func (n *flashNotifier) Error(msg string)   { n.push(noteError, msg) }

// drain returns and clears the queued notes.
func (n *flashNotifier) drain() []note {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.queue
	n.queue = nil
	return out
}
