package store

import (
	"sync"
	"time"
)

// Notifier fans out Change events to any number of watchers, keyed by
// collection name. Sends never block: a watcher that has not drained its
// channel keeps the pending change and later ones are coalesced into it.
type Notifier struct {
	mu       sync.Mutex
	watchers map[string]map[int]chan Change
	nextID   int
	hook     func(Change)
}

func NewNotifier() *Notifier {
	return &Notifier{watchers: make(map[string]map[int]chan Change)}
}

// Watch returns a channel that receives a Change whenever the named
// collection is mutated, and a cancel func that releases the watcher.
func (n *Notifier) Watch(collection string) (<-chan Change, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	ch := make(chan Change, 1)
	id := n.nextID
	n.nextID++
	if n.watchers[collection] == nil {
		n.watchers[collection] = make(map[int]chan Change)
	}
	n.watchers[collection][id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if set, ok := n.watchers[collection]; ok {
			delete(set, id)
			if len(set) == 0 {
				delete(n.watchers, collection)
			}
		}
	}
	return ch, cancel
}

// Broadcast delivers a change for the named collection to all its watchers
// and invokes the hook, if any.
func (n *Notifier) Broadcast(collection string) {
	n.deliver(collection, true)
}

// ApplyRemote delivers a change that originated on another instance. The
// hook is skipped so remote changes are not published back out.
func (n *Notifier) ApplyRemote(collection string) {
	n.deliver(collection, false)
}

func (n *Notifier) deliver(collection string, runHook bool) {
	change := Change{Collection: collection, At: time.Now().UTC()}

	n.mu.Lock()
	hook := n.hook
	for _, ch := range n.watchers[collection] {
		select {
		case ch <- change:
		default:
			// Watcher is behind; it will pick up the queued change.
		}
	}
	n.mu.Unlock()

	if runHook && hook != nil {
		hook(change)
	}
}

// SetChangeHook registers a callback invoked after every Broadcast. Used to
// relay local changes to other instances over the message broker.
func (n *Notifier) SetChangeHook(hook func(Change)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hook = hook
}
