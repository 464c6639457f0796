package index

import (
	"context"
	"sync/atomic"

	"github.com/starford/dagaz/internal/models"
)

// ChangeKind labels what a Change notification refers to.
type ChangeKind string

const (
	ChangeNoteSaved   ChangeKind = "note.saved"
	ChangeNoteDeleted ChangeKind = "note.deleted"
	ChangeCategory    ChangeKind = "category.changed"
	ChangeProfile     ChangeKind = "profile.changed"
)

// Change is one mutation notice emitted by the index. FileName is set for
// note changes only.
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Username string     `json:"username"`
	FileName string     `json:"file_name,omitempty"`
}

type subscriber struct {
	username string // "" subscribes to every user's changes
	ch       chan Change
}

// hub fans index mutations out to subscribers.
//
// Concurrency model: a single internal loop goroutine owns the subscriber
// set. Public methods communicate with the loop through channels, so no
// mutexes are required. Each subscriber gets its own buffered channel; a
// slow subscriber drops notices rather than blocking the loop.
type hub struct {
	subscribeCh   chan *subscriber
	unsubscribeCh chan *subscriber
	publishCh     chan Change

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

func newHub() *hub {
	h := &hub{
		subscribeCh:   make(chan *subscriber),
		unsubscribeCh: make(chan *subscriber),
		publishCh:     make(chan Change, 256),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *hub) run() {
	defer close(h.stopped)

	subs := make(map[*subscriber]struct{})
	for {
		select {
		case <-h.stopCh:
			for s := range subs {
				close(s.ch)
			}
			return

		case s := <-h.subscribeCh:
			subs[s] = struct{}{}

		case s := <-h.unsubscribeCh:
			if _, ok := subs[s]; ok {
				delete(subs, s)
				close(s.ch)
			}

		case c := <-h.publishCh:
			for s := range subs {
				if s.username != "" && s.username != c.Username {
					continue
				}
				select {
				case s.ch <- c:
				default:
					// Subscriber buffer full; skip to avoid blocking the loop.
				}
			}
		}
	}
}

func (h *hub) close() {
	if h.closed.CompareAndSwap(false, true) {
		close(h.stopCh)
	}
	<-h.stopped
}

func (h *hub) publish(c Change) {
	if h.closed.Load() {
		return
	}
	select {
	case h.publishCh <- c:
	case <-h.stopped:
	}
}

func (h *hub) subscribe(s *subscriber) {
	select {
	case h.subscribeCh <- s:
	case <-h.stopped:
		close(s.ch)
	}
}

func (h *hub) unsubscribe(s *subscriber) {
	select {
	case h.unsubscribeCh <- s:
	case <-h.stopped:
	}
}

// Subscription is a live stream of index changes.
type Subscription struct {
	C <-chan Change

	hub *hub
	sub *subscriber
}

// Cancel removes the subscription and closes its channel.
func (s *Subscription) Cancel() {
	s.hub.unsubscribe(s.sub)
}

// Subscribe returns a stream of changes for one user, or for every user when
// username is empty. Each subscription gets an independent stream.
func (db *DB) Subscribe(username string) *Subscription {
	sub := &subscriber{username: username, ch: make(chan Change, 64)}
	if db.hub.closed.Load() {
		close(sub.ch)
	} else {
		db.hub.subscribe(sub)
	}
	return &Subscription{C: sub.ch, hub: db.hub, sub: sub}
}

// WatchNotes is an observable collection query: it emits the user's current
// note records immediately, then re-emits the full result set after every
// change that touches the user's notes, until ctx is cancelled. Re-queries
// are coalesced, so a burst of changes may produce a single emission.
func (db *DB) WatchNotes(ctx context.Context, username string) <-chan []models.NoteRecord {
	out := make(chan []models.NoteRecord, 1)
	sub := db.Subscribe(username)

	go func() {
		defer close(out)
		defer sub.Cancel()

		for {
			recs, err := db.ListNotes(username)
			if err == nil {
				select {
				case out <- recs:
				case <-ctx.Done():
					return
				}
			}

			// Wait for the next relevant change, dropping category and
			// profile notices.
			for {
				select {
				case <-ctx.Done():
					return
				case c, ok := <-sub.C:
					if !ok {
						return
					}
					if c.Kind != ChangeNoteSaved && c.Kind != ChangeNoteDeleted {
						continue
					}
				}
				break
			}
		}
	}()
	return out
}
