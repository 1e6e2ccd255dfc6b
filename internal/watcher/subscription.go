package watcher

// Subscription receives every event broadcast after it was created.
type Subscription struct {
	w  *Watcher
	ch chan Event
}

// Subscribe registers a new receiver. On a closed watcher the returned
// subscription's channel is already closed.
func (w *Watcher) Subscribe() *Subscription {
	s := &Subscription{w: w, ch: make(chan Event, w.bufSize)}
	w.subMu.Lock()
	defer w.subMu.Unlock()
	select {
	case <-w.done:
		close(s.ch)
	default:
		w.subs[s] = struct{}{}
	}
	return s
}

// Events is closed when the subscription or the watcher is closed.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close stops delivery to s.
func (s *Subscription) Close() {
	s.w.subMu.Lock()
	defer s.w.subMu.Unlock()
	if _, ok := s.w.subs[s]; ok {
		delete(s.w.subs, s)
		close(s.ch)
	}
}

// broadcast never blocks: a full buffer loses its oldest event.
func (w *Watcher) broadcast(ev Event) {
	w.subMu.Lock()
	defer w.subMu.Unlock()
	for s := range w.subs {
		w.deliver(s.ch, ev)
	}
}

func (w *Watcher) deliver(ch chan Event, ev Event) {
	for {
		select {
		case ch <- ev:
			return
		default:
		}
		select {
		case <-ch:
			w.dropped.Add(1)
		default:
		}
	}
}

// Inject broadcasts ev as if it came from the OS.
func (w *Watcher) Inject(ev Event) { w.broadcast(ev) }
