package server

import (
	"context"
	"encoding/base64"
	"net/http"
	"strconv"
	"sync"

	"github.com/launchdarkly/eventsource"
)

const feedChannel = "edits"

// Event names sent on the feed.
const (
	FeedEventEdits = "edits" // data is a base64 FrameEdits frame, id its sequence
	FeedEventGap   = "gap"   // the requested frames left the window; id and data are the oldest held
)

type feedEvent struct {
	id   string
	name string
	data string
}

func (e feedEvent) Id() string    { return e.id }
func (e feedEvent) Event() string { return e.name }
func (e feedEvent) Data() string  { return e.data }

func editsEvent(seq uint64, frame []byte) feedEvent {
	return feedEvent{
		id:   strconv.FormatUint(seq, 10),
		name: FeedEventEdits,
		data: base64.StdEncoding.EncodeToString(frame),
	}
}

// EventFeed mirrors published edit frames to Server-Sent Events observers.
// It is a Recorder; pass it to WithRecorder and mount it with
// RouterConfig.Events. Observers reconnecting with Last-Event-ID receive the
// frames they missed while those are still in the feed's window.
type EventFeed struct {
	srv     *eventsource.Server
	history *EditHistory

	mu     sync.RWMutex
	closed bool
}

// NewEventFeed creates a feed keeping the last window frames for replay.
func NewEventFeed(window int) *EventFeed {
	f := &EventFeed{
		srv:     eventsource.NewServer(),
		history: NewEditHistory(window),
	}
	f.srv.Register(feedChannel, f)
	return f
}

// Record implements Recorder.
func (f *EventFeed) Record(_ context.Context, seq uint64, frame []byte) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil
	}
	f.history.Add(seq, frame)
	f.srv.Publish([]string{feedChannel}, editsEvent(seq, frame))
	return nil
}

// Replay implements eventsource.Repository.
func (f *EventFeed) Replay(_, id string) chan eventsource.Event {
	last, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		last = 0
	}

	var events []eventsource.Event
	oldest, newest := f.history.MinSeq(), f.history.MaxSeq()
	if newest > last {
		from := last
		if last+1 < oldest {
			gap := strconv.FormatUint(oldest, 10)
			events = append(events, feedEvent{id: gap, name: FeedEventGap, data: gap})
			from = oldest - 1
		}
		frames := f.history.Frames(from, newest)
		for i, frame := range frames {
			events = append(events, editsEvent(from+1+uint64(i), frame))
		}
	}

	out := make(chan eventsource.Event, len(events))
	for _, ev := range events {
		out <- ev
	}
	close(out)
	return out
}

// ServeHTTP streams the feed.
func (f *EventFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.srv.Handler(feedChannel)(w, r)
}

// Close disconnects every observer. Frames recorded afterwards are dropped.
func (f *EventFeed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.srv.Close()
}
