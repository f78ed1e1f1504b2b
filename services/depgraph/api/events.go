// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/AleutianAI/uiregistry/services/depgraph"
)

// EventTypeAnalysis is the type of events sent after each published Result.
const EventTypeAnalysis = "analysis"

// eventBuffer is how many unsent events a slow subscriber may queue
// before older ones are dropped.
const eventBuffer = 8

// Event is one message on the /events stream.
type Event struct {
	Type       string        `json:"type"`
	Sequence   uint64        `json:"sequence"`
	Time       time.Time     `json:"time"`
	Stats      StatsResponse `json:"stats"`
	Candidates []Candidate   `json:"candidates"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// broadcaster fans events out to websocket subscribers.
type broadcaster struct {
	mu       sync.Mutex
	seq      uint64
	last     *Event
	channels map[chan Event]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{channels: make(map[chan Event]struct{})}
}

// publish builds the event for r and queues it on every subscriber,
// dropping the oldest queued event of subscribers that are full.
func (b *broadcaster) publish(r *depgraph.Result) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	ev := Event{
		Type:     EventTypeAnalysis,
		Sequence: b.seq,
		Time:     time.Now().UTC(),
		Stats: StatsResponse{
			Root:  r.Root,
			Scan:  r.ScanStats,
			Graph: r.Graph.Stats(),
		},
		Candidates: CandidateList(r),
	}
	b.last = &ev

	for ch := range b.channels {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

// subscribe registers a channel primed with the latest event, if any.
func (b *broadcaster) subscribe() chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, eventBuffer)
	if b.last != nil {
		ch <- *b.last
	}
	b.channels[ch] = struct{}{}
	return ch
}

func (b *broadcaster) unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.channels, ch)
}

// HandleEvents handles GET /v1/uiregistry/events (websocket).
//
// Description:
//
//	Upgrades the connection and sends an Event for the current Result,
//	if one is published, then one per subsequent SetResult. Client
//	messages are ignored; the stream ends when the client disconnects.
func (h *Handlers) HandleEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	sessionID := uuid.NewString()
	h.logger.Debug("event subscriber connected", "session", sessionID)

	ch := h.events.subscribe()
	defer h.events.unsubscribe(ch)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Debug("event subscriber disconnected", "session", sessionID)
			return
		case <-c.Request.Context().Done():
			return
		case ev := <-ch:
			if err := ws.WriteJSON(ev); err != nil {
				h.logger.Debug("event write failed", "session", sessionID, "error", err)
				return
			}
		}
	}
}
