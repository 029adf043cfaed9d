package sse

import (
	"context"
	"sync"

	"ms-registration/internal/models"
)

// RegistrationFeed fans committed ledger changes out to live subscribers of
// each event. It implements the ledger's Notifier.
type RegistrationFeed struct {
	clients map[int64][]chan models.RegistrationUpdate
	mu      sync.RWMutex
	buffer  int
}

func NewRegistrationFeed() *RegistrationFeed {
	return &RegistrationFeed{
		clients: make(map[int64][]chan models.RegistrationUpdate),
		buffer:  10,
	}
}

// Subscribe registers a client for one event. The channel is closed once ctx
// is done.
func (f *RegistrationFeed) Subscribe(ctx context.Context, eventID int64) <-chan models.RegistrationUpdate {
	clientChan := make(chan models.RegistrationUpdate, f.buffer)

	f.mu.Lock()
	f.clients[eventID] = append(f.clients[eventID], clientChan)
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.remove(eventID, clientChan)
	}()

	return clientChan
}

// Notify broadcasts an update to the event's subscribers. Sends never block;
// a client whose buffer is full misses the update.
func (f *RegistrationFeed) Notify(update models.RegistrationUpdate) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, clientChan := range f.clients[update.EventID] {
		select {
		case clientChan <- update:
		default:
		}
	}
}

func (f *RegistrationFeed) remove(eventID int64, clientChan chan models.RegistrationUpdate) {
	f.mu.Lock()
	defer f.mu.Unlock()

	clients := f.clients[eventID]
	for i, ch := range clients {
		if ch == clientChan {
			f.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(clientChan)
			break
		}
	}

	if len(f.clients[eventID]) == 0 {
		delete(f.clients, eventID)
	}
}

// ClientCount returns the number of live subscribers of an event.
func (f *RegistrationFeed) ClientCount(eventID int64) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients[eventID])
}
