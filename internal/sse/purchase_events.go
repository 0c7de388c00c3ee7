package sse

import (
	"context"
	"sync"

	"ticket-ledger/internal/models"
)

// PurchaseEventEmitter manages SSE connections and broadcasts confirmed
// purchases to the owner's live dashboard.
type PurchaseEventEmitter struct {
	clients     []chan models.PurchaseReceipt
	clientMutex sync.RWMutex
}

func NewPurchaseEventEmitter() *PurchaseEventEmitter {
	return &PurchaseEventEmitter{}
}

// Subscribe adds a client. The channel is closed and removed when ctx ends.
func (e *PurchaseEventEmitter) Subscribe(ctx context.Context) chan models.PurchaseReceipt {
	clientChan := make(chan models.PurchaseReceipt, 10)

	e.clientMutex.Lock()
	e.clients = append(e.clients, clientChan)
	e.clientMutex.Unlock()

	go func() {
		<-ctx.Done()
		e.removeClient(clientChan)
	}()

	return clientChan
}

// EmitPurchase broadcasts a committed purchase to all subscribers.
func (e *PurchaseEventEmitter) EmitPurchase(receipt models.PurchaseReceipt) {
	e.clientMutex.RLock()
	clients := make([]chan models.PurchaseReceipt, len(e.clients))
	copy(clients, e.clients)
	e.clientMutex.RUnlock()

	for _, clientChan := range clients {
		// Non-blocking send so a slow client never stalls the emitter.
		select {
		case clientChan <- receipt:
		default:
		}
	}
}

func (e *PurchaseEventEmitter) removeClient(clientChan chan models.PurchaseReceipt) {
	e.clientMutex.Lock()
	defer e.clientMutex.Unlock()

	for i, ch := range e.clients {
		if ch == clientChan {
			e.clients = append(e.clients[:i], e.clients[i+1:]...)
			close(clientChan)
			break
		}
	}
}
