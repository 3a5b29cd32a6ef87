package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/clinicsync/internal/client/models"
)

// broadcaster hands the latest user snapshot to every subscriber. A slow
// subscriber only ever misses intermediate values, never the latest one.
type broadcaster struct {
	mu     sync.Mutex
	latest *models.User
	has    bool
	subs   map[chan *models.User]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan *models.User]struct{})}
}

func (b *broadcaster) publish(u *models.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.latest, b.has = u, true
	for ch := range b.subs {
		select {
		case <-ch:
		default:
		}
		ch <- u
	}
}

func (b *broadcaster) subscribe(ctx context.Context) <-chan *models.User {
	ch := make(chan *models.User, 1)

	b.mu.Lock()
	if b.has {
		ch <- b.latest
	}
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, ch)
		close(ch)
		b.mu.Unlock()
	}()
	return ch
}
