package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"kanban-api/domain"
)

const streamHeartbeat = 15 * time.Second

// Broker fans board snapshots out to SSE clients. Each subscriber holds at
// most one pending snapshot; a newer one replaces it, so a slow client only
// ever skips intermediate states.
type Broker struct {
	mu     sync.Mutex
	subs   map[chan []byte]struct{}
	latest []byte
	logger *log.Logger
}

func NewBroker(logger *log.Logger) *Broker {
	return &Broker{subs: make(map[chan []byte]struct{}), logger: logger}
}

// Attach publishes every change of b. The returned func detaches.
func (br *Broker) Attach(b Board) func() {
	br.Publish(b.Snapshot())
	return b.Subscribe(br.Publish)
}

// Publish encodes p and hands it to every subscriber without blocking.
func (br *Broker) Publish(p domain.Partition) {
	data, err := domain.EncodePartition(p)
	if err != nil {
		br.logger.WithError(err).Error("encode board snapshot")
		return
	}

	br.mu.Lock()
	defer br.mu.Unlock()
	br.latest = data
	for ch := range br.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- data:
		default:
		}
	}
}

func (br *Broker) subscribe() chan []byte {
	ch := make(chan []byte, 1)
	br.mu.Lock()
	br.subs[ch] = struct{}{}
	if br.latest != nil {
		ch <- br.latest
	}
	br.mu.Unlock()
	return ch
}

func (br *Broker) unsubscribe(ch chan []byte) {
	br.mu.Lock()
	delete(br.subs, ch)
	br.mu.Unlock()
}

// Subscribers reports the number of connected stream clients.
func (br *Broker) Subscribers() int {
	br.mu.Lock()
	defer br.mu.Unlock()
	return len(br.subs)
}

func streamBoard(broker *Broker) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		c.Response().WriteHeader(http.StatusOK)
		flusher.Flush()

		ctx := c.Request().Context()
		ch := broker.subscribe()
		defer broker.unsubscribe(ch)
		heartbeat := time.NewTicker(streamHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-heartbeat.C:
				if _, err := c.Response().Write([]byte(": ping\n\n")); err != nil {
					return nil
				}
			case data := <-ch:
				if _, err := c.Response().Write([]byte("event: board\ndata: ")); err != nil {
					return nil
				}
				if _, err := c.Response().Write(data); err != nil {
					return nil
				}
				if _, err := c.Response().Write([]byte("\n\n")); err != nil {
					return nil
				}
			}
			flusher.Flush()
		}
	}
}
