package feed

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lib/pq"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// pgPingInterval keeps idle LISTEN connections from being dropped by
// middleboxes and detects dead connections early.
const pgPingInterval = 90 * time.Second

// ChannelName returns the LISTEN/NOTIFY channel the store's triggers use for table.
func ChannelName(table model.Table) string {
	return "tb_changes_" + string(table)
}

// PGTransport receives row changes straight from Postgres via LISTEN/NOTIFY.
// The store migrations install triggers that notify on ChannelName(table).
type PGTransport struct {
	listener *pq.Listener
	logger   *slog.Logger
	buffer   int

	mu     sync.Mutex
	routes map[string]chan []byte

	done chan struct{}
	wg   sync.WaitGroup
}

// Compile-time check that PGTransport implements Transport.
var _ Transport = (*PGTransport)(nil)

// NewPGTransport opens a reconnecting LISTEN connection to databaseURL.
func NewPGTransport(databaseURL string, logger *slog.Logger) *PGTransport {
	if logger == nil {
		logger = slog.Default()
	}
	t := newPGTransport(logger)
	t.listener = pq.NewListener(databaseURL, time.Second, time.Minute, t.onListenerEvent)
	t.wg.Add(1)
	go t.loop()
	return t
}

func newPGTransport(logger *slog.Logger) *PGTransport {
	return &PGTransport{
		logger: logger,
		buffer: 256,
		routes: make(map[string]chan []byte),
		done:   make(chan struct{}),
	}
}

func (t *PGTransport) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnected:
		t.logger.Info("feed: postgres listener connected")
	case pq.ListenerEventDisconnected:
		t.logger.Warn("feed: postgres listener disconnected", "err", err)
	case pq.ListenerEventReconnected:
		t.logger.Info("feed: postgres listener reconnected")
	case pq.ListenerEventConnectionAttemptFailed:
		t.logger.Warn("feed: postgres listener connection attempt failed", "err", err)
	}
}

func (t *PGTransport) loop() {
	defer t.wg.Done()

	ticker := time.NewTicker(pgPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case n := <-t.listener.Notify:
			if n == nil {
				// pq sends nil after re-establishing the connection;
				// notifications sent during the gap are lost.
				t.logger.Warn("feed: postgres listener re-established, changes during the gap were missed")
				continue
			}
			t.route(n.Channel, []byte(n.Extra))
		case <-ticker.C:
			go func() {
				if err := t.listener.Ping(); err != nil {
					t.logger.Warn("feed: postgres listener ping failed", "err", err)
				}
			}()
		}
	}
}

// route hands a payload to the subscriber of channel, dropping it if the
// subscriber is not keeping up.
func (t *PGTransport) route(channel string, payload []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.routes[channel]
	if !ok {
		return
	}
	select {
	case ch <- payload:
	default:
		t.logger.Warn("feed: dropping change, subscriber is behind", "channel", channel)
	}
}

func (t *PGTransport) addRoute(channel string) (chan []byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.routes[channel]; exists {
		return nil, fmt.Errorf("already subscribed to %s", channel)
	}
	ch := make(chan []byte, t.buffer)
	t.routes[channel] = ch
	return ch, nil
}

func (t *PGTransport) removeRoute(channel string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ch, ok := t.routes[channel]; ok {
		delete(t.routes, channel)
		close(ch)
	}
}

// Subscribe issues LISTEN for the table's channel.
func (t *PGTransport) Subscribe(table model.Table) (<-chan []byte, func(), error) {
	channel := ChannelName(table)
	ch, err := t.addRoute(channel)
	if err != nil {
		return nil, nil, err
	}
	if t.listener != nil {
		if err := t.listener.Listen(channel); err != nil {
			t.removeRoute(channel)
			return nil, nil, fmt.Errorf("listen %s: %w", channel, err)
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			if t.listener != nil {
				if err := t.listener.Unlisten(channel); err != nil {
					t.logger.Debug("feed: unlisten failed", "channel", channel, "err", err)
				}
			}
			t.removeRoute(channel)
		})
	}
	return ch, cancel, nil
}

// Close stops the listener and closes every open subscription channel.
func (t *PGTransport) Close() error {
	select {
	case <-t.done:
		return nil
	default:
		close(t.done)
	}
	t.wg.Wait()

	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}

	t.mu.Lock()
	for channel, ch := range t.routes {
		delete(t.routes, channel)
		close(ch)
	}
	t.mu.Unlock()
	return err
}
