package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/alfredjeanlab/taskboard/internal/model"
)

// DefaultNATSPrefix is the subject prefix change relays publish under.
const DefaultNATSPrefix = "tb.changes"

// NATSTransport receives row changes published on "<prefix>.<table>".
type NATSTransport struct {
	conn   *nats.Conn
	prefix string
	buffer int
}

// Compile-time check that NATSTransport implements Transport.
var _ Transport = (*NATSTransport)(nil)

// NewNATSTransport connects with automatic reconnection. Extra nats.Option
// values (e.g. disconnect/reconnect handlers) can be appended.
func NewNATSTransport(url, prefix string, opts ...nats.Option) (*NATSTransport, error) {
	if prefix == "" {
		prefix = DefaultNATSPrefix
	}
	defaults := []nats.Option{
		nats.Name("taskboard-feed"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	}
	nc, err := nats.Connect(url, append(defaults, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	return &NATSTransport{conn: nc, prefix: prefix, buffer: 256}, nil
}

// Subject returns the subject carrying changes for table.
func (t *NATSTransport) Subject(table model.Table) string {
	return t.prefix + "." + string(table)
}

// Subscribe returns a channel of raw payloads for table. Messages arriving
// while the channel is full are dropped rather than blocking the NATS client;
// a dropped change is recovered by the next event or a manual refresh.
func (t *NATSTransport) Subscribe(table model.Table) (<-chan []byte, func(), error) {
	ch := make(chan []byte, t.buffer)

	var (
		mu     sync.Mutex
		closed bool
		once   sync.Once
	)

	subject := t.Subject(table)
	sub, err := t.conn.Subscribe(subject, func(msg *nats.Msg) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return
		}
		select {
		case ch <- msg.Data:
		default:
		}
	})
	if err != nil {
		close(ch)
		return nil, nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	// Flush ensures the subscription is registered on the server before
	// returning, so that messages published on other connections are routed.
	if err := t.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		close(ch)
		return nil, nil, fmt.Errorf("flushing subscription: %w", err)
	}

	cancel := func() {
		once.Do(func() {
			_ = sub.Unsubscribe()
			mu.Lock()
			closed = true
			mu.Unlock()
			for {
				select {
				case <-ch:
				default:
					close(ch)
					return
				}
			}
		})
	}

	return ch, cancel, nil
}

// Publish encodes change and publishes it on the table's subject. Relays
// that bridge the database into NATS use it.
func (t *NATSTransport) Publish(change RawChange) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("marshaling change: %w", err)
	}
	return t.conn.Publish(t.Subject(change.Table), data)
}

// Flush waits until the server has processed everything published so far.
func (t *NATSTransport) Flush() error {
	return t.conn.Flush()
}

func (t *NATSTransport) Close() error {
	t.conn.Close()
	return nil
}
