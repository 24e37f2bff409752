package feed

import "github.com/alfredjeanlab/taskboard/internal/model"

// Transport delivers raw change payloads for one table at a time.
type Transport interface {
	// Subscribe delivers raw payloads for table on the returned channel, in
	// the order the backend emitted them. Call the returned cancel function
	// to unsubscribe and close the channel.
	Subscribe(table model.Table) (<-chan []byte, func(), error)
	Close() error
}
