package book

// EventKind identifies the kind of mutation an Observer is notified of.
type EventKind uint8

const (
	// EventAdd fires after an order is added to the book.
	EventAdd EventKind = iota
	// EventUpdate fires after a resting order's size is changed.
	EventUpdate
	// EventRemove fires after an order is removed from the book.
	EventRemove
	// EventLevelOpened fires the first time a price acquires a resting
	// order (a new priceLevel is inserted into the tree).
	EventLevelOpened
	// EventLevelClosed fires when a price level's last order is removed
	// and the level is pruned from the tree.
	EventLevelClosed
)

// Event describes a single book mutation, delivered synchronously on the
// calling goroutine. Observers must not call back into the Book that
// produced them.
type Event struct {
	Kind  EventKind
	Order Order
}

// Observer receives a stream of book mutation events. It is the seam the
// gateway's websocket hub (internal/api) hangs off of to broadcast book
// deltas without the core book package depending on any transport.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(Event)

// OnEvent implements Observer.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

type multiObserver []Observer

func (m multiObserver) OnEvent(e Event) {
	for _, o := range m {
		o.OnEvent(e)
	}
}
