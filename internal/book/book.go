// Package book implements an in-memory, price-time-priority limit order
// book: two AVL trees of price levels (one per side), each level owning an
// intrusive FIFO queue of resting orders, cross-indexed by order id so that
// cancel and modify are O(log n) instead of O(n).
package book

import "fmt"

// Option configures a Book at construction time.
type Option func(*Book)

// WithClock overrides the source of timestamps stamped onto orders that
// arrive with Timestamp == 0. Production code should not need this; tests
// use it for determinism.
func WithClock(c Clock) Option {
	return func(b *Book) { b.clock = c }
}

// WithAssertions enables expensive invariant checking after every mutation.
// Intended for tests and development builds only.
func WithAssertions(enabled bool) Option {
	return func(b *Book) { b.assertions = enabled }
}

// WithObserver registers an Observer to receive a synchronous stream of
// mutation events. Multiple calls compose; every registered observer is
// notified of every event.
func WithObserver(o Observer) Option {
	return func(b *Book) {
		if b.observer == nil {
			b.observer = o
			return
		}
		if m, ok := b.observer.(multiObserver); ok {
			b.observer = append(m, o)
			return
		}
		b.observer = multiObserver{b.observer, o}
	}
}

// Book is a two-sided limit order book. The zero value is not usable; build
// one with NewBook. A Book is not safe for concurrent use — callers that
// need concurrent access should serialize writes through a single goroutine
// (see internal/api for the reference gateway that does exactly this).
type Book struct {
	bidSentinel *priceLevel
	askSentinel *priceLevel

	bestBid *priceLevel
	bestAsk *priceLevel

	orders    map[uint64]*orderNode
	bidLevels map[int64]*priceLevel
	askLevels map[int64]*priceLevel

	clock      Clock
	assertions bool
	observer   Observer
}

// NewBook constructs an empty Book.
func NewBook(opts ...Option) *Book {
	b := &Book{
		bidSentinel: newSentinel(),
		askSentinel: newSentinel(),
		orders:      make(map[uint64]*orderNode),
		bidLevels:   make(map[int64]*priceLevel),
		askLevels:   make(map[int64]*priceLevel),
		clock:       WallClock{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Book) sentinelFor(s Side) *priceLevel {
	if s == Bid {
		return b.bidSentinel
	}
	return b.askSentinel
}

func (b *Book) levelsFor(s Side) map[int64]*priceLevel {
	if s == Bid {
		return b.bidLevels
	}
	return b.askLevels
}

func (b *Book) bestFor(s Side) *priceLevel {
	if s == Bid {
		return b.bestBid
	}
	return b.bestAsk
}

func (b *Book) setBest(s Side, lvl *priceLevel) {
	if s == Bid {
		b.bestBid = lvl
	} else {
		b.bestAsk = lvl
	}
}

// betterThan reports whether challenger outranks incumbent for side s: a
// higher price wins on the bid side, a lower price wins on the ask side.
func betterThan(s Side, challenger, incumbent int64) bool {
	if s == Bid {
		return challenger > incumbent
	}
	return challenger < incumbent
}

// Process is a convenience dispatcher matching the reference
// implementation's single entry point: an order with Size == 0 cancels any
// resting order with the same ID; an ID already resting in the book is
// treated as a size update; anything else is a fresh Add. A zero-size
// message for an id that isn't resting is a speculative cancel, not a
// malformed message: it reports ErrOrderNotFound, same as Remove would,
// rather than ErrInvalidOrder.
func (b *Book) Process(o Order) error {
	_, resting := b.orders[o.ID]
	switch {
	case o.Size == 0 && resting:
		return b.Remove(o.ID)
	case o.Size == 0:
		return fmt.Errorf("%w: order %d", ErrOrderNotFound, o.ID)
	case resting:
		return b.Update(o)
	default:
		return b.Add(o)
	}
}

// Add inserts a new resting order. It returns ErrInvalidOrder if size or
// price is non-positive, and ErrDuplicateOrder if an order with the same ID
// already rests in the book.
func (b *Book) Add(o Order) error {
	if o.Size == 0 || o.Price <= 0 {
		return fmt.Errorf("%w: order %d has size=%d price=%d", ErrInvalidOrder, o.ID, o.Size, o.Price)
	}
	if _, exists := b.orders[o.ID]; exists {
		return fmt.Errorf("%w: order %d", ErrDuplicateOrder, o.ID)
	}
	if o.Timestamp == 0 {
		o.Timestamp = b.clock.Now()
	}

	levels := b.levelsFor(o.Side)
	lvl, ok := levels[o.Price]
	opened := false
	if !ok {
		lvl = newPriceLevel(o.Price)
		levels[o.Price] = lvl
		insert(b.sentinelFor(o.Side), lvl)
		opened = true
	}

	node := &orderNode{
		id:        o.ID,
		side:      o.Side,
		size:      o.Size,
		price:     o.Price,
		timestamp: o.Timestamp,
	}
	lvl.queue.append(node)
	b.orders[o.ID] = node

	if best := b.bestFor(o.Side); best == nil || betterThan(o.Side, o.Price, best.price) {
		b.setBest(o.Side, lvl)
	}

	b.notify(Event{Kind: EventAdd, Order: node.toOrder()})
	if opened {
		b.notify(Event{Kind: EventLevelOpened, Order: node.toOrder()})
	}
	b.checkInvariants()
	return nil
}

// Update changes the size of a resting order in place, without touching its
// queue position (price-time priority is preserved: an update never jumps
// the line). The caller-supplied Side and Price must match the order's
// resting values; a mismatch is rejected rather than silently corrupting the
// book's indices, per the corrected semantics this book implements.
func (b *Book) Update(o Order) error {
	node, ok := b.orders[o.ID]
	if !ok {
		return fmt.Errorf("%w: order %d", ErrOrderNotFound, o.ID)
	}
	if node.side != o.Side {
		return fmt.Errorf("%w: order %d rests on %s, got %s", ErrInvalidOrder, o.ID, node.side, o.Side)
	}
	if node.price != o.Price {
		return fmt.Errorf("%w: order %d rests at price %d, got %d", ErrInvalidOrder, o.ID, node.price, o.Price)
	}
	if o.Size == 0 {
		return b.Remove(o.ID)
	}

	lvl := node.level
	if o.Size > node.size {
		lvl.aggregateSize += o.Size - node.size
	} else {
		lvl.aggregateSize -= node.size - o.Size
	}
	node.size = o.Size

	b.notify(Event{Kind: EventUpdate, Order: node.toOrder()})
	b.checkInvariants()
	return nil
}

// Remove cancels a resting order, pruning its price level out of the tree
// once the level's last order is gone, and repairing the cached best-of-side
// pointer with the true in-order successor/predecessor rather than the
// node's AVL parent.
func (b *Book) Remove(id uint64) error {
	node, ok := b.orders[id]
	if !ok {
		return fmt.Errorf("%w: order %d", ErrOrderNotFound, id)
	}
	lvl := node.level
	side := node.side
	delete(b.orders, id)
	lvl.queue.unlink(node)

	removedOrder := node.toOrder()
	closed := lvl.queue.count == 0

	if closed {
		if b.bestFor(side) == lvl {
			b.setBest(side, sideNeighbor(side, lvl))
		}
		delete(b.levelsFor(side), lvl.price)
		lvl.remove()
	}

	b.notify(Event{Kind: EventRemove, Order: removedOrder})
	if closed {
		b.notify(Event{Kind: EventLevelClosed, Order: removedOrder})
	}
	b.checkInvariants()
	return nil
}

// sideNeighbor returns the price level that should become the new
// best-of-side once lvl (the current best) is deleted: the in-order
// predecessor on the bid side (next price down) or successor on the ask
// side (next price up). Both are O(log n) tree walks computed before lvl is
// unlinked, which is the fix for the reference implementation's reliance on
// the deleted node's AVL parent — a pointer with no necessary relationship
// to price order.
func sideNeighbor(side Side, lvl *priceLevel) *priceLevel {
	if side == Bid {
		return predecessor(lvl)
	}
	return successor(lvl)
}

// TopLevel returns the best resting price level on the given side. The
// second return value is false if that side of the book is empty.
func (b *Book) TopLevel(side Side) (PriceLevel, bool) {
	lvl := b.bestFor(side)
	if lvl == nil {
		return PriceLevel{}, false
	}
	return newPriceLevelView(lvl), true
}

// Levels returns up to depth resting price levels on the given side,
// ordered from best to worst. A depth <= 0 returns every qualifying level
// on that side.
//
// A book with no matching engine can go crossed (a resting bid at or above
// the best ask, or vice versa); Levels excludes those crossed prices from
// the view rather than reporting them as live depth, mirroring the
// reference implementation's bid filter of p < best_ask.price and ask
// filter of p > best_bid.price. When the opposite side is empty there is
// nothing to filter against, so every level on this side qualifies.
func (b *Book) Levels(side Side, depth int) []PriceLevel {
	levels := b.levelsFor(side)
	if len(levels) == 0 {
		return nil
	}

	var limit int64
	hasLimit := false
	if opposite := b.bestFor(side.opposite()); opposite != nil {
		limit = opposite.price
		hasLimit = true
	}
	qualifies := func(price int64) bool {
		if !hasLimit {
			return true
		}
		if side == Bid {
			return price < limit
		}
		return price > limit
	}

	out := make([]PriceLevel, 0, len(levels))

	var walk func(n *priceLevel)
	if side == Bid {
		// Bids: best-to-worst is descending price, i.e. reverse in-order.
		walk = func(n *priceLevel) {
			if n == nil || (depth > 0 && len(out) >= depth) {
				return
			}
			walk(n.right)
			if depth > 0 && len(out) >= depth {
				return
			}
			if qualifies(n.price) {
				out = append(out, newPriceLevelView(n))
			}
			walk(n.left)
		}
	} else {
		walk = func(n *priceLevel) {
			if n == nil || (depth > 0 && len(out) >= depth) {
				return
			}
			walk(n.left)
			if depth > 0 && len(out) >= depth {
				return
			}
			if qualifies(n.price) {
				out = append(out, newPriceLevelView(n))
			}
			walk(n.right)
		}
	}
	walk(b.sentinelFor(side).right)

	if depth > 0 && len(out) > depth {
		out = out[:depth]
	}
	return out
}

func (b *Book) notify(e Event) {
	if b.observer != nil {
		b.observer.OnEvent(e)
	}
}
