package book

// PriceLevel is a read-only snapshot of one resting price level, safe to
// hold onto after the Book has moved on (unlike the internal priceLevel
// node, it shares no mutable state with the tree).
type PriceLevel struct {
	Price         int64
	AggregateSize uint64
	Count         int
}

// Volume returns Price * AggregateSize, the notional value resting at this
// level.
func (p PriceLevel) Volume() int64 {
	return p.Price * int64(p.AggregateSize)
}

func newPriceLevelView(lvl *priceLevel) PriceLevel {
	return PriceLevel{
		Price:         lvl.price,
		AggregateSize: lvl.aggregateSize,
		Count:         lvl.queue.count,
	}
}

// Resting returns the current state of a resting order by id.
func (b *Book) Resting(id uint64) (Order, bool) {
	node, ok := b.orders[id]
	if !ok {
		return Order{}, false
	}
	return node.toOrder(), true
}

// Orders returns the resting orders at this price level, in FIFO order,
// read live off the Book. The returned slice is a snapshot; it does not
// track subsequent mutation.
func (b *Book) Orders(side Side, price int64) ([]Order, bool) {
	lvl, ok := b.levelsFor(side)[price]
	if !ok {
		return nil, false
	}
	out := make([]Order, 0, lvl.queue.count)
	for o := lvl.queue.head; o != nil; o = o.next {
		out = append(out, o.toOrder())
	}
	return out, true
}
