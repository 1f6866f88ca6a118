package book

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// shadowBook is a naive O(n) reference model: a flat map of resting orders,
// against which Book's cached best-bid/best-ask and the pruning of emptied
// levels are checked after every mutation. It exists purely to catch the class of bug
// the best-extremum-on-delete redesign targets, where a O(log n) shortcut
// disagrees with the obviously-correct linear scan.
type shadowBook struct {
	orders map[uint64]Order
}

func newShadowBook() *shadowBook {
	return &shadowBook{orders: make(map[uint64]Order)}
}

func (s *shadowBook) best(side Side) (int64, bool) {
	found := false
	var best int64
	for _, o := range s.orders {
		if o.Side != side {
			continue
		}
		if !found || betterThan(side, o.Price, best) {
			best = o.Price
			found = true
		}
	}
	return best, found
}

func (s *shadowBook) aggregateAt(side Side, price int64) uint64 {
	var sum uint64
	for _, o := range s.orders {
		if o.Side == side && o.Price == price {
			sum += o.Size
		}
	}
	return sum
}

func TestPropertyRandomWorkloadMaintainsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	b := NewBook(WithClock(&monotonicClock{}), WithAssertions(true))
	shadow := newShadowBook()

	var nextID uint64
	const rounds = 4000

	for i := 0; i < rounds; i++ {
		switch action := rng.Intn(3); {
		case action == 0 || len(shadow.orders) == 0:
			nextID++
			o := Order{
				ID:    nextID,
				Side:  Side(rng.Intn(2)),
				Size:  uint64(rng.Intn(100) + 1),
				Price: int64(rng.Intn(50) + 1),
			}
			require.NoError(t, b.Add(o))
			shadow.orders[o.ID] = o

		case action == 1:
			id := pickRandomID(rng, shadow.orders)
			existing := shadow.orders[id]
			newSize := uint64(rng.Intn(100) + 1)
			require.NoError(t, b.Update(Order{ID: id, Side: existing.Side, Price: existing.Price, Size: newSize}))
			existing.Size = newSize
			shadow.orders[id] = existing

		default:
			id := pickRandomID(rng, shadow.orders)
			existing := shadow.orders[id]
			require.NoError(t, b.Remove(id))
			delete(shadow.orders, id)
			remaining := shadow.aggregateAt(existing.Side, existing.Price)
			if remaining == 0 {
				_, ok := b.Orders(existing.Side, existing.Price)
				require.False(t, ok)
			}
		}

		for _, side := range []Side{Bid, Ask} {
			wantPrice, wantOK := shadow.best(side)
			top, gotOK := b.TopLevel(side)
			require.Equal(t, wantOK, gotOK, "side %s presence mismatch at round %d", side, i)
			if wantOK {
				require.Equal(t, wantPrice, top.Price, "side %s best price mismatch at round %d", side, i)
			}
		}
	}
}

func pickRandomID(rng *rand.Rand, orders map[uint64]Order) uint64 {
	n := rng.Intn(len(orders))
	for id := range orders {
		if n == 0 {
			return id
		}
		n--
	}
	panic("unreachable")
}

func TestPropertyFullCancelEmptiesBook(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	b := NewBook(WithClock(&monotonicClock{}), WithAssertions(true))

	var ids []uint64
	for i := uint64(1); i <= 500; i++ {
		side := Side(rng.Intn(2))
		require.NoError(t, b.Add(Order{ID: i, Side: side, Size: uint64(rng.Intn(50) + 1), Price: int64(rng.Intn(30) + 1)}))
		ids = append(ids, i)
	}

	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	for _, id := range ids {
		require.NoError(t, b.Remove(id))
	}

	_, ok := b.TopLevel(Bid)
	require.False(t, ok)
	_, ok = b.TopLevel(Ask)
	require.False(t, ok)
	require.Empty(t, b.Levels(Bid, 0))
	require.Empty(t, b.Levels(Ask, 0))
	require.Empty(t, b.orders)
	require.Empty(t, b.bidLevels)
	require.Empty(t, b.askLevels)
	require.True(t, b.bidSentinel.right == nil)
	require.True(t, b.askSentinel.right == nil)
}

func TestPropertyAVLStaysBalancedUnderRandomInsertDelete(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	sentinel := newSentinel()
	live := map[int64]*priceLevel{}

	var checkBalanced func(n *priceLevel)
	checkBalanced = func(n *priceLevel) {
		if n == nil {
			return
		}
		bf := balanceFactor(n)
		require.GreaterOrEqual(t, bf, -1)
		require.LessOrEqual(t, bf, 1)
		checkBalanced(n.left)
		checkBalanced(n.right)
	}

	for i := 0; i < 5000; i++ {
		if len(live) == 0 || rng.Intn(2) == 0 {
			price := int64(rng.Intn(2000))
			if _, exists := live[price]; exists {
				continue
			}
			lvl := seedLevel(price)
			live[price] = lvl
			insert(sentinel, lvl)
		} else {
			var victim int64
			n := rng.Intn(len(live))
			for p := range live {
				if n == 0 {
					victim = p
					break
				}
				n--
			}
			lvl := live[victim]
			lvl.queue.unlink(lvl.queue.head)
			lvl.remove()
			delete(live, victim)
		}
		checkBalanced(sentinel.right)
	}
}
