package book

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSideString(t *testing.T) {
	require.Equal(t, "bid", Bid.String())
	require.Equal(t, "ask", Ask.String())
}

func TestOrderNodeToOrder(t *testing.T) {
	n := &orderNode{id: 7, side: Ask, size: 42, price: 101, timestamp: 9}
	got := n.toOrder()
	require.Equal(t, Order{ID: 7, Side: Ask, Size: 42, Price: 101, Timestamp: 9}, got)
}
