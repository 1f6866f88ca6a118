package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/marketcore/lob/internal/book"
)

// orderRequest is the wire shape for POST /v1/orders.
type orderRequest struct {
	ID    uint64 `json:"id" binding:"required"`
	Side  string `json:"side" binding:"required"`
	Size  uint64 `json:"size" binding:"required"`
	Price int64  `json:"price" binding:"required"`
}

func (r orderRequest) toOrder() (book.Order, error) {
	var side book.Side
	switch r.Side {
	case "bid":
		side = book.Bid
	case "ask":
		side = book.Ask
	default:
		return book.Order{}, book.ErrInvalidOrder
	}
	return book.Order{ID: r.ID, Side: side, Size: r.Size, Price: r.Price}, nil
}

func (g *Gateway) handleSubmitOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	order, err := req.toOrder()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	g.mu.RLock()
	_, resting := g.book.Resting(order.ID)
	g.mu.RUnlock()
	kind := cmdAdd
	if resting {
		kind = cmdUpdate
	}

	err = g.submit(c.Request.Context(), command{kind: kind, order: order})
	writeOrderResult(c, err)
}

func (g *Gateway) handleCancelOrder(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid order id"})
		return
	}
	err = g.submit(c.Request.Context(), command{kind: cmdRemove, id: id})
	writeOrderResult(c, err)
}

func (g *Gateway) handleTopLevel(c *gin.Context) {
	side, err := parseSide(c.Query("side"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	g.mu.RLock()
	top, ok := g.book.TopLevel(side)
	g.mu.RUnlock()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"empty": true})
		return
	}
	c.JSON(http.StatusOK, levelResponse(top))
}

func (g *Gateway) handleLevels(c *gin.Context) {
	side, err := parseSide(c.Query("side"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	depth := g.cfg.Book.DefaultDepth
	if raw := c.Query("depth"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			depth = parsed
		}
	}
	g.mu.RLock()
	levels := g.book.Levels(side, depth)
	g.mu.RUnlock()
	out := make([]gin.H, len(levels))
	for i, lvl := range levels {
		out[i] = levelResponse(lvl)
	}
	c.JSON(http.StatusOK, gin.H{"levels": out})
}

func levelResponse(lvl book.PriceLevel) gin.H {
	return gin.H{
		"price":  lvl.Price,
		"size":   lvl.AggregateSize,
		"count":  lvl.Count,
		"volume": lvl.Volume(),
	}
}

func parseSide(raw string) (book.Side, error) {
	switch raw {
	case "bid":
		return book.Bid, nil
	case "ask":
		return book.Ask, nil
	default:
		return 0, errors.New("side must be \"bid\" or \"ask\"")
	}
}

func writeOrderResult(c *gin.Context, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	case errors.Is(err, book.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, book.ErrDuplicateOrder):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, book.ErrInvalidOrder):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
