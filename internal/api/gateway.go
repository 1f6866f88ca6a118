// Package api is the ambient HTTP/WS façade around internal/book: a
// gin REST surface for order entry and book queries, a gorilla/websocket
// push stream for top-of-book changes, and the single-writer serialization
// the core data structure itself deliberately does not provide.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/marketcore/lob/internal/book"
	"github.com/marketcore/lob/internal/config"
	"github.com/marketcore/lob/pkg/logger"
	"github.com/marketcore/lob/pkg/metrics"
)

// command is a single write request funneled onto the Gateway's ingress
// goroutine: writes are serialized through this channel rather than by
// every caller contending for Gateway.mu directly. Gateway.mu itself still
// guards the Book against the read-only handlers, which run concurrently
// with apply on gin's own request goroutines.
type command struct {
	kind  commandKind
	order book.Order
	id    uint64
	done  chan error
}

type commandKind uint8

const (
	cmdAdd commandKind = iota
	cmdUpdate
	cmdRemove
)

// Gateway wires internal/book behind an HTTP API and a websocket
// top-of-book stream.
type Gateway struct {
	cfg     *config.Config
	log     *logger.Logger
	book    *book.Book
	hub     *Hub
	limiter *rate.Limiter
	cmds    chan command

	// mu is the read-write gate around the Book that internal/book itself
	// does not provide: apply (the single writer, running on Run's
	// goroutine) takes a write lock; the read-only handlers serving gin's
	// concurrently-running request goroutines take a read lock. Without
	// it, a read racing a write trips Go's concurrent map read/write
	// detector on the book's price-level maps.
	mu sync.RWMutex

	router *gin.Engine
	cors   *cors.Cors
}

// NewGateway constructs a Gateway. Call Run to start its ingress loop and
// Handler to obtain the http.Handler to serve.
func NewGateway(cfg *config.Config, log *logger.Logger) *Gateway {
	hub := NewHub(log)
	b := book.NewBook(
		book.WithAssertions(cfg.Book.AssertInvariants),
		book.WithObserver(hub.Observer()),
	)
	hub.Attach(b)

	g := &Gateway{
		cfg:     cfg,
		log:     log,
		book:    b,
		hub:     hub,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst),
		cmds:    make(chan command, 1024),
	}
	g.cors = cors.New(cors.Options{
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		AllowedMethods: cfg.CORS.AllowedMethods,
	})
	g.router = g.buildRouter()
	return g
}

// Run drives the single-writer command loop and the websocket hub until ctx
// is cancelled. It must be started before Handler serves any traffic.
func (g *Gateway) Run(ctx context.Context) {
	go g.hub.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-g.cmds:
			cmd.done <- g.apply(cmd)
		}
	}
}

func (g *Gateway) apply(cmd command) error {
	start := time.Now()
	defer func() { metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()

	g.mu.Lock()
	var err error
	var op string
	switch cmd.kind {
	case cmdAdd:
		op = "add"
		err = g.book.Add(cmd.order)
	case cmdUpdate:
		op = "update"
		err = g.book.Update(cmd.order)
	case cmdRemove:
		op = "remove"
		err = g.book.Remove(cmd.id)
	}
	if err == nil {
		g.refreshGaugesLocked()
	}
	g.mu.Unlock()

	if err != nil {
		g.log.Warn("rejected order message", zap.String("op", op), zap.Error(err))
		metrics.MessagesRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return err
	}
	metrics.MessagesProcessedTotal.WithLabelValues(op).Inc()
	return nil
}

// refreshGaugesLocked updates the depth/best-price gauges. Callers must
// hold g.mu (for writing or reading) before calling it.
func (g *Gateway) refreshGaugesLocked() {
	for _, side := range []book.Side{book.Bid, book.Ask} {
		metrics.BookDepth.WithLabelValues(side.String()).Set(float64(len(g.book.Levels(side, 0))))
		if top, ok := g.book.TopLevel(side); ok {
			metrics.BestPrice.WithLabelValues(side.String()).Set(float64(top.Price))
		} else {
			metrics.BestPrice.DeleteLabelValues(side.String())
		}
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, book.ErrDuplicateOrder):
		return "duplicate_order"
	case errors.Is(err, book.ErrOrderNotFound):
		return "not_found"
	case errors.Is(err, book.ErrInvalidOrder):
		return "invalid_order"
	default:
		return "unknown"
	}
}

// submit enqueues cmd and blocks for its result. Callers are HTTP handlers
// running on gin's own goroutines; this is the hop from "many goroutines"
// to the book's single writer.
func (g *Gateway) submit(ctx context.Context, cmd command) error {
	cmd.done = make(chan error, 1)
	select {
	case g.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Handler returns the http.Handler to pass to http.Server: the gin router
// wrapped in the CORS policy.
func (g *Gateway) Handler() http.Handler {
	return g.cors.Handler(g.router)
}

func (g *Gateway) buildRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), g.rateLimitMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	if g.cfg.Monitoring.Enabled {
		r.GET(g.cfg.Monitoring.Path, gin.WrapH(promhttp.Handler()))
	}

	r.GET("/v1/stream", func(c *gin.Context) { g.hub.ServeWS(c.Writer, c.Request) })

	v1 := r.Group("/v1")
	{
		v1.POST("/orders", g.handleSubmitOrder)
		v1.DELETE("/orders/:id", g.handleCancelOrder)
		v1.GET("/book/top", g.handleTopLevel)
		v1.GET("/book/levels", g.handleLevels)
	}
	return r
}

func (g *Gateway) rateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
