// Package healthz exposes a small local HTTP surface for monitoring the
// daemon process, independent of the IPC bus. Middleware stack mirrors the
// teacher's fiber app: panic recovery first, then CORS.
package healthz

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Status is updated by the daemon as components come up, and read back by
// the /statusz handler.
type Status struct {
	storageReady atomic.Bool
	busReady     atomic.Bool
	startedAt    time.Time
}

func NewStatus() *Status {
	return &Status{startedAt: time.Now()}
}

func (s *Status) SetStorageReady(ready bool) { s.storageReady.Store(ready) }
func (s *Status) SetBusReady(ready bool)      { s.busReady.Store(ready) }

// Server wraps the fiber app serving /healthz and /statusz.
type Server struct {
	app    *fiber.App
	addr   string
	status *Status
}

func New(addr string, status *Status) *Server {
	app := fiber.New(fiber.Config{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "127.0.0.1",
		AllowMethods: "GET",
	}))

	srv := &Server{app: app, addr: addr, status: status}

	app.Get("/healthz", srv.handleHealthz)
	app.Get("/statusz", srv.handleStatusz)

	return srv
}

func (s *Server) handleHealthz(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusOK)
}

func (s *Server) handleStatusz(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"storage_ready": s.status.storageReady.Load(),
		"bus_ready":     s.status.busReady.Load(),
		"uptime_seconds": time.Since(s.status.startedAt).Seconds(),
	})
}

// Run listens until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case <-ctx.Done():
		return s.app.ShutdownWithContext(ctx)
	case err := <-errCh:
		return err
	}
}
