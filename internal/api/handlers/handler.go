package handlers

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"realtime_chat_service/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PingFunc 依賴的健康檢查
type PingFunc func(ctx context.Context) error

// HealthHandler 服務狀態
type HealthHandler struct {
	service string
	checks  map[string]PingFunc
	timeout time.Duration
}

// NewHealthHandler checks: name -> ping
func NewHealthHandler(service string, checks map[string]PingFunc) *HealthHandler {
	return &HealthHandler{service: service, checks: checks, timeout: 2 * time.Second}
}

// ConnectCheck check api connect start
// @Summary Check service status
// @Description Returns a simple confirmation message
// @Tags Shared
// @Success 200 {string} string "chat_service start!"
// @Router / [get]
func (h *HealthHandler) ConnectCheck(c *fiber.Ctx) error {
	return c.SendString(h.service + " start!")
}

// Health ping every dependency
// @Summary Dependency health
// @Tags Shared
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	results := make(map[string]string, len(h.checks))
	errs := make([]error, 0, len(h.checks))
	type result struct {
		name string
		err  error
	}
	out := make(chan result, len(h.checks))

	var g errgroup.Group
	for name, ping := range h.checks {
		name, ping := name, ping
		g.Go(func() error {
			out <- result{name: name, err: ping(ctx)}
			return nil
		})
	}
	_ = g.Wait()
	close(out)

	for r := range out {
		if r.err != nil {
			logger.Log.Warn("health check failed", zap.String("dependency", r.name), zap.Error(r.err))
			results[r.name] = "down"
			errs = append(errs, r.err)
			continue
		}
		results[r.name] = "up"
	}

	if len(errs) > 0 {
		return c.Status(fiber.StatusServiceUnavailable).JSON(results)
	}
	return c.JSON(results)
}

// DebugLogFlag toggle debug log flag
// @Summary Toggle Debug Log Flag
// @Description Enable or disable debug logging for a service
// @Tags Shared
// @Param status query bool true "Debug status"
// @Success 200 {string} string "Service debug mode updated"
// @Failure 400 {string} string "Invalid status value"
// @Router /debug [post]
func (h *HealthHandler) DebugLogFlag(c *fiber.Ctx) error {
	statusStr := c.Query("status")
	logger.Log.Info("debug", zap.String("status", statusStr))
	status, err := strconv.ParseBool(statusStr)
	if err != nil {
		return c.SendStatus(fiber.StatusBadRequest)
	}

	logger.Log.SetDebugMode(status)
	return c.SendString(fmt.Sprintf("service[%s]: debug mode is : %t", h.service, status))
}
