package store

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

// send performs a prepared fiber client request. The timeout follows the
// context deadline when there is one.
func send(ctx context.Context, a *fiber.Agent, fallback time.Duration, body any) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if body != nil {
		a.JSON(body)
	}
	a.Timeout(timeoutFor(ctx, fallback))

	code, resp, errs := a.Bytes()
	if len(errs) > 0 {
		return 0, nil, errors.Join(errs...)
	}
	return code, resp, nil
}

func timeoutFor(ctx context.Context, fallback time.Duration) time.Duration {
	deadline, ok := ctx.Deadline()
	if !ok {
		return fallback
	}
	if d := time.Until(deadline); d > 0 {
		return d
	}
	return time.Millisecond
}

func success(code int) bool {
	return code >= fiber.StatusOK && code < fiber.StatusMultipleChoices
}
