package middleware

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	// CorrelationIDHeader carries the client-chosen idempotency key
	CorrelationIDHeader = "X-Correlation-ID"
	replayHeader        = "X-Idempotent-Replay"
)

// IdempotencyMiddleware replays the stored response when a mutating request repeats
// an X-Correlation-ID within the TTL. Keys are scoped to the signed-in user, so it
// must run after RequireSession.
func IdempotencyMiddleware(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Only apply to mutating methods
		if c.Method() != fiber.MethodPost && c.Method() != fiber.MethodPatch && c.Method() != fiber.MethodPut {
			return c.Next()
		}

		correlationID := c.Get(CorrelationIDHeader)
		if correlationID == "" || redisClient == nil {
			return c.Next()
		}

		key := fmt.Sprintf("idempotency:%s:%s:%s", GetUserID(c), c.Method(), correlationID)
		ctx := c.UserContext()

		cached, err := redisClient.HGetAll(ctx, key).Result()
		if err == nil && cached["body"] != "" {
			status, convErr := strconv.Atoi(cached["status"])
			if convErr != nil {
				status = fiber.StatusOK
			}
			c.Set(replayHeader, "true")
			c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
			return c.Status(status).Send([]byte(cached["body"]))
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Only successful responses are replayed
		statusCode := c.Response().StatusCode()
		body := c.Response().Body()
		if statusCode < 200 || statusCode >= 300 || len(body) == 0 {
			return nil
		}

		storeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		pipe := redisClient.TxPipeline()
		pipe.HSet(storeCtx, key, "status", statusCode, "body", body)
		pipe.Expire(storeCtx, key, ttl)
		if _, err := pipe.Exec(storeCtx); err != nil {
			log.Printf("Warning: failed to store idempotent response: %v", err)
		}

		return nil
	}
}
