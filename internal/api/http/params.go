package http

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/otel-lab/internal/downstream"
)

// DefaultSleepMs is used when the ms query parameter is absent.
const DefaultSleepMs = 200

// parseMs reads the ms query parameter. Negative values are clamped to 0;
// values above downstream.MaxSleepMs are rejected.
func parseMs(c *gin.Context) (int, error) {
	raw, ok := c.GetQuery("ms")
	if !ok {
		return DefaultSleepMs, nil
	}
	ms, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("ms must be an integer, got %q", raw)
	}
	if int64(ms) > downstream.MaxSleepMs {
		return 0, fmt.Errorf("ms must be at most %d, got %d", downstream.MaxSleepMs, ms)
	}
	return max(ms, 0), nil
}
