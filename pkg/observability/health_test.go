package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("connection refused") }

func TestHealthRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		checkers map[string]HealthChecker
		want     HealthStatus
	}{
		{"no checks", nil, HealthStatusHealthy},
		{"all healthy", map[string]HealthChecker{
			"database": CriticalChecker("database", ok),
			"redis":    OptionalChecker("redis", ok),
		}, HealthStatusHealthy},
		{"optional failure degrades", map[string]HealthChecker{
			"database": CriticalChecker("database", ok),
			"redis":    OptionalChecker("redis", fail),
		}, HealthStatusDegraded},
		{"critical failure wins", map[string]HealthChecker{
			"database": CriticalChecker("database", fail),
			"redis":    OptionalChecker("redis", fail),
		}, HealthStatusUnhealthy},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewHealthRegistry()
			for name, c := range tt.checkers {
				reg.Register(name, c)
			}
			report := reg.Check(context.Background())
			assert.Equal(t, tt.want, report.Status)
			assert.Len(t, report.Checks, len(tt.checkers))
		})
	}
}

func TestPingChecker_MessageNamesComponent(t *testing.T) {
	res := CriticalChecker("database", fail)(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, res.Status)
	assert.Contains(t, res.Message, "database unreachable")
}
