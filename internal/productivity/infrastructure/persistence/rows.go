package persistence

import (
	"fmt"

	"github.com/felixgeelhaar/tempo/internal/productivity/domain/task"
)

// decodeEnums maps stored enum text back onto the domain types. Rows are
// written by this package only, so an unknown value means corruption.
func decodeEnums(priority, status string) (task.Priority, task.Status, error) {
	p, err := task.ParsePriority(priority)
	if err != nil {
		return 0, 0, fmt.Errorf("stored priority %q: %w", priority, err)
	}
	s, err := task.ParseStatus(status)
	if err != nil {
		return 0, 0, fmt.Errorf("stored status %q: %w", status, err)
	}
	return p, s, nil
}

func nullableMinutes(t *task.Task) *int64 {
	if m := t.EstimatedMinutes(); m > 0 {
		v := int64(m)
		return &v
	}
	return nil
}
