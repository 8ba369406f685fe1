package versioned

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordCurrent(t *testing.T) {
	now := time.Now().UTC()

	open := Record{Start: now}
	assert.True(t, open.Current())

	closed := Record{Start: now, End: &now}
	assert.False(t, closed.Current())
}

func TestCloseOpenQuery(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Partitioned", func(t *testing.T) {
		site := "gh"

		query, args := closeOpenQuery("pricing_versions", &site, now)

		// Closing must touch only the open row of the partition, so the
		// insert that follows leaves exactly one open row behind.
		assert.Equal(t,
			"UPDATE pricing_versions SET end_at = $1 WHERE site = $2 AND end_at IS NULL",
			query)
		assert.Equal(t, []any{now, "gh"}, args)
	})

	t.Run("Global", func(t *testing.T) {
		query, args := closeOpenQuery("exchange_rate_sets", nil, now)

		assert.Equal(t,
			"UPDATE exchange_rate_sets SET end_at = $1 WHERE end_at IS NULL",
			query)
		assert.Equal(t, []any{now}, args)
	})
}

func TestCountRowsQuery(t *testing.T) {
	site := "sl"

	query, args := countRowsQuery("limit_versions", &site)
	assert.Equal(t, "SELECT COUNT(*) FROM limit_versions WHERE site = $1", query)
	assert.Equal(t, []any{"sl"}, args)

	query, args = countRowsQuery("exchange_rate_sets", nil)
	assert.Equal(t, "SELECT COUNT(*) FROM exchange_rate_sets", query)
	assert.Nil(t, args)
}

func TestStaleLedger(t *testing.T) {
	tests := []struct {
		name   string
		closed int64
		prior  int
		want   bool
	}{
		{"FreshPartition", 0, 0, false},
		{"NormalPublish", 1, 0, false},
		{"HistoryButNothingOpen", 0, 3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, staleLedger(tt.closed, tt.prior))
		})
	}
}
