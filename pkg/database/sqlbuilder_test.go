package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnConflictUpdate(t *testing.T) {
	clause := OnConflictUpdate([]string{"id"}, []string{"name", "status"}, "version = points_of_interest.version + 1")

	assert.Equal(t,
		" ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, status = EXCLUDED.status, version = points_of_interest.version + 1",
		clause)
}

func TestArgs(t *testing.T) {
	type status string
	assert.Equal(t, []any{status("a"), status("b")}, Args([]status{"a", "b"}))
}

func TestSelectBuilderUsesPostgresPlaceholders(t *testing.T) {
	sb := NewSelectBuilder()
	sb.Select("id").From("points_of_interest").Where(sb.Equal("id", "S1"), sb.Equal("status", "pending"))

	query, args := sb.Build()
	assert.Equal(t, "SELECT id FROM points_of_interest WHERE id = $1 AND status = $2", query)
	assert.Equal(t, []any{"S1", "pending"}, args)
}
