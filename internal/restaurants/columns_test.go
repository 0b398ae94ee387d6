package restaurants

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQualifiedColumns(t *testing.T) {
	got := QualifiedColumns("r")
	assert.True(t, strings.HasPrefix(got, "r.id, r.name, r.description"))
	assert.True(t, strings.HasSuffix(got, "r.created_at, r.updated_at"))
	assert.NotContains(t, got, "\n")
	assert.Equal(t, strings.Count(columns, ",")+1, strings.Count(got, "r."))
}
