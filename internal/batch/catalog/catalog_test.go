package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	c := New([]Job{
		{ID: "a", Name: "Job A", Enabled: true, Command: "/bin/a", Timeout: 30, WorkingDirectory: "/srv"},
	})

	job, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, "Job A", job.Name)
	assert.Equal(t, 30, job.Timeout)
	assert.Equal(t, "/srv", job.WorkingDirectory)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestDefaults(t *testing.T) {
	c := New([]Job{{ID: "a", Command: "/bin/a"}})

	job, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 60, job.Timeout)
	assert.Equal(t, "./", job.WorkingDirectory)
}

func TestEnabledPreservesOrder(t *testing.T) {
	c := New([]Job{
		{ID: "a", Enabled: true},
		{ID: "b", Enabled: false},
		{ID: "c", Enabled: true},
	})

	enabled := c.Enabled()
	require.Len(t, enabled, 2)
	assert.Equal(t, "a", enabled[0].ID)
	assert.Equal(t, "c", enabled[1].ID)
}
