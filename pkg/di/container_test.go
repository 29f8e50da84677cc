package di

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/framerec/pkg/adapter"
	"github.com/ssargent/framerec/pkg/config"
	"github.com/ssargent/framerec/pkg/recording"
	"github.com/ssargent/framerec/pkg/types"
)

func TestNewContainer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.Server.APIKey = "k"
	c := NewContainer(cfg, nil)

	assert.Same(t, cfg, c.Config())
	assert.NotNil(t, c.Logger())
	assert.NotSame(t, types.Default(), c.Types())
	assert.NotSame(t, adapter.Default(), c.Adapters())

	opts := c.Options()
	assert.Same(t, c.Types(), opts.Types)
	assert.Same(t, c.Adapters(), opts.Adapters)
	assert.NotNil(t, opts.Metrics)

	sc := c.ServerConfig()
	assert.Equal(t, "127.0.0.1:8080", sc.Addr)
	assert.Equal(t, "k", sc.APIKey)
	assert.False(t, sc.Export.NoFillForward)
	assert.Same(t, c.Registry(), sc.Registerer)
}

func TestContainer_ArchiveAndRecorder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	c := NewContainer(cfg, nil)

	a, err := c.OpenArchive()
	require.NoError(t, err)
	defer a.Close()

	rec := recording.New()
	rec.Append(recording.TimestampedData{SourceID: "/x", Type: types.Boolean, Value: true})
	entry, err := a.PutRecording("x", rec)
	require.NoError(t, err)
	assert.Equal(t, 1, entry.DataFrames)

	r := c.NewRecorder()
	assert.False(t, r.Running())

	families, err := c.Registry().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "framerec_frc_frames_total")
	assert.Contains(t, names, "go_goroutines")
}
