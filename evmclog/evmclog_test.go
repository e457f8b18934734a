package evmclog

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogger_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, LevelWarn)
	l.Debug("should not appear")
	l.Info("should not appear either")
	l.Warn("visible", "k", "v")
	require.NotContains(t, buf.String(), "should not appear")
	require.Contains(t, buf.String(), "visible")
	require.Contains(t, buf.String(), "k=v")
}

func TestNewRotatingFile_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "evmc-sim.log")
	l := NewRotatingFile(path, 1, 1, 1, LevelInfo)
	l.Info("rotating logger works")
}
