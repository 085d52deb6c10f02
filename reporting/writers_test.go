package reporting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileWriterCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "tables", "exp.tex")
	w := NewFileWriter(path)

	require.NoError(t, w.Write(`\hline`))
	assert.Equal(t, path, w.Path())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `\hline`, string(data))
}
