package command

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryDialog_ChooseSavePath(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	d := DirectoryDialog{Dir: dir}

	got, err := d.ChooseSavePath("../../etc/passwd", "plain")
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(got), "names must not escape the export directory")

	first, err := d.ChooseSavePath("Q3 report", "pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Q3 report.pdf"), first)
	require.NoError(t, os.WriteFile(first, []byte("x"), 0600))

	second, err := d.ChooseSavePath("Q3 report", "pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Q3 report-1.pdf"), second)

	blank, err := d.ChooseSavePath("  ", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "export"), blank)
}
