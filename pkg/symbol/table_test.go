package symbol

import (
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	tab := NewTable(map[string]uint64{"main": 0x401126, "_start": 0x401040})

	assert.Equal(t, 2, tab.Len())
	assert.Equal(t, []string{"_start", "main"}, tab.Names())

	addr, err := tab.Lookup("main")
	require.NoError(t, err)
	assert.Equal(t, uint64(0x401126), addr)

	_, err = tab.Lookup("nope")
	var nerr *NotFoundError
	require.True(t, errors.As(err, &nerr))
	assert.Equal(t, "nope", nerr.Name)
}

func TestAnalyze(t *testing.T) {
	if _, err := os.Stat("/bin/true"); err != nil {
		t.Skip("/bin/true not available")
	}

	tab, err := Analyze("/bin/true")
	require.NoError(t, err)
	for _, name := range tab.Names() {
		assert.NotEmpty(t, name)
	}
}

func TestAnalyze_notElf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "text")
	require.NoError(t, ioutil.WriteFile(path, []byte("hello"), 0644))

	_, err := Analyze(path)
	assert.Error(t, err)
}
