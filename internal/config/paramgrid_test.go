package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadParamGridParsesListsInSortedOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.yaml")
	content := `
inst: BTC-USDT-SWAP
period: 1H
lists:
  rsi_oversold: [25, 30]
  bollinger_period: [14, 20]
  use_counter_trend_tp: [true, false]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	doc, lists, err := LoadParamGrid(path)
	require.NoError(t, err)
	assert.Equal(t, "BTC-USDT-SWAP", doc.Inst)
	assert.Equal(t, "1H", doc.Period)
	require.Len(t, lists, 3)
	assert.Equal(t, "bollinger_period", lists[0].Name)
	assert.Equal(t, "rsi_oversold", lists[1].Name)
	assert.Equal(t, "use_counter_trend_tp", lists[2].Name)
}

func TestLoadParamGridRejectsMissingInst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("lists:\n  x: [1]\n"), 0o644))

	_, _, err := LoadParamGrid(path)
	assert.Error(t, err)
}

func TestLoadParamGridMissingFile(t *testing.T) {
	_, _, err := LoadParamGrid("/nonexistent/grid.yaml")
	assert.Error(t, err)
}
