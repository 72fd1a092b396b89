package predlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/bear-classifier/internal/model"
)

func prediction(t *testing.T) *model.Prediction {
	t.Helper()
	dist, err := model.NewDistribution([]string{"black", "grizzly", "teddy"}, []float32{0.1, 0.2, 0.7}, "")
	require.NoError(t, err)
	return dist.Prediction()
}

func TestRecordWritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "predictions.log")
	w := New(path)
	require.True(t, w.Enabled())

	require.NoError(t, w.Record("req-1", "upload", prediction(t)))
	require.NoError(t, w.Record("req-2", "example:bear_teddy.jpg", prediction(t)))
	require.NoError(t, w.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &e))
		entries = append(entries, e)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, entries, 2)

	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "example:bear_teddy.jpg", entries[1].Source)
	assert.Equal(t, "teddy", entries[1].Class)
	assert.Equal(t, []string{"black", "grizzly", "teddy"}, entries[1].Predictions.Labels())
}

func TestDisabledWriter(t *testing.T) {
	w := New("")
	assert.False(t, w.Enabled())
	assert.NoError(t, w.Record("req", "upload", prediction(t)))
	assert.NoError(t, w.Close())

	var nilWriter *Writer
	assert.NoError(t, nilWriter.Record("req", "upload", prediction(t)))
}
