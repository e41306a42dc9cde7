package lineview

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsSummary(t *testing.T) {
	var sum StatsSummary
	sum.Add(RenderStats{FullRedraw: true, Ops: 3, RowsRepainted: 2, BytesWritten: 40, TotalTime: 4})
	sum.Add(RenderStats{Ops: 1, RowsRepainted: 1, BytesWritten: 10, TotalTime: 2})

	assert.Equal(t, StatsSummary{
		Frames:        2,
		FullRedraws:   1,
		Ops:           4,
		RowsRepainted: 3,
		BytesWritten:  50,
		TotalTime:     6,
		MaxTime:       4,
	}, sum)
	assert.EqualValues(t, 3, sum.AvgTime())
	assert.Zero(t, StatsSummary{}.AvgTime())
}

func TestReadStats(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderStats{
		Ops:          2,
		BytesWritten: 10,
		TotalTime:    3 * time.Millisecond,
		FullRedraw:   true,
	}.writeJSON(&buf))
	buf.WriteString("\n")
	require.NoError(t, RenderStats{Ops: 1, TotalTime: time.Millisecond}.writeJSON(&buf))

	sum, err := ReadStats(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Frames)
	assert.Equal(t, 1, sum.FullRedraws)
	assert.Equal(t, 3, sum.Ops)
	assert.Equal(t, 10, sum.BytesWritten)
	assert.Equal(t, 3*time.Millisecond, sum.MaxTime)
	assert.Equal(t, 2*time.Millisecond, sum.AvgTime())
}

func TestReadStatsRejectsGarbage(t *testing.T) {
	_, err := ReadStats(strings.NewReader("{\"ops\": 1}\n{nope\n"))
	assert.ErrorContains(t, err, "line 2")
}
