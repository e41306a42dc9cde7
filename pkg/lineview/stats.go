package lineview

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/pkg/errors"
)

// RenderStats captures performance metrics for a single redraw.
type RenderStats struct {
	// Reasons are the requests the redraw served.
	Reasons Reason

	// Requests is how many Request calls were coalesced into the redraw.
	Requests int

	// Recomputes is how many times the desired screen was thrown away
	// because a request arrived while it was being built.
	Recomputes int

	// ComposeTime is how long it took to collect the frame and lay out the
	// desired screen.
	ComposeTime time.Duration

	// DiffTime is how long the diff against the current screen took.
	DiffTime time.Duration

	// WriteTime is how long it took to write the escape sequences to
	// the terminal.
	WriteTime time.Duration

	// TotalTime is the wall-clock duration of the entire redraw.
	TotalTime time.Duration

	// TotalRows is the number of rows in the desired screen.
	TotalRows int

	// RowsRepainted is the number of rows touched by at least one op.
	RowsRepainted int

	// Ops is the number of terminal operations applied.
	Ops int

	// BytesWritten is the number of bytes sent to the terminal. Large
	// values indicate potential slowness over SSH or on slow terminals.
	BytesWritten int

	// FullRedraw is true when the command region was cleared and painted
	// from scratch.
	FullRedraw bool
}

// renderStatsJSON is the JSONL record written by the debug writer.
type renderStatsJSON struct {
	Ts            int64  `json:"ts"`
	Reasons       string `json:"reasons"`
	Requests      int    `json:"requests"`
	Recomputes    int    `json:"recomputes"`
	TotalUs       int64  `json:"total_us"`
	ComposeUs     int64  `json:"compose_us"`
	DiffUs        int64  `json:"diff_us"`
	WriteUs       int64  `json:"write_us"`
	TotalRows     int    `json:"total_rows"`
	RowsRepainted int    `json:"rows_repainted"`
	Ops           int    `json:"ops"`
	BytesWritten  int    `json:"bytes_written"`
	FullRedraw    bool   `json:"full_redraw"`
}

func (s RenderStats) writeJSON(w io.Writer) error {
	data, err := json.Marshal(renderStatsJSON{
		Ts:            time.Now().UnixMilli(),
		Reasons:       s.Reasons.String(),
		Requests:      s.Requests,
		Recomputes:    s.Recomputes,
		TotalUs:       s.TotalTime.Microseconds(),
		ComposeUs:     s.ComposeTime.Microseconds(),
		DiffUs:        s.DiffTime.Microseconds(),
		WriteUs:       s.WriteTime.Microseconds(),
		TotalRows:     s.TotalRows,
		RowsRepainted: s.RowsRepainted,
		Ops:           s.Ops,
		BytesWritten:  s.BytesWritten,
		FullRedraw:    s.FullRedraw,
	})
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// StatsSummary aggregates RenderStats over many redraws.
type StatsSummary struct {
	Frames        int
	FullRedraws   int
	Ops           int
	RowsRepainted int
	BytesWritten  int
	TotalTime     time.Duration
	MaxTime       time.Duration
}

// Add folds one redraw into the summary.
func (s *StatsSummary) Add(st RenderStats) {
	s.Frames++
	if st.FullRedraw {
		s.FullRedraws++
	}
	s.Ops += st.Ops
	s.RowsRepainted += st.RowsRepainted
	s.BytesWritten += st.BytesWritten
	s.TotalTime += st.TotalTime
	s.MaxTime = max(s.MaxTime, st.TotalTime)
}

// AvgTime returns the mean redraw duration.
func (s StatsSummary) AvgTime() time.Duration {
	if s.Frames == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Frames)
}

// ReadStats folds a JSONL stream written by Options.DebugWriter into a
// summary. Blank lines are skipped.
func ReadStats(r io.Reader) (StatsSummary, error) {
	var sum StatsSummary
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		data := scanner.Bytes()
		if len(data) == 0 {
			continue
		}
		var rec renderStatsJSON
		if err := json.Unmarshal(data, &rec); err != nil {
			return sum, errors.Wrapf(err, "line %d", line)
		}
		sum.Add(RenderStats{
			Ops:           rec.Ops,
			RowsRepainted: rec.RowsRepainted,
			BytesWritten:  rec.BytesWritten,
			TotalTime:     time.Duration(rec.TotalUs) * time.Microsecond,
			FullRedraw:    rec.FullRedraw,
		})
	}
	return sum, errors.Wrap(scanner.Err(), "read stats")
}
