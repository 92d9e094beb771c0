package scheduler

import (
	"time"

	"github.com/dbsmedya/batchopt/internal/types"
)

// UnitStatus folds the file outcomes of one package. interrupted reports
// whether cancellation was observed while the package ran. A package with
// no outcomes is Skipped unless interrupted.
func UnitStatus(files []types.FileOutcome, interrupted bool) types.Status {
	status := types.StatusSkipped
	if interrupted {
		return types.StatusCancelled
	}
	for _, f := range files {
		status = status.Max(f.Status)
	}
	return status
}

// BatchStatus folds package statuses: Cancelled, then Failed, then
// Performed, then Skipped. An empty batch is Skipped.
func BatchStatus(units []types.UnitResult) types.Status {
	status := types.StatusSkipped
	for _, u := range units {
		status = status.Max(u.Status)
	}
	return status
}

// Summary counts package and file outcomes of a batch.
type Summary struct {
	Units    map[types.Status]int
	Files    map[types.Status]int
	WallTime time.Duration
	CPUTime  time.Duration
}

// Summarize builds a Summary over units.
func Summarize(units []types.UnitResult) Summary {
	s := Summary{
		Units: make(map[types.Status]int),
		Files: make(map[types.Status]int),
	}
	for _, u := range units {
		s.Units[u.Status]++
		for _, f := range u.Files {
			s.Files[f.Status]++
			s.WallTime += f.WallTime
			s.CPUTime += f.CPUTime
		}
	}
	return s
}
