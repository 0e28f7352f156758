package instrument

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MakespanFile is the name of the per-directory makespan log
const MakespanFile = "makespan.csv"

// MakespanRow formats one makespan row: benchmarkFileName,startTimestamp,endTimestamp,durationSeconds
func MakespanRow(benchName string, start, end time.Time) string {
	return fmt.Sprintf("%s,%d,%d,%s\n", benchName, start.UnixNano(), end.UnixNano(), formatSeconds(end.Sub(start)))
}

// AppendMakespan appends a makespan row for a full batch run to dir/makespan.csv
func AppendMakespan(dir string, benchName string, start, end time.Time) error {
	if dir == "" {
		dir = "."
	}
	f, err := os.OpenFile(filepath.Join(dir, MakespanFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if _, err = f.Write([]byte(MakespanRow(benchName, start, end))); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
