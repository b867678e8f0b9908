// Package chunk splits an input dataset of N numbered files into J contiguous
// job chunks.
//
// Files are numbered from 1. Every chunk but the last owns exactly
// N/J files (integer division); the last chunk absorbs the remainder, so it
// is never smaller than any other chunk.
package chunk

import (
	"fmt"

	"github.com/okian/jetrates/internal/config"
)

// FileRange is an inclusive, 1-based range of input file indices.
type FileRange struct {
	First int
	Last  int
}

// Len returns the number of files in the range.
func (r FileRange) Len() int {
	if r.Last < r.First {
		return 0
	}
	return r.Last - r.First + 1
}

// Contains reports whether index lies within the range.
func (r FileRange) Contains(index int) bool {
	return index >= r.First && index <= r.Last
}

// Files renders every file of the range through name.
func (r FileRange) Files(name func(index int) string) []string {
	out := make([]string, 0, r.Len())
	for i := r.First; i <= r.Last; i++ {
		out = append(out, name(i))
	}
	return out
}

func (r FileRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.First, r.Last)
}

// Job identifies one chunk job of a dataset split.
type Job struct {
	ChunkIndex int
	TotalJobs  int
	TotalFiles int
}

// Range returns the file range owned by the job.
func (j Job) Range() (FileRange, error) {
	return Partition(j.TotalFiles, j.TotalJobs, j.ChunkIndex)
}

// IsLast reports whether the job is the remainder-absorbing final chunk.
func (j Job) IsLast() bool {
	return j.ChunkIndex == j.TotalJobs-1
}

// Partition returns the file range owned by chunkIndex when totalFiles files
// are split across totalJobs jobs. It is pure; an out-of-range chunk index is
// a *config.Error.
func Partition(totalFiles, totalJobs, chunkIndex int) (FileRange, error) {
	if totalJobs < 1 {
		return FileRange{}, config.NewError("jobs", fmt.Sprintf("need at least one job, got %d", totalJobs))
	}
	if chunkIndex >= totalJobs {
		return FileRange{}, config.NewError("chunk", fmt.Sprintf("the chunk number %d exceeds the number of jobs %d", chunkIndex, totalJobs))
	}
	if chunkIndex < 0 {
		return FileRange{}, config.NewError("chunk", fmt.Sprintf("chunk index must not be negative, got %d", chunkIndex))
	}
	if totalFiles < 1 {
		return FileRange{}, config.NewError("files", fmt.Sprintf("need at least one input file, got %d", totalFiles))
	}

	perJob := totalFiles / totalJobs
	r := FileRange{
		First: chunkIndex*perJob + 1,
		Last:  (chunkIndex + 1) * perJob,
	}
	if (Job{ChunkIndex: chunkIndex, TotalJobs: totalJobs}).IsLast() {
		r.Last = totalFiles
	}
	return r, nil
}

// Plan returns the ranges of every chunk in order.
func Plan(totalFiles, totalJobs int) ([]FileRange, error) {
	if totalJobs < 1 {
		return nil, config.NewError("jobs", fmt.Sprintf("need at least one job, got %d", totalJobs))
	}
	out := make([]FileRange, 0, totalJobs)
	for i := 0; i < totalJobs; i++ {
		r, err := Partition(totalFiles, totalJobs, i)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
