package service

import (
	"github.com/okian/jetrates/internal/domain/chunk"
)

// ChunkPlan is the work assigned to one chunk job.
type ChunkPlan struct {
	ChunkIndex int
	Range      chunk.FileRange
	OutputDir  string
	Files      []string
}

// Plan lists the work of every chunk when totalFiles are split across
// totalJobs, along with the combine output directory.
func (d *Driver) Plan(totalFiles, totalJobs int) ([]ChunkPlan, string, error) {
	ranges, err := chunk.Plan(totalFiles, totalJobs)
	if err != nil {
		return nil, "", err
	}
	out := make([]ChunkPlan, 0, len(ranges))
	for i, r := range ranges {
		p := Params{ChunkIndex: i, TotalFiles: totalFiles, TotalJobs: totalJobs}
		out = append(out, ChunkPlan{
			ChunkIndex: i,
			Range:      r,
			OutputDir:  OutputDir(d.cfg.OutputBaseDir, p),
			Files:      r.Files(d.cfg.InputFile),
		})
	}
	return out, OutputDir(d.cfg.OutputBaseDir, Params{Combine: true}), nil
}
