package testevents

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/okian/jetrates/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
)

// Run generates the complete ntuple set described by config.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid generator config: %w", err)
	}
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting ntuple generation",
		logger.String("outputDir", config.OutputDir),
		logger.String("pattern", config.FilePattern),
		logger.Int("files", config.NumFiles),
		logger.Int("eventsPerFile", config.EventsPerFile),
		logger.Int("workers", config.Workers),
		logger.Any("seed", config.Seed))

	if err := os.MkdirAll(config.OutputDir, directoryPermission); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	if err := generateFiles(ctx, config, stats); err != nil {
		return stats, fmt.Errorf("ntuple generation failed: %w", err)
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(stats)

	logger.Get().Info(ctx, "generation completed successfully")
	return stats, nil
}

// displayFinalStats logs the final generation statistics.
func displayFinalStats(stats *Stats) {
	var eventsPerSecond, jetsPerEvent float64

	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsGenerated) / stats.Duration.Seconds()
	}
	if stats.EventsGenerated > 0 {
		jetsPerEvent = float64(stats.JetsGenerated) / float64(stats.EventsGenerated)
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("filesWritten", stats.FilesWritten),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("jetsGenerated", stats.JetsGenerated),
		logger.Int("eventsWithoutJets", stats.EventsWithoutJets),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("jetsPerEvent", jetsPerEvent),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
