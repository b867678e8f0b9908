package testevents

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"path/filepath"

	"github.com/okian/jetrates/internal/adapters/source"
	"github.com/okian/jetrates/pkg/logger"

	"github.com/google/uuid"
)

// Constants for the jet spectrum.
const (
	minJetEt       = 5.0  // GeV, reconstruction threshold
	meanJetEt      = 30.0 // GeV, slope of the falling spectrum
	subleadMinFrac = 0.2  // sub-leading jets carry 20-100% of the leading Et
	etPrecision    = 10.0 // round to 0.1 GeV
)

// Constants for multiplicity cases.
const (
	caseNoJets        = 0
	caseSingleJet     = 1
	caseDijet         = 2
	caseTrijet        = 3
	caseMultijet      = 4
	caseSingleJetTail = 5
	caseDijetTail     = 6
	multiplicityCases = 8
)

// fileResult carries one generated file back to the collector.
type fileResult struct {
	index  int
	path   string
	events int
	jets   int
	noJets int
	err    error
}

// generateFiles writes every file with a pool of workers. Each file is seeded
// from the config seed and its index, so output does not depend on scheduling.
func generateFiles(ctx context.Context, config *Config, stats *Stats) error {
	logger.Get().Info(ctx, "generating ntuples",
		logger.Int("files", config.NumFiles),
		logger.Int("eventsPerFile", config.EventsPerFile))

	workerCount := min(max(config.Workers, 1), config.NumFiles)
	jobs := make(chan int, config.NumFiles)
	resultChan := make(chan fileResult, config.NumFiles)

	for i := 1; i <= config.NumFiles; i++ {
		jobs <- i
	}
	close(jobs)

	for worker := 0; worker < workerCount; worker++ {
		go func() {
			for index := range jobs {
				if err := ctx.Err(); err != nil {
					resultChan <- fileResult{index: index, err: err}
					continue
				}
				resultChan <- writeFile(config, index)
			}
		}()
	}

	var firstErr error
	for i := 0; i < config.NumFiles; i++ {
		result := <-resultChan
		if result.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to generate file %d: %w", result.index, result.err)
			}
			continue
		}
		stats.FilesWritten++
		stats.EventsGenerated += result.events
		stats.JetsGenerated += result.jets
		stats.EventsWithoutJets += result.noJets
		logger.Get().Debug(ctx, "file written", logger.String("path", result.path), logger.Int("events", result.events))
	}
	return firstErr
}

func writeFile(config *Config, index int) fileResult {
	path := filepath.Join(config.OutputDir, fmt.Sprintf(config.FilePattern, index))
	records := GenerateRecords(config.Seed, index, config.EventsPerFile, config.MaxJets, config.Run)

	res := fileResult{index: index, path: path, events: len(records)}
	for _, r := range records {
		res.jets += len(r.JetEt)
		if len(r.JetEt) == 0 {
			res.noJets++
		}
	}
	res.err = source.WriteFile(path, config.Format, records)
	return res
}

// GenerateRecords returns the events of file index. The same arguments always
// yield the same records.
func GenerateRecords(seed uint64, index, events, maxJets int, run int64) []source.Record {
	rng := rand.New(rand.NewPCG(seed, uint64(index)))
	records := make([]source.Record, events)
	for i := range records {
		name := fmt.Sprintf("%d/%d/%d", seed, index, i)
		records[i] = source.Record{
			EventID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String(),
			Run:     run,
			JetEt:   generateJets(rng, maxJets),
		}
	}
	return records
}

// generateJets draws a multiplicity and a falling Et spectrum. The leading
// jet is placed at a random position so consumers cannot rely on ordering.
func generateJets(rng *rand.Rand, maxJets int) []float64 {
	n := drawMultiplicity(rng, maxJets)
	if n == 0 {
		return nil
	}
	lead := minJetEt + rng.ExpFloat64()*meanJetEt
	jets := make([]float64, n)
	for j := range jets {
		et := lead
		if j > 0 {
			et = math.Max(minJetEt, lead*(subleadMinFrac+rng.Float64()*(1-subleadMinFrac)))
		}
		jets[j] = math.Round(et*etPrecision) / etPrecision
	}
	k := rng.IntN(n)
	jets[0], jets[k] = jets[k], jets[0]
	return jets
}

func drawMultiplicity(rng *rand.Rand, maxJets int) int {
	if maxJets == 0 {
		return 0
	}
	var n int
	switch rng.IntN(multiplicityCases) {
	case caseNoJets:
		n = 0
	case caseSingleJet, caseSingleJetTail:
		n = 1
	case caseDijet, caseDijetTail:
		n = 2
	case caseTrijet:
		n = 3
	case caseMultijet:
		n = 4 + rng.IntN(max(maxJets-3, 1))
	default:
		n = 1 + rng.IntN(maxJets)
	}
	return min(n, maxJets)
}
