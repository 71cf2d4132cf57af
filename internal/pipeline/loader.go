package pipeline

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/theirongolddev/paycheck/internal/logger"
	"github.com/theirongolddev/paycheck/internal/model"
	"github.com/theirongolddev/paycheck/internal/source"
)

// LedgerWriter is the validating write side of the ledger store.
type LedgerWriter interface {
	CreateCategory(ctx context.Context, userID string, c model.Category) (model.Category, error)
	CreateIncomeSource(ctx context.Context, userID string, s model.IncomeSource) (model.IncomeSource, error)
	CreateBill(ctx context.Context, userID string, b model.Bill) (model.Bill, error)
	CreateSubscription(ctx context.Context, userID string, s model.Subscription) (model.Subscription, error)
	CreateGoal(ctx context.Context, userID string, g model.Goal) (model.Goal, error)
	CreateRule(ctx context.Context, userID string, r model.BudgetRule) (model.BudgetRule, error)
	CreateTransaction(ctx context.Context, userID string, t model.Transaction) (model.Transaction, error)
}

// LoadResult holds the output of an import run.
type LoadResult struct {
	TotalFiles  int
	ParsedFiles int
	FileErrors  int
	ParseErrors int
	Records     int
	Written     int
	WriteErrors int
	ByKind      map[source.Kind]int
}

// ProgressFunc is called during parsing to report progress.
// current is the number of files processed so far, total is the total count.
type ProgressFunc func(current, total int)

// Import discovers and parses every JSONL file under path with a bounded
// worker pool, then writes the records through w. Records are written in
// dependency order (categories before the entities that reference them) and
// file order within a kind. Rejected records are logged and counted, not fatal.
func Import(ctx context.Context, path, userID string, w LedgerWriter, progressFn ProgressFunc) (*LoadResult, error) {
	files, err := source.ScanPath(path)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}

	result := &LoadResult{TotalFiles: len(files), ByKind: make(map[source.Kind]int)}
	if len(files) == 0 {
		return result, nil
	}

	// Parallel parsing with bounded worker pool
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers < 1 {
		numWorkers = 4
	}
	if numWorkers > len(files) {
		numWorkers = len(files)
	}

	work := make(chan int, len(files))
	results := make([]source.ParseResult, len(files))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range files {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for range numWorkers {
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = source.ParseFile(files[idx])
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(files))
				}
			}
		}()
	}

	wg.Wait()

	log := logger.FromContext(ctx)
	var records []source.Record
	for _, pr := range results {
		if pr.Err != nil {
			result.FileErrors++
			log.Warn().Err(pr.Err).Str("file", pr.File.Name).Msg("import file unreadable")
			continue
		}
		result.ParsedFiles++
		result.ParseErrors += pr.ParseErrors
		records = append(records, pr.Records...)
	}
	result.Records = len(records)

	// Stable sort keeps file and line order within a kind.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Kind.WriteOrder() < records[j].Kind.WriteOrder()
	})

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if err := writeRecord(ctx, w, userID, rec); err != nil {
			result.WriteErrors++
			log.Warn().Err(err).Str("kind", string(rec.Kind)).Int("line", rec.Line).Msg("import record rejected")
			continue
		}
		result.Written++
		result.ByKind[rec.Kind]++
	}

	return result, nil
}

func writeRecord(ctx context.Context, w LedgerWriter, userID string, rec source.Record) error {
	var err error
	switch rec.Kind {
	case source.KindCategory:
		_, err = w.CreateCategory(ctx, userID, *rec.Category)
	case source.KindIncomeSource:
		_, err = w.CreateIncomeSource(ctx, userID, *rec.IncomeSource)
	case source.KindBill:
		_, err = w.CreateBill(ctx, userID, *rec.Bill)
	case source.KindSubscription:
		_, err = w.CreateSubscription(ctx, userID, *rec.Subscription)
	case source.KindGoal:
		_, err = w.CreateGoal(ctx, userID, *rec.Goal)
	case source.KindRule:
		_, err = w.CreateRule(ctx, userID, *rec.Rule)
	case source.KindTransaction:
		_, err = w.CreateTransaction(ctx, userID, *rec.Transaction)
	default:
		err = fmt.Errorf("unknown record kind %q", rec.Kind)
	}
	return err
}
