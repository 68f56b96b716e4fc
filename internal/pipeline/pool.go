package pipeline

import (
	"context"
	"runtime"
	"sort"
	"sync"
)

// Pool processes documents in parallel. Each document runs its own
// single-document pipeline; parallelism exists only across documents.
type Pool struct {
	processor *Processor
	workers   int
}

// NewPool creates a Pool. Zero workers means one per CPU.
func NewPool(processor *Processor, workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{processor: processor, workers: workers}
}

// ProcessAll runs every path through the pipeline and returns the
// documents in input order. Per-document failures are carried in the
// documents themselves; a cancelled context stops dispatching new work.
func (p *Pool) ProcessAll(ctx context.Context, paths []string) []*Document {
	if len(paths) == 0 {
		return nil
	}
	workers := p.workers
	if workers > len(paths) {
		workers = len(paths)
	}

	type job struct {
		index int
		path  string
	}
	type out struct {
		index int
		doc   *Document
	}

	jobs := make(chan job, len(paths))
	results := make(chan out, len(paths))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				doc, _ := p.processor.Process(ctx, j.path)
				results <- out{index: j.index, doc: doc}
			}
		}()
	}

	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		jobs <- job{index: i, path: path}
	}
	close(jobs)

	go func() { wg.Wait(); close(results) }()

	collected := make([]out, 0, len(paths))
	for r := range results {
		collected = append(collected, r)
	}
	sort.Slice(collected, func(i, j int) bool { return collected[i].index < collected[j].index })

	docs := make([]*Document, 0, len(collected))
	for _, r := range collected {
		docs = append(docs, r.doc)
	}
	return docs
}
