package gate

import (
	"context"
	"sync"

	"github.com/dylanxu/specgo/ir"
)

// resultMap is a mutex-guarded map of gate results keyed by spec name.
type resultMap struct {
	mu sync.RWMutex
	m  map[string]*Result
}

func newResultMap() *resultMap {
	return &resultMap{m: make(map[string]*Result)}
}

func (rm *resultMap) set(key string, v *Result) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.m[key] = v
}

func (rm *resultMap) each(f func(key string, v *Result)) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	for k, v := range rm.m {
		f(k, v)
	}
}

// Job names one spec to gate as part of a batch run.
type Job struct {
	Spec   *ir.Spec
	IRPath string
	GenDir string
}

// RunMany gates several specs concurrently, one goroutine per job, and
// returns every result keyed by the spec's identity name. A workspace
// with multiple protocol specs under management can gate all of them
// in one call instead of shelling out to the CLI once per spec.
func RunMany(ctx context.Context, jobs []Job, opts Options) (map[string]*Result, error) {
	results := newResultMap()
	errs := make(chan error, len(jobs))

	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			name, _ := job.Spec.Identity()
			result, err := Run(ctx, job.Spec, job.IRPath, job.GenDir, opts)
			if err != nil {
				errs <- err
				return
			}
			results.set(name, result)
		}(job)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return nil, err
		}
	}

	out := make(map[string]*Result, len(jobs))
	results.each(func(key string, v *Result) { out[key] = v })
	return out, nil
}
