package pack

import (
	"context"
	"fmt"
	"sync"
)

// workerJob is one worker's mutable assignment: the remaining candidate
// indices it still owns, and whether the driver has permanently retired
// it. Guarded by its own mutex so the main goroutine can steal from the
// tail concurrently with the worker consuming from the head.
type workerJob struct {
	mu      sync.Mutex
	cond    *sync.Cond
	segment []int
	idle    bool
	retired bool
}

func newWorkerJob(segment []int) *workerJob {
	j := &workerJob{segment: segment}
	j.cond = sync.NewCond(&j.mu)
	return j
}

// runParallel partitions candidates across workers on name-hash
// boundaries and runs the §4.3 search concurrently, rebalancing idle
// workers by stealing half of the busiest worker's remainder (§4.4).
func (b *Builder) runParallel(ctx context.Context, t *Table, candidates []int, cfg Config, cache *deltaCache, workers int) error {
	segments := partitionCandidates(t, candidates, workers, cfg.Window+1)
	if len(segments) == 0 {
		return nil
	}
	if len(segments) == 1 {
		return newSearcher(t, cfg, cache).run(ctx, segments[0])
	}

	jobs := make([]*workerJob, len(segments))
	for i, seg := range segments {
		jobs[i] = newWorkerJob(seg)
	}

	var idleMu sync.Mutex
	idleCond := sync.NewCond(&idleMu)
	idleSet := make(map[int]bool)

	var wg sync.WaitGroup
	errCh := make(chan error, len(jobs))

	for i, job := range jobs {
		wg.Add(1)
		go func(workerIdx int, job *workerJob) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errCh <- fmt.Errorf("%w: worker %d panicked: %v", ErrThread, workerIdx, r)
					retireAndSignal(job, &idleMu, idleCond, idleSet, workerIdx)
				}
			}()
			s := newSearcher(t, cfg, cache)
			for {
				job.mu.Lock()
				for len(job.segment) == 0 && !job.retired {
					job.idle = true
					idleMu.Lock()
					idleSet[workerIdx] = true
					idleCond.Signal()
					idleMu.Unlock()
					job.cond.Wait()
				}
				if len(job.segment) == 0 && job.retired {
					job.mu.Unlock()
					return
				}
				job.idle = false
				next := job.segment[0]
				job.segment = job.segment[1:]
				job.mu.Unlock()

				if err := ctx.Err(); err != nil {
					errCh <- err
					retireAndSignal(job, &idleMu, idleCond, idleSet, workerIdx)
					return
				}
				if err := s.step(next); err != nil {
					errCh <- err
					retireAndSignal(job, &idleMu, idleCond, idleSet, workerIdx)
					return
				}
			}
		}(i, job)
	}

	// Rebalancer: a separate goroutine watches for idle workers and
	// steals work from the busiest victim until every worker has
	// either more work or is retired, while this goroutine waits for
	// the workers to exit.
	windowSize := cfg.Window + 1
	go func() {
		active := len(jobs)
		for active > 0 {
			idleMu.Lock()
			for len(idleSet) == 0 {
				idleCond.Wait()
			}
			var idleIdx int
			for k := range idleSet {
				idleIdx = k
				break
			}
			delete(idleSet, idleIdx)
			idleMu.Unlock()

			job := jobs[idleIdx]
			job.mu.Lock()
			alreadyRetired := job.retired
			stillIdle := len(job.segment) == 0 && !alreadyRetired
			job.mu.Unlock()
			if alreadyRetired {
				active--
				continue
			}
			if !stillIdle {
				continue
			}

			victimIdx, victimLen := -1, 0
			for i, vj := range jobs {
				if i == idleIdx {
					continue
				}
				vj.mu.Lock()
				l := len(vj.segment)
				vj.mu.Unlock()
				if l > victimLen {
					victimIdx, victimLen = i, l
				}
			}

			threshold := 2 * windowSize
			if victimIdx == -1 || victimLen <= threshold {
				job.mu.Lock()
				job.retired = true
				job.cond.Signal()
				job.mu.Unlock()
				active--
				continue
			}

			victim := jobs[victimIdx]
			victim.mu.Lock()
			stolen := stealHalf(t, victim.segment)
			victim.segment = victim.segment[:len(victim.segment)-len(stolen)]
			victim.mu.Unlock()

			job.mu.Lock()
			job.segment = stolen
			job.cond.Signal()
			job.mu.Unlock()
		}
	}()

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}

// retireAndSignal marks a worker's job permanently retired (used on the
// error exit path, so the rebalancer's active count still reaches zero
// and its goroutine terminates instead of waiting on an idle signal that
// will never come).
func retireAndSignal(job *workerJob, idleMu *sync.Mutex, idleCond *sync.Cond, idleSet map[int]bool, workerIdx int) {
	job.mu.Lock()
	job.retired = true
	job.mu.Unlock()

	idleMu.Lock()
	idleSet[workerIdx] = true
	idleCond.Signal()
	idleMu.Unlock()
}

// partitionCandidates splits candidates into up to `workers` contiguous
// segments of roughly equal size, folding any segment shorter than 2*W
// into its neighbor, and extending segment boundaries forward so that
// objects sharing a name_hash are never split across workers.
func partitionCandidates(t *Table, candidates []int, workers, windowSize int) [][]int {
	if workers <= 1 || len(candidates) == 0 {
		if len(candidates) == 0 {
			return nil
		}
		return [][]int{candidates}
	}

	minSegment := 2 * windowSize
	var segments [][]int
	remaining := candidates
	for i := 0; i < workers && len(remaining) > 0; i++ {
		want := len(remaining) / (workers - i)
		if want < 1 {
			want = len(remaining)
		}
		end := want
		if end > len(remaining) {
			end = len(remaining)
		}
		for end < len(remaining) && t.records[remaining[end-1]].nameHash == t.records[remaining[end]].nameHash {
			end++
		}
		if end < minSegment && end < len(remaining) {
			continue // fold forward into the next, larger round
		}
		segments = append(segments, remaining[:end])
		remaining = remaining[end:]
	}
	if len(remaining) > 0 {
		if len(segments) == 0 {
			segments = append(segments, remaining)
		} else {
			last := segments[len(segments)-1]
			segments[len(segments)-1] = append(append([]int{}, last...), remaining...)
		}
	}
	return segments
}

// stealHalf returns the tail half of segment to hand to an idle worker,
// aligned to a name_hash boundary when one exists within that half and
// cut at exactly half otherwise.
func stealHalf(t *Table, segment []int) []int {
	half := len(segment) / 2
	if half == 0 {
		return nil
	}
	cut := len(segment) - half
	for cut < len(segment) && t.records[segment[cut-1]].nameHash == t.records[segment[cut]].nameHash {
		cut++
	}
	if cut == len(segment) {
		cut = len(segment) - half
	}
	return append([]int{}, segment[cut:]...)
}
