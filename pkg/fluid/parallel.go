package fluid

import (
	"runtime"
	"sync"
)

// Ranges shorter than this run on the calling goroutine.
const minParallelRange = 32

// parallelRange executes fn for each i in [start,end). The range is split among
// available CPUs and the call returns once every index has been visited.
func parallelRange(start, end int, fn func(i int)) {
	total := end - start
	if total <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if total < minParallelRange || workers == 1 {
		for i := start; i < end; i++ {
			fn(i)
		}
		return
	}
	workers = min(workers, total)

	var wg sync.WaitGroup
	chunk := (total + workers - 1) / workers
	for s := start; s < end; s += chunk {
		e := min(s+chunk, end)
		wg.Add(1)
		go func(ss, ee int) {
			defer wg.Done()
			for i := ss; i < ee; i++ {
				fn(i)
			}
		}(s, e)
	}
	wg.Wait()
}
