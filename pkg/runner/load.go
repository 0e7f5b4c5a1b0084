package runner

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/blackcoderx/stepwise/pkg/model"
)

// LoadOptions shape a load run. Either Iterations or Duration must be set;
// when both are, the run ends at whichever comes first.
type LoadOptions struct {
	Iterations  int           // total scenario runs, 0 = until Duration
	Duration    time.Duration // wall clock budget, 0 = until Iterations
	Concurrency int           // parallel workers, default 1
	PerSecond   float64       // scenario runs started per second, 0 = unpaced
	RampUp      time.Duration // workers start spread over this period
}

// LoadResult summarizes a load run. Latencies are per scenario run.
type LoadResult struct {
	Iterations int
	Passed     int
	Failed     int
	Duration   time.Duration
	Throughput float64 // scenario runs per second
	MinLatency time.Duration
	AvgLatency time.Duration
	LatencyP50 time.Duration
	LatencyP95 time.Duration
	LatencyP99 time.Duration
	MaxLatency time.Duration
	// FailedSteps counts, by step title, the step each failed run stopped at.
	FailedSteps map[string]int
}

// ErrorRate returns the share of failed runs in percent.
func (r *LoadResult) ErrorRate() float64 {
	if r.Iterations == 0 {
		return 0
	}
	return float64(r.Failed) / float64(r.Iterations) * 100
}

func (o LoadOptions) validate() error {
	if o.Iterations <= 0 && o.Duration <= 0 {
		return fmt.Errorf("either iterations or duration must be greater than 0")
	}
	if o.Iterations < 0 || o.Duration < 0 {
		return fmt.Errorf("iterations and duration cannot be negative")
	}
	if o.Concurrency < 0 {
		return fmt.Errorf("concurrency cannot be negative")
	}
	if o.PerSecond < 0 {
		return fmt.Errorf("runs per second cannot be negative")
	}
	if o.RampUp < 0 {
		return fmt.Errorf("ramp-up cannot be negative")
	}
	return nil
}

// Load runs plan repeatedly from concurrent workers. Every run starts from the
// plan's initial parameter values; captures never leak between runs.
func (r *Runner) Load(ctx context.Context, plan Plan, baseURL string, opts LoadOptions) (*LoadResult, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Concurrency == 0 {
		opts.Concurrency = 1
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}
	var limiter *rate.Limiter
	if opts.PerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.PerSecond), 1)
	}

	var (
		mu        sync.Mutex
		wg        sync.WaitGroup
		started   int
		latencies []time.Duration
		result    = &LoadResult{FailedSteps: make(map[string]int)}
		runErr    error
	)
	// claim reserves the next iteration, reporting false once the budget is
	// spent.
	claim := func() bool {
		mu.Lock()
		defer mu.Unlock()
		if opts.Iterations > 0 && started >= opts.Iterations {
			return false
		}
		started++
		return true
	}

	r.logger.Info("load started", "scenario", plan.ScenarioName, "workers", opts.Concurrency,
		"iterations", opts.Iterations, "duration", opts.Duration)
	begin := r.now()

	for i := 0; i < opts.Concurrency; i++ {
		worker := *r
		worker.rnd = r.source(uint64(i))
		worker.observer = nil

		var delay time.Duration
		if opts.RampUp > 0 {
			delay = opts.RampUp * time.Duration(i) / time.Duration(opts.Concurrency)
		}

		wg.Add(1)
		go func(w *Runner, delay time.Duration) {
			defer wg.Done()
			if delay > 0 {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return
				}
			}
			for ctx.Err() == nil && claim() {
				if limiter != nil {
					if err := limiter.Wait(ctx); err != nil {
						return
					}
				}
				t0 := time.Now()
				res, err := w.Run(ctx, plan, baseURL)
				elapsed := time.Since(t0)

				mu.Lock()
				if err != nil {
					runErr = err
					mu.Unlock()
					return
				}
				// A run cut short by the deadline says nothing about the API.
				if ctx.Err() != nil {
					mu.Unlock()
					return
				}
				result.Iterations++
				latencies = append(latencies, elapsed)
				if res.Execution.Status == model.ExecutionSuccess {
					result.Passed++
				} else {
					result.Failed++
					for _, s := range res.Steps {
						if s.Status == model.StepFailed {
							result.FailedSteps[s.Title]++
							break
						}
					}
				}
				mu.Unlock()
			}
		}(&worker, delay)
	}
	wg.Wait()

	if runErr != nil {
		return nil, runErr
	}
	result.Duration = r.now().Sub(begin)
	if result.Duration > 0 {
		result.Throughput = float64(result.Iterations) / result.Duration.Seconds()
	}
	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		result.MinLatency = latencies[0]
		result.MaxLatency = latencies[len(latencies)-1]
		result.LatencyP50 = latencies[percentileIndex(len(latencies), 50)]
		result.LatencyP95 = latencies[percentileIndex(len(latencies), 95)]
		result.LatencyP99 = latencies[percentileIndex(len(latencies), 99)]

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		result.AvgLatency = sum / time.Duration(len(latencies))
	}
	r.logger.Info("load finished", "scenario", plan.ScenarioName, "iterations", result.Iterations,
		"failed", result.Failed, "duration", result.Duration)
	return result, nil
}

// percentileIndex returns the nearest-rank index of a percentile in a sorted
// sample of n.
func percentileIndex(n int, percentile int) int {
	if n == 0 {
		return 0
	}
	index := int(math.Ceil(float64(n)*float64(percentile)/100.0)) - 1
	if index < 0 {
		index = 0
	}
	if index >= n {
		index = n - 1
	}
	return index
}
