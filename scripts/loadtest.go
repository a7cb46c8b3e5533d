// Loadtest is a concurrent HTTP load generator for the endpoint service. It
// interleaves snapshot queries with endpoint registrations and then checks
// that no successful registration was lost.
//
// Usage:
//
//	go run loadtest.go -url http://localhost:8080 -concurrency 10 -requests 1000
//	go run loadtest.go -url http://localhost:8080 -register-every 5 -out summary.json
//
// The tool reports:
//   - Status code distribution per operation
//   - Latency percentiles (p50, p90, p95, p99) per operation
//   - Registry size before and after the run
//
// Exit codes:
//
//	0 - all requests succeeded and the registry grew by the number of registrations
//	2 - some requests failed
//	3 - registrations were lost
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type opStats struct {
	mu          sync.Mutex
	statusCodes map[int]int
	latencies   []time.Duration
	failures    int
}

func newOpStats() *opStats {
	return &opStats{statusCodes: make(map[int]int)}
}

func (s *opStats) record(code int, d time.Duration, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latencies = append(s.latencies, d)
	if err != nil {
		s.failures++
		return
	}

	s.statusCodes[code]++
	if code < 200 || code > 299 {
		s.failures++
	}
}

type opSummary struct {
	Requests    int         `json:"requests"`
	Failures    int         `json:"failures"`
	StatusCodes map[int]int `json:"status_codes"`
	P50         float64     `json:"p50_ms"`
	P90         float64     `json:"p90_ms"`
	P95         float64     `json:"p95_ms"`
	P99         float64     `json:"p99_ms"`
}

func (s *opStats) summary() opSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := opSummary{
		Requests:    len(s.latencies),
		Failures:    s.failures,
		StatusCodes: s.statusCodes,
	}

	if len(s.latencies) == 0 {
		return sum
	}

	tmp := make([]time.Duration, len(s.latencies))
	copy(tmp, s.latencies)
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
	pick := func(p float64) float64 {
		return float64(tmp[int(float64(len(tmp)-1)*p)].Microseconds()) / 1000.0
	}

	sum.P50 = pick(0.50)
	sum.P90 = pick(0.90)
	sum.P95 = pick(0.95)
	sum.P99 = pick(0.99)
	return sum
}

func main() {
	var (
		baseURL       = flag.String("url", "http://localhost:8080", "Service base URL")
		concurrency   = flag.Int("concurrency", 10, "Number of concurrent workers")
		requests      = flag.Int("requests", 100, "Total number of requests to send")
		registerEvery = flag.Int("register-every", 4, "Send a registration every N requests (0 disables)")
		timeoutSec    = flag.Int("timeout", 10, "Per-request timeout in seconds")
		outJSON       = flag.String("out", "", "Write JSON summary to this file (optional)")
		verbose       = flag.Bool("v", false, "Verbose per-request logging to stdout")
	)
	flag.Parse()

	client := &http.Client{Timeout: time.Duration(*timeoutSec) * time.Second}
	endpointsURL := *baseURL + "/api/endpoints"

	before, err := registrySize(client, endpointsURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read registry: %v\n", err)
		os.Exit(1)
	}

	queries := newOpStats()
	registrations := newOpStats()
	var registered int32

	jobs := make(chan int)
	var wg sync.WaitGroup

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for idx := range jobs {
				isRegistration := *registerEvery > 0 && idx%*registerEvery == 0

				var req *http.Request
				if isRegistration {
					body, _ := json.Marshal(map[string]string{
						"name": fmt.Sprintf("Loadtest API %d", idx),
						"url":  fmt.Sprintf("https://loadtest-%d.example.com", idx),
					})
					req, _ = http.NewRequest(http.MethodPost, endpointsURL, bytes.NewReader(body))
					req.Header.Set("Content-Type", "application/json")
				} else {
					req, _ = http.NewRequest(http.MethodGet, endpointsURL, nil)
				}

				start := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(start)

				code := 0
				if err == nil {
					code = resp.StatusCode
					io.Copy(io.Discard, resp.Body)
					resp.Body.Close()
				}

				if isRegistration {
					registrations.record(code, dur, err)
					if err == nil && code == http.StatusOK {
						atomic.AddInt32(&registered, 1)
					}
				} else {
					queries.record(code, dur, err)
				}

				if *verbose {
					fmt.Printf("[%d] idx=%d register=%t status=%d dur=%v err=%v\n", workerID, idx, isRegistration, code, dur, err)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)

	after, err := registrySize(client, endpointsURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read registry: %v\n", err)
		os.Exit(1)
	}

	qs := queries.summary()
	rs := registrations.summary()
	expected := before + int(registered)

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s\n", *baseURL)
	fmt.Printf("Requests: %d  Concurrency: %d  Duration: %v  Throughput: %.2f req/s\n",
		*requests, *concurrency, totalDuration, float64(*requests)/totalDuration.Seconds())
	printSummary("Queries", qs)
	printSummary("Registrations", rs)
	fmt.Printf("\nRegistry size: before=%d after=%d expected>=%d\n", before, after, expected)

	if *outJSON != "" {
		report := map[string]interface{}{
			"target":         *baseURL,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"duration_ms":    totalDuration.Milliseconds(),
			"queries":        qs,
			"registrations":  rs,
			"registry_start": before,
			"registry_end":   after,
		}

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	// other clients may register concurrently, so only a shortfall is an error
	if after < expected {
		fmt.Fprintf(os.Stderr, "lost %d registrations\n", expected-after)
		os.Exit(3)
	}

	if qs.Failures+rs.Failures > 0 {
		os.Exit(2)
	}
}

func registrySize(client *http.Client, endpointsURL string) (int, error) {
	resp, err := client.Get(endpointsURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var snap struct {
		Endpoints []json.RawMessage `json:"endpoints"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return 0, err
	}

	return len(snap.Endpoints), nil
}

func printSummary(name string, s opSummary) {
	fmt.Printf("\n%s: total=%d failures=%d\n", name, s.Requests, s.Failures)

	codes := make([]int, 0, len(s.StatusCodes))
	for code := range s.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d -> %d\n", code, s.StatusCodes[code])
	}

	if s.Requests > 0 {
		fmt.Printf("  latencies: p50=%.3fms p90=%.3fms p95=%.3fms p99=%.3fms\n", s.P50, s.P90, s.P95, s.P99)
	}
}
