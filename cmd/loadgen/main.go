package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/mohammed-shakir/spatial-priorities-api/internal/logger"
)

type Config struct {
	BaseURL         string
	Concurrency     int
	Duration        time.Duration
	ZipfS           float64
	ZipfV           float64
	PoolSize        int
	OutputPrefix    string
	RequestTimeout  time.Duration
	AppendTimestamp bool
	StationFile     string
	Munis           string
	AcceptGeoJSON   bool
}

func loadConfig() Config {
	var cfg Config
	flag.StringVar(&cfg.BaseURL, "target", "http://localhost:8000", "API base URL including URL_ROOT")
	flag.IntVar(&cfg.Concurrency, "concurrency", 16, "Concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", 30*time.Second, "Test duration")
	flag.Float64Var(&cfg.ZipfS, "zipf-s", 1.3, "Zipf parameter s (>1)")
	flag.Float64Var(&cfg.ZipfV, "zipf-v", 1.0, "Zipf parameter v (>=1)")
	flag.IntVar(&cfg.PoolSize, "pool", 128, "Distinct requests in pool")
	flag.StringVar(&cfg.OutputPrefix, "out", "results/loadgen", "Output file prefix (JSON/CSV)")
	flag.DurationVar(&cfg.RequestTimeout, "timeout", 10*time.Second, "Per-request timeout")
	flag.BoolVar(&cfg.AppendTimestamp, "append-ts", true, "Append timestamp to output prefix")
	flag.StringVar(&cfg.StationFile, "stations", "", "Optional CSV of station ids (id or station_id column)")
	flag.StringVar(&cfg.Munis, "munis", strings.Join(defaultMunis, ","), "Comma-separated municipality names")
	flag.BoolVar(&cfg.AcceptGeoJSON, "geojson", false, "Send Accept: application/geo+json")
	flag.Parse()
	return cfg
}

type sample struct {
	Timestamp time.Time
	Latency   time.Duration
	Status    int
	ErrorMsg  string
	Route     string
	URL       string
}

type routeStats struct {
	Total   int64   `json:"total"`
	Errors  int64   `json:"errors"`
	P50Ms   float64 `json:"p50_ms"`
	P95Ms   float64 `json:"p95_ms"`
	latency []float64
}

type summary struct {
	StartTime     time.Time              `json:"start"`
	EndTime       time.Time              `json:"end"`
	DurationSec   float64                `json:"duration_sec"`
	TotalRequests int64                  `json:"total"`
	SuccessCount  int64                  `json:"success"`
	NotModified   int64                  `json:"not_modified"`
	ErrorCount    int64                  `json:"errors"`
	ThroughputRPS float64                `json:"throughput_rps"`
	P50Ms         float64                `json:"p50_ms"`
	P95Ms         float64                `json:"p95_ms"`
	P99Ms         float64                `json:"p99_ms"`
	Concurrency   int                    `json:"concurrency"`
	ZipfS         float64                `json:"zipf_s"`
	ZipfV         float64                `json:"zipf_v"`
	PoolSize      int                    `json:"pool"`
	BaseURL       string                 `json:"target"`
	Routes        map[string]*routeStats `json:"routes"`
}

type aggregatedResult struct {
	total       int64
	success     int64
	notModified int64
	errors      int64
	latMs       []float64
	routes      map[string]*routeStats
}

func main() {
	cfg := loadConfig()

	zl := logger.Build(logger.Config{Level: "info", Console: true, Service: "loadgen", Component: "loadgen"}, os.Stderr)
	log := logger.NewSlog(&zl)

	if err := run(cfg, log); err != nil {
		log.Error("loadgen failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger) error {
	if err := os.MkdirAll(filepath.Dir(cfg.OutputPrefix), 0o750); err != nil {
		return fmt.Errorf("mkdir results: %w", err)
	}
	prefix := cfg.OutputPrefix
	if cfg.AppendTimestamp {
		prefix = fmt.Sprintf("%s_%s", prefix, time.Now().UTC().Format("20060102_150405Z"))
	}

	seed := time.Now().UnixNano()
	r := rand.New(rand.NewSource(seed))

	stations := defaultStations
	if strings.TrimSpace(cfg.StationFile) != "" {
		ids, err := loadStationsCSV(cfg.StationFile)
		if err != nil {
			log.Warn("failed to load stations; using defaults", "file", cfg.StationFile, "err", err)
		} else if len(ids) > 0 {
			stations = ids
		}
	}
	var munis []string
	for m := range strings.SplitSeq(cfg.Munis, ",") {
		if m = strings.TrimSpace(m); m != "" {
			munis = append(munis, m)
		}
	}

	targets := makeTargets(stations, munis, cfg.PoolSize, r)
	if len(targets) == 0 {
		return fmt.Errorf("no targets generated")
	}
	imax := uint64(len(targets)) - 1

	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         (&net.Dialer{Timeout: 4 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
			MaxIdleConns:        256,
			MaxIdleConnsPerHost: 64,
			IdleConnTimeout:     90 * time.Second,
		},
		Timeout: cfg.RequestTimeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	csvPath := prefix + "_samples.csv"
	jsonPath := prefix + "_summary.json"
	csvFile, err := os.Create(filepath.Clean(csvPath))
	if err != nil {
		return fmt.Errorf("open csv: %w", err)
	}
	defer func() { _ = csvFile.Close() }()
	csvWriter := csv.NewWriter(csvFile)

	samplesChan := make(chan sample, 4096)
	resultsChan := make(chan aggregatedResult, 1)
	go func() {
		_ = csvWriter.Write([]string{"timestamp", "latency_ms", "status", "error", "route", "url"})
		agg := aggregatedResult{routes: map[string]*routeStats{}}
		for s := range samplesChan {
			agg.total++
			rs, ok := agg.routes[s.Route]
			if !ok {
				rs = &routeStats{}
				agg.routes[s.Route] = rs
			}
			rs.Total++
			ms := float64(s.Latency.Microseconds()) / 1000.0
			switch {
			case s.ErrorMsg != "":
				agg.errors++
				rs.Errors++
			case s.Status == http.StatusNotModified:
				agg.notModified++
				agg.latMs = append(agg.latMs, ms)
				rs.latency = append(rs.latency, ms)
			default:
				agg.success++
				agg.latMs = append(agg.latMs, ms)
				rs.latency = append(rs.latency, ms)
			}
			_ = csvWriter.Write([]string{
				s.Timestamp.UTC().Format(time.RFC3339Nano),
				strconv.FormatFloat(ms, 'f', 3, 64),
				strconv.Itoa(s.Status),
				s.ErrorMsg,
				s.Route,
				s.URL,
			})
		}
		csvWriter.Flush()
		if err := csvWriter.Error(); err != nil {
			log.Warn("csv flush error", "err", err)
		}
		resultsChan <- agg
	}()

	startTime := time.Now()
	log.Info("loadgen start",
		"target", cfg.BaseURL, "duration", cfg.Duration, "concurrency", cfg.Concurrency,
		"zipf_s", cfg.ZipfS, "zipf_v", cfg.ZipfV, "pool", len(targets))

	var wg sync.WaitGroup
	for workerID := range cfg.Concurrency {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			rWorker := rand.New(rand.NewSource(seed + int64(id) + 1))
			zipfDist := rand.NewZipf(rWorker, cfg.ZipfS, cfg.ZipfV, imax)
			etags := map[string]string{}
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				v := zipfDist.Uint64()
				if v > uint64(math.MaxInt) || int(v) >= len(targets) {
					continue
				}
				t := targets[int(v)]
				u := t.URL(cfg.BaseURL)

				res := doRequest(ctx, httpClient, u, etags[u], cfg.AcceptGeoJSON)
				res.Route = t.Route
				res.URL = u
				if res.etag != "" {
					etags[u] = res.etag
				}

				select {
				case samplesChan <- res.sample:
				case <-ctx.Done():
					return
				}
			}
		}(workerID)
	}

	go func() {
		<-ctx.Done()
		wg.Wait()
		close(samplesChan)
	}()

	agg := <-resultsChan
	endTime := time.Now()
	elapsed := endTime.Sub(startTime).Seconds()

	sort.Float64s(agg.latMs)
	for _, rs := range agg.routes {
		sort.Float64s(rs.latency)
		rs.P50Ms = percentile(rs.latency, 50)
		rs.P95Ms = percentile(rs.latency, 95)
	}

	runSummary := summary{
		StartTime:     startTime.UTC(),
		EndTime:       endTime.UTC(),
		DurationSec:   elapsed,
		TotalRequests: agg.total,
		SuccessCount:  agg.success,
		NotModified:   agg.notModified,
		ErrorCount:    agg.errors,
		ThroughputRPS: float64(agg.total) / elapsed,
		P50Ms:         percentile(agg.latMs, 50),
		P95Ms:         percentile(agg.latMs, 95),
		P99Ms:         percentile(agg.latMs, 99),
		Concurrency:   cfg.Concurrency,
		ZipfS:         cfg.ZipfS,
		ZipfV:         cfg.ZipfV,
		PoolSize:      len(targets),
		BaseURL:       cfg.BaseURL,
		Routes:        agg.routes,
	}

	b, err := json.MarshalIndent(runSummary, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(jsonPath), b, 0o600); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}

	log.Info("done",
		"total", agg.total, "success", agg.success, "not_modified", agg.notModified, "errors", agg.errors,
		"rps", runSummary.ThroughputRPS, "p50_ms", runSummary.P50Ms, "p95_ms", runSummary.P95Ms, "p99_ms", runSummary.P99Ms)
	log.Info("wrote results", "summary", jsonPath, "samples", csvPath)
	return nil
}

type result struct {
	sample
	etag string
}

// doRequest issues one GET, revalidating with If-None-Match when an ETag
// from an earlier response is known.
func doRequest(ctx context.Context, c *http.Client, u, etag string, geo bool) result {
	start := time.Now()
	res := result{sample: sample{Timestamp: start}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		res.ErrorMsg = err.Error()
		return res
	}
	if geo {
		req.Header.Set("Accept", "application/geo+json")
	} else {
		req.Header.Set("Accept", "application/json")
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.Do(req)
	res.Latency = time.Since(start)
	if err != nil {
		res.ErrorMsg = err.Error()
		return res
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	res.Status = resp.StatusCode
	res.etag = resp.Header.Get("ETag")
	if resp.StatusCode != http.StatusNotModified && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		res.ErrorMsg = fmt.Sprintf("status=%d", resp.StatusCode)
	}
	return res
}
