package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/codewandler/evcorr/adapters/otelmetrics"
	promadapter "github.com/codewandler/evcorr/adapters/prometheus"
	"github.com/codewandler/evcorr/core/dispatch"
	"github.com/codewandler/evcorr/core/effect"
	"github.com/codewandler/evcorr/core/event"
	"github.com/codewandler/evcorr/ports/radio"
)

var errInjected = errors.New("injected failure")

type tick struct{ N int }

var tickKey = event.Key{Name: "tick"}

func (tick) Lookup() event.Lookup { return event.Exact(tickKey) }

func main() {
	configPath := flag.String("config", getEnv("CONFIG", ""), "path to a YAML config file")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.level()}))
	slog.SetDefault(log)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, cfg.Timeout)
	defer cancelTimeout()

	if err := run(ctx, log, cfg); err != nil {
		log.Error("loadtest failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg Config) error {
	var metrics dispatch.Metrics
	switch cfg.Metrics {
	case "otel":
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer provider.Shutdown(context.Background())

		m, err := otelmetrics.NewDispatchMetrics(provider.Meter("evcorr/loadtest"))
		if err != nil {
			return fmt.Errorf("otel metrics: %w", err)
		}
		metrics = m
		defer printOtelMetrics(log, reader)
	default:
		reg := prometheus.NewRegistry()
		metrics = promadapter.NewDispatchMetrics(reg)

		if cfg.MetricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			srv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
			go func() {
				log.Info("prometheus metrics server starting", slog.String("addr", cfg.MetricsAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("prometheus server error", slog.Any("error", err))
				}
			}()
			defer srv.Shutdown(context.Background())
		}
	}

	d := dispatch.New(dispatch.Options{
		Context: ctx,
		Logger:  log,
		Metrics: metrics,
	})
	defer d.Close()

	fmt.Printf("ordering:    %d events\n", cfg.Events)
	if err := runOrdering(ctx, d, cfg.Events); err != nil {
		return fmt.Errorf("ordering: %w", err)
	}

	fmt.Printf("correlation: %d peripherals x %d callers x %d reads (latency %s, fail every %d)\n",
		cfg.Peripherals, cfg.Callers, cfg.Reads, cfg.Latency, cfg.FailEvery)
	if err := runCorrelation(ctx, log, d, cfg); err != nil {
		return fmt.Errorf("correlation: %w", err)
	}
	return nil
}

// runOrdering pushes n ticks through one unfiltered listener and checks they
// arrive strictly in order.
func runOrdering(ctx context.Context, d *dispatch.Dispatcher, n int) error {
	var (
		last       int
		violations int
	)
	id := dispatch.ListenerID("loadtest.ordering")
	if err := d.AttachGenericListener(id, func(ev event.Event) {
		t, ok := ev.(tick)
		if !ok {
			return
		}
		if t.N != last+1 {
			violations++
		}
		last = t.N
	}); err != nil {
		return err
	}
	defer d.DetachListener(id)

	startAt := time.Now()
	for i := 1; i <= n; i++ {
		d.Enqueue(tick{N: i})
	}
	if err := d.Flush(ctx); err != nil {
		return err
	}
	took := time.Since(startAt)

	var lastSeen, bad int
	done := make(chan struct{})
	d.Exec(func() {
		lastSeen, bad = last, violations
		close(done)
	})
	<-done

	printStats(n, took)
	if bad > 0 || lastSeen != n {
		return fmt.Errorf("%d ordering violations, last tick %d of %d", bad, lastSeen, n)
	}
	return nil
}

func runCorrelation(ctx context.Context, log *slog.Logger, d *dispatch.Dispatcher, cfg Config) error {
	sim := radio.NewSim(d, radio.WithLatency(cfg.Latency), radio.WithSimLogger(log))
	defer sim.Close()

	ch := radio.CharacteristicRef{Service: "180F", ID: "2A19"}
	ids := make([]string, cfg.Peripherals)
	for i := range ids {
		ids[i] = sim.AddPeripheral(radio.Peripheral{Services: []radio.Service{{
			ID:              ch.Service,
			Characteristics: []radio.Characteristic{{ID: ch.ID, Value: []byte{byte(i)}}},
		}}})
	}

	a := effect.New(d, sim, effect.WithLogger(log))
	defer a.Close()

	if _, err := a.SystemState(ctx, nil); err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := a.Connect(ctx, id); err != nil {
			return err
		}
	}

	var (
		ok, failed, unexpected atomic.Int64
		injected               atomic.Int64
		wg                     sync.WaitGroup
	)
	startAt := time.Now()
	for _, id := range ids {
		for range cfg.Callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range cfg.Reads {
					if cfg.FailEvery > 0 && injected.Add(1)%int64(cfg.FailEvery) == 0 {
						sim.FailNext(radio.ValueKey(id, ch), errInjected)
					}
					_, err := a.Read(ctx, id, ch)
					switch {
					case err == nil:
						ok.Add(1)
					case errors.Is(err, errInjected):
						failed.Add(1)
					default:
						unexpected.Add(1)
						log.Debug("read failed", slog.String("peripheral", id), slog.Any("error", err))
					}
				}
			}()
		}
	}
	wg.Wait()
	took := time.Since(startAt)

	total := int(ok.Load() + failed.Load() + unexpected.Load())
	printStats(total, took)
	fmt.Printf("      ok: %d  injected failures: %d  unexpected: %d\n", ok.Load(), failed.Load(), unexpected.Load())

	if n := unexpected.Load(); n > 0 {
		return fmt.Errorf("%d reads failed unexpectedly", n)
	}
	return nil
}

// printOtelMetrics prints the counter totals collected by reader.
func printOtelMetrics(log *slog.Logger, reader *sdkmetric.ManualReader) {
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		log.Warn("collect otel metrics", slog.Any("error", err))
		return
	}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			fmt.Printf("      %s: %d\n", m.Name, total)
		}
	}
}

func printStats(n int, took time.Duration) {
	runtime.GC()
	mu := getMemUsage()
	fmt.Printf("      %d ops in %d ms | %d ops/s | (%d / %d) MiB mem (sys)\n",
		n, took.Milliseconds(), int(float64(n)/took.Seconds()), mu.Alloc/1024/1024, mu.Sys/1024/1024)
}

type MemUsage struct {
	Alloc uint64 // bytes allocated and not yet freed (heap)
	Sys   uint64 // total bytes obtained from OS
}

func getMemUsage() MemUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemUsage{Alloc: m.Alloc, Sys: m.Sys}
}
