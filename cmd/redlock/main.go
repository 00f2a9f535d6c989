package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mirkobrombin/go-redlock/v1/metrics"
	"github.com/mirkobrombin/go-redlock/v1/presets"
	"github.com/mirkobrombin/go-redlock/v1/redlock"
)

// redlock runs a command while holding a distributed lock:
//
//	redlock -addrs a:6379,b:6379,c:6379 -resource nightly-job -ttl 30s -- ./job.sh
func main() {
	defaults := redlock.DefaultConfig()
	addrs := flag.String("addrs", strings.Join(defaults.Addresses, ","), "Comma-separated list of Redis addresses or redis:// URLs")
	resource := flag.String("resource", "", "Name of the lock")
	ttl := flag.Duration("ttl", 30*time.Second, "Lock TTL")
	retryCount := flag.Int("retry-count", defaults.RetryCount, "Additional attempts after the first one")
	retryDelay := flag.Duration("retry-delay", defaults.RetryDelay, "Base delay between attempts")
	retryJitter := flag.Duration("retry-jitter", defaults.RetryJitter, "Maximum random delay added to retry-delay")
	drift := flag.Float64("drift-factor", defaults.DriftFactor, "Clock drift factor")
	extend := flag.Bool("extend", false, "Keep extending the lock while the command runs")
	password := flag.String("password", "", "Redis password")
	metricsAddr := flag.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	if *resource == "" || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := defaults
	cfg.Addresses = strings.Split(*addrs, ",")
	cfg.RetryCount = *retryCount
	cfg.RetryDelay = *retryDelay
	cfg.RetryJitter = *retryJitter
	cfg.DriftFactor = *drift

	if *metricsAddr != "" {
		reg := metrics.NewRegistry()
		metrics.RegisterLockMetrics(reg)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
			log.Println(http.ListenAndServe(*metricsAddr, mux))
		}()
	}

	rl, closeAll, err := presets.NewRedis(cfg, presets.RedisOptions{Password: *password, DialTimeout: time.Second})
	if err != nil {
		log.Fatalf("redlock: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l, err := rl.Acquire(ctx, *resource, *ttl)
	if err != nil {
		_ = closeAll()
		log.Fatalf("redlock: %v", err)
	}
	log.Printf("acquired %s on %d/%d stores, valid for %v", *resource, len(l.AcquiredNodes()), rl.Stores(), l.Validity())

	code := run(ctx, rl, l, *extend, flag.Args())
	rl.Release(context.Background(), l)
	_ = closeAll()
	stop()
	os.Exit(code)
}

// run executes args and returns its exit code. Without extension the
// command is killed once the lock validity is over.
func run(ctx context.Context, rl *redlock.Redlock, l *redlock.Lock, extend bool, args []string) int {
	var cctx context.Context
	var cancel context.CancelFunc
	if extend {
		cctx, cancel = context.WithCancel(ctx)
		go keepExtending(cctx, cancel, rl, l)
	} else {
		cctx, cancel = context.WithTimeout(ctx, l.Validity())
	}
	defer cancel()

	cmd := exec.CommandContext(cctx, args[0], args[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.ExitCode()
	default:
		log.Printf("run: %v", err)
		return 1
	}
}

// keepExtending renews l at half its validity and cancels the command when
// an extension fails.
func keepExtending(ctx context.Context, cancel context.CancelFunc, rl *redlock.Redlock, l *redlock.Lock) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(l.Validity() / 2):
		}
		next, err := rl.Extend(ctx, l, l.TTL())
		if err != nil {
			log.Printf("extend failed, stopping command: %v", err)
			cancel()
			return
		}
		l = next
	}
}
