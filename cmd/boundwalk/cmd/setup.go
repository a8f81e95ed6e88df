package cmd

import (
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/boundwalk/boundwalk/config"
	"github.com/boundwalk/boundwalk/domain"
	"github.com/boundwalk/boundwalk/engine"
	"github.com/boundwalk/boundwalk/metrics"
	"github.com/boundwalk/boundwalk/reporter"
)

// buildEngine loads --config and --program and wires them into a ready
// to run Engine over the bundled reference domain, plus whatever
// observability the persistent flags ask for.
func buildEngine() (*engine.Engine[domain.PathSet, domain.PathFromCall, domain.PathSet], error) {
	opts, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	prog, entryPoints, err := LoadProgram(programPath)
	if err != nil {
		return nil, err
	}
	if len(opts.EntryPoints) == 0 {
		opts.EntryPoints = entryPoints
	}

	var rep reporter.Reporter = reporter.NewLogReporter(os.Stdout, jsonLog)
	if enableOTel {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		rep = reporter.NewMulti(rep, reporter.NewOTelReporter(otel.Tracer("boundwalk")))
	}

	registry := prometheus.NewRegistry()
	mets := metrics.New(registry)
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		go func() {
			if err := http.ListenAndServe(metricsAddr, mux); err != nil {
				fmt.Fprintf(os.Stderr, "boundwalk: metrics server stopped: %v\n", err)
			}
		}()
	}

	dom := &domain.PathDomain{}
	return engine.New[domain.PathSet, domain.PathFromCall, domain.PathSet](prog, dom, opts, rep, mets), nil
}
