package observability

type provider struct {
	tracer     Tracer
	counters   map[string]Counter
	histograms map[string]Histogram
}

// NewTelemetry assembles a Telemetry provider from the supplied tracer and
// pre-registered instruments. Unknown names resolve to no-ops so a missing
// registration can never panic a request path.
func NewTelemetry(tracer Tracer, counters map[string]Counter, histograms map[string]Histogram) Telemetry {
	if tracer == nil {
		tracer = NopTracer()
	}

	counterCopy := make(map[string]Counter, len(counters))
	for k, v := range counters {
		if v != nil {
			counterCopy[k] = v
		}
	}
	histogramCopy := make(map[string]Histogram, len(histograms))
	for k, v := range histograms {
		if v != nil {
			histogramCopy[k] = v
		}
	}

	return &provider{tracer: tracer, counters: counterCopy, histograms: histogramCopy}
}

func (p *provider) Tracer() Tracer { return p.tracer }

func (p *provider) Counter(name string) Counter {
	if c, ok := p.counters[name]; ok {
		return c
	}
	return NopCounter()
}

func (p *provider) Histogram(name string) Histogram {
	if h, ok := p.histograms[name]; ok {
		return h
	}
	return NopHistogram()
}
