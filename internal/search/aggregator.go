package search

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"beastfood/pkg/logger"
	"beastfood/pkg/metrics"
	"beastfood/pkg/models"
)

const DefaultThreshold = 3

type enabler interface {
	Enabled() bool
}

// Aggregator runs the search pipeline: local database, then the external
// sources in order, then the suggestion bank, then generated or synthesized
// suggestions. It never fails; a broken source contributes nothing.
type Aggregator struct {
	Local      Source
	External   []Source
	Bank       *Bank
	Generators []Generator
	Fallback   *Fallback
	Cache      Cache

	Threshold  int
	TargetCity string
	Log        *logger.Logger
}

type SourceStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

func (a *Aggregator) Search(ctx context.Context, term string, f models.SearchFilters) *models.SearchResult {
	start := time.Now()
	metrics.SearchRequests.Inc()
	defer func() { metrics.SearchDuration.Observe(time.Since(start).Seconds()) }()

	term = strings.TrimSpace(term)
	key := cacheKey(term, f)
	if a.Cache != nil {
		if res, ok := a.Cache.Get(ctx, key); ok {
			res.SearchTerm = term
			return res
		}
	}

	threshold := a.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	local, failed := a.call(ctx, a.Local, term, f)
	acc := filterCandidates(local, f)
	if len(acc) < threshold {
		for _, src := range a.External {
			out, srcFailed := a.call(ctx, src, term, f)
			failed = failed || srcFailed
			acc = append(acc, filterCandidates(out, f)...)
		}

		if len(acc) < threshold {
			extra, genFailed := a.fillShortfall(ctx, term, f, len(acc) == 0)
			failed = failed || genFailed
			acc = append(acc, extra...)
		}
	}

	res := a.finish(term, acc)
	// A result degraded by a failing source is not cached.
	if a.Cache != nil && !failed {
		a.Cache.Set(ctx, key, res)
	}
	return res
}

// fillShortfall consults the bank; on a miss it asks the generators only when
// nothing at all was found, and otherwise tops up with synthesized entries.
// failed reports whether a generator errored.
func (a *Aggregator) fillShortfall(ctx context.Context, term string, f models.SearchFilters, empty bool) (out []models.Candidate, failed bool) {
	if canned := filterCandidates(a.Bank.Lookup(term), f); len(canned) > 0 {
		metrics.SearchSourceResults.WithLabelValues(models.SourceLocalSuggestions).Add(float64(len(canned)))
		return canned, false
	}

	if empty {
		for _, g := range a.Generators {
			if g == nil || !g.Enabled() {
				continue
			}
			gen, err := g.Suggest(ctx, term, f)
			if err != nil {
				failed = a.warn(g.Name(), term, err) || failed
				continue
			}
			if gen = filterCandidates(gen, f); len(gen) > 0 {
				metrics.SearchSourceResults.WithLabelValues(g.Name()).Add(float64(len(gen)))
				return gen, failed
			}
		}
	}

	if a.Fallback == nil {
		return nil, failed
	}
	out = filterCandidates(a.Fallback.Generate(term, f), f)
	metrics.SearchSourceResults.WithLabelValues(models.SourceFallback).Add(float64(len(out)))
	return out, failed
}

// call reports failed only for real errors; a disabled source is not a failure.
func (a *Aggregator) call(ctx context.Context, src Source, term string, f models.SearchFilters) ([]models.Candidate, bool) {
	if src == nil {
		return nil, false
	}
	if e, ok := src.(enabler); ok && !e.Enabled() {
		return nil, false
	}
	out, err := src.Search(ctx, term, f)
	if err != nil {
		return nil, a.warn(src.Name(), term, err)
	}
	metrics.SearchSourceResults.WithLabelValues(src.Name()).Add(float64(len(out)))
	return out, false
}

func (a *Aggregator) warn(source, term string, err error) bool {
	if errors.Is(err, ErrSourceDisabled) {
		return false
	}
	metrics.SearchSourceFailures.WithLabelValues(source).Inc()
	if a.Log != nil {
		a.Log.Warn("search source failed", "source", source, "term", term, "error", err)
	}
	return true
}

func (a *Aggregator) finish(term string, acc []models.Candidate) *models.SearchResult {
	list := Dedupe(acc)

	sources := make([]string, 0, 4)
	seen := map[string]bool{}
	for i := range list {
		list[i].Confidence = Score(list[i], a.TargetCity)
		if !seen[list[i].Source] {
			seen[list[i].Source] = true
			sources = append(sources, list[i].Source)
		}
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].Confidence > list[j].Confidence })

	return &models.SearchResult{
		SearchTerm:  term,
		Suggestions: list,
		Sources:     sources,
		Total:       len(list),
	}
}

// Sources reports every configured adapter in call order.
func (a *Aggregator) Sources() []SourceStatus {
	var out []SourceStatus
	add := func(name string, v any) {
		enabled := v != nil
		if e, ok := v.(enabler); ok {
			enabled = e.Enabled()
		}
		out = append(out, SourceStatus{Name: name, Enabled: enabled})
	}
	if a.Local != nil {
		add(a.Local.Name(), a.Local)
	}
	for _, s := range a.External {
		add(s.Name(), s)
	}
	out = append(out, SourceStatus{Name: models.SourceLocalSuggestions, Enabled: a.Bank != nil && a.Bank.Len() > 0})
	for _, g := range a.Generators {
		add(g.Name(), g)
	}
	out = append(out, SourceStatus{Name: models.SourceFallback, Enabled: a.Fallback != nil})
	return out
}
