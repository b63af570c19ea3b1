// Package scam implements the token screening heuristic: a known-bad list,
// a suspicious-name pattern and a small random flag chance. The random
// component is a configurable stand-in for real honeypot analysis.
package scam

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"sync"

	"cryptoSimBot/internal/metrics"
	"cryptoSimBot/internal/ports"
)

var suspiciousName = regexp.MustCompile(`(?i)fake|scam|rug|honey|test`)

// Result is the outcome of screening one token.
type Result struct {
	IsScam     bool
	IsHoneypot bool
	Confidence float64
	Warnings   []string
}

// Config holds configuration for the detector.
type Config struct {
	FlagChance float64 // Probability of flagging an arbitrary clean symbol
	Logger     ports.Logger

	// RandFloat returns a uniform value in [0,1). Defaults to math/rand.
	RandFloat func() float64
}

// Detector screens token symbols before the decision source proposes them.
type Detector struct {
	cfg       Config
	logger    ports.Logger
	randFloat func() float64

	mu         sync.Mutex
	knownScams map[string]struct{}
	blocked    int
}

// NewDetector creates a detector with an empty known-scam list.
func NewDetector(cfg Config) *Detector {
	randFloat := cfg.RandFloat
	if randFloat == nil {
		randFloat = rand.Float64
	}
	return &Detector{
		cfg:        cfg,
		logger:     cfg.Logger,
		randFloat:  randFloat,
		knownScams: make(map[string]struct{}),
	}
}

// AddKnownScam records a symbol as known-bad. Matching is case-insensitive.
func (d *Detector) AddKnownScam(symbol string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.knownScams[strings.ToLower(symbol)] = struct{}{}
}

// Analyze screens a symbol. Flagged symbols bump the blocked counter.
func (d *Detector) Analyze(ctx context.Context, symbol string) Result {
	d.mu.Lock()
	_, known := d.knownScams[strings.ToLower(symbol)]
	d.mu.Unlock()

	suspicious := suspiciousName.MatchString(symbol)
	randomFlag := d.randFloat() < d.cfg.FlagChance

	isScam := known || suspicious || randomFlag
	if !isScam {
		return Result{Confidence: 0.1}
	}

	d.mu.Lock()
	d.blocked++
	d.mu.Unlock()
	metrics.ScamFlags.Inc()

	if d.logger != nil {
		d.logger.Warn(ctx, "Scam screening flagged symbol", map[string]interface{}{
			"symbol":     symbol,
			"knownScam":  known,
			"suspicious": suspicious,
			"randomFlag": randomFlag,
		})
	}
	return Result{
		IsScam:     true,
		IsHoneypot: randomFlag,
		Confidence: 0.9,
		Warnings:   []string{"potential scam detected"},
	}
}

// BlockedCount returns how many screenings have flagged a symbol.
func (d *Detector) BlockedCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.blocked
}
