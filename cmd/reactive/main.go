// Command reactive runs the audio-reactive pipeline and prints what it hears.
//
// Usage:
//
//	reactive [flags]
//
// By default it runs the synthetic 120 BPM source for 10 seconds and prints
// detected beats, spawned events and parameter updates.
//
// Examples:
//
//	reactive
//	reactive -duration 30s -bpm 96
//	reactive -live
//	reactive -quiet -duration 5s
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/cwbudde/algo-reactive/dsp/acquire"
	"github.com/cwbudde/algo-reactive/engine"
)

type printSink struct {
	mu    sync.Mutex
	quiet bool
}

func (s *printSink) Update(name string, value float64) {
	if s.quiet {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Printf("param %-12s %8.4f\n", name, value)
}

func main() {
	duration := flag.Duration("duration", 10*time.Second, "how long to run")
	bpm := flag.Float64("bpm", 120, "tempo of the synthetic source")
	live := flag.Bool("live", false, "try the microphone before falling back to synthetic input")
	quiet := flag.Bool("quiet", false, "suppress per-parameter output")
	flag.Parse()

	opts := []engine.Option{
		engine.WithSink(&printSink{quiet: *quiet}),
	}

	if *live {
		opts = append(opts, engine.WithLiveInput())
	} else {
		src, err := acquire.NewSynthetic(acquire.WithSynthTempo(*bpm))
		if err != nil {
			fmt.Fprintf(os.Stderr, "reactive: %v\n", err)
			os.Exit(1)
		}

		opts = append(opts, engine.WithSource(src))
	}

	p, err := engine.New(opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "reactive: %v\n", err)
		os.Exit(1)
	}

	if err := p.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "reactive: %v\n", err)
		os.Exit(1)
	}

	cal := p.Calibration()
	fmt.Printf("input: %s, latency: %.0fms in / %.0fms out (confidence %.2f)\n",
		p.Mode(), cal.Profile.InputMs, cal.Profile.OutputMs, cal.Confidence)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *duration)
	defer cancel()

	ticker := time.NewTicker(p.TickInterval())
	defer ticker.Stop()

	adapt := time.NewTicker(time.Second)
	defer adapt.Stop()

	for {
		select {
		case <-ctx.Done():
			p.Stop()
			fmt.Println("done")

			return
		case <-adapt.C:
			p.Compensator().AdaptNow()
		case <-ticker.C:
			res, err := p.Tick()
			if err != nil {
				fmt.Fprintf(os.Stderr, "reactive: %v\n", err)
				os.Exit(1)
			}

			if res.Beat.BeatDetected {
				fmt.Printf("beat  %8.1fms  bpm %.1f  strength %.2f\n",
					float64(res.Timestamp)/float64(time.Millisecond), res.Beat.BPM, res.Beat.Strength)
			}

			for _, ev := range res.Spawned {
				fmt.Printf("event %-12s %-8s energy %.3f at %v\n",
					ev.Geometry, ev.Interaction, ev.Energy, ev.SpawnTime)
			}
		}
	}
}
