// Package driver runs the engine headlessly: no server, no sleeps, ticks
// advance as fast as the host can call Step. Scheduled work (periodic trace
// checkpoints) is driven by a container/heap priority queue ordered on
// simulated time rather than wall-clock arrival.
package driver

import (
	"container/heap"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jwmdev/trafficcore/provider"
	"github.com/jwmdev/trafficcore/roadmap"
	"github.com/jwmdev/trafficcore/telemetry"
)

// Options configures a headless run.
type Options struct {
	Seed           int64
	Dt             float64 // fixed tick size, seconds
	MaxTicks       int64
	MaxSimTime     float64 // 0 means unbounded (MaxTicks governs instead)
	EndlessTraffic bool
	SourceID       string
	StopWhenEmpty  bool    // stop once no actors remain and MaxSimTime has elapsed
	TraceEvery     float64 // sim-seconds between trace checkpoints; 0 disables
	ReportPath     string
	Trace          bool
}

// Summary aggregates what happened over a run.
type Summary struct {
	Ticks            int64
	SimTimeElapsed   float64
	ActorsEmitted    int64
	ActorsFinished   int64
	EmergencyBrakes  int64
	CutIns           int64
	Warnings         int64
	WallClockElapsed time.Duration
}

// checkpoint is a scheduled trace event, ordered by simulated time.
type checkpoint struct {
	simTime float64
}

type checkpointPQ []checkpoint

func (p checkpointPQ) Len() int            { return len(p) }
func (p checkpointPQ) Less(i, j int) bool  { return p[i].simTime < p[j].simTime }
func (p checkpointPQ) Swap(i, j int)       { p[i], p[j] = p[j], p[i] }
func (p *checkpointPQ) Push(x any)         { *p = append(*p, x.(checkpoint)) }
func (p *checkpointPQ) Pop() any           { old := *p; n := len(old); v := old[n-1]; *p = old[:n-1]; return v }

// Run drives a Provider tick-by-tick until a stop condition is met,
// returning an aggregate Summary. trafficSpec may be nil (no flows loaded).
func Run(rm roadmap.RoadMap, trafficSpec io.Reader, opt Options) (Summary, error) {
	if opt.Dt <= 0 {
		return Summary{}, fmt.Errorf("driver: dt must be positive")
	}

	logger := telemetry.NewLogger(nil)
	metrics := telemetry.NewMetrics()
	p := provider.New(logger, metrics)
	if err := p.Setup(provider.Scenario{
		RoadMap: rm, TrafficSpec: trafficSpec, Seed: opt.Seed,
		SourceID: opt.SourceID, EndlessTraffic: opt.EndlessTraffic,
	}); err != nil {
		return Summary{}, err
	}

	checkpoints := &checkpointPQ{}
	heap.Init(checkpoints)
	if opt.TraceEvery > 0 {
		heap.Push(checkpoints, checkpoint{simTime: opt.TraceEvery})
	}

	start := time.Now()
	var sum Summary
	var simTime float64
	var managedCount int

	for {
		if opt.MaxTicks > 0 && sum.Ticks >= opt.MaxTicks {
			break
		}
		if opt.MaxSimTime > 0 && simTime >= opt.MaxSimTime {
			break
		}

		state, events, err := p.Step(opt.Dt, simTime)
		if err != nil {
			return sum, err
		}
		simTime += opt.Dt
		sum.Ticks++
		sum.SimTimeElapsed = simTime
		managedCount = len(state.Vehicles)

		for _, ev := range events {
			switch e := ev.(type) {
			case provider.ActorEmittedEvent:
				sum.ActorsEmitted++
			case provider.ActorFinishedEvent:
				sum.ActorsFinished++
			case provider.EmergencyBrakeEvent:
				sum.EmergencyBrakes++
				if opt.Trace {
					fmt.Printf("[trace] t=%.2f emergency_brake actor=%s accel=%.3f\n", simTime, e.ActorID, e.Accel)
				}
			case provider.CutInEvent:
				sum.CutIns++
			case provider.WarningEvent:
				sum.Warnings++
			}
		}

		for checkpoints.Len() > 0 && (*checkpoints)[0].simTime <= simTime {
			cp := heap.Pop(checkpoints).(checkpoint)
			if opt.Trace {
				fmt.Printf("[trace] checkpoint t=%.2f vehicles=%d emitted=%d finished=%d\n",
					cp.simTime, managedCount, sum.ActorsEmitted, sum.ActorsFinished)
			}
			if opt.TraceEvery > 0 {
				heap.Push(checkpoints, checkpoint{simTime: cp.simTime + opt.TraceEvery})
			}
		}

		if opt.StopWhenEmpty && managedCount == 0 && sum.ActorsEmitted > 0 && opt.MaxSimTime > 0 && simTime >= opt.MaxSimTime {
			break
		}
	}
	sum.WallClockElapsed = time.Since(start)

	p.Teardown()

	if opt.ReportPath != "" {
		if err := writeReport(opt.ReportPath, sum); err != nil {
			log.Printf("driver: report write failed: %v", err)
		}
	}
	printConsoleReport(sum)
	return sum, nil
}

func round2(x float64) float64 { return math.Round(x*100) / 100 }

func writeReport(path string, s Summary) error {
	ts := time.Now().Format("20060102-150405")
	outPath := path
	if fi, err := os.Stat(outPath); err == nil && fi.IsDir() {
		outPath = filepath.Join(outPath, fmt.Sprintf("report-%s.csv", ts))
	} else if outPath != "" {
		ext := filepath.Ext(outPath)
		base := outPath[:len(outPath)-len(ext)]
		outPath = fmt.Sprintf("%s-%s%s", base, ts, ext)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintln(f, "ticks,sim_time,emitted,finished,emergency_brakes,cut_ins,warnings,wall_clock_ms,timestamp")
	fmt.Fprintf(f, "%d,%.2f,%d,%d,%d,%d,%d,%d,%s\n",
		s.Ticks, round2(s.SimTimeElapsed), s.ActorsEmitted, s.ActorsFinished,
		s.EmergencyBrakes, s.CutIns, s.Warnings, s.WallClockElapsed.Milliseconds(), ts)
	log.Printf("CSV report written to %s", outPath)
	return nil
}

func printConsoleReport(s Summary) {
	fmt.Println("=== Simulation Report (batch) ===")
	fmt.Printf("Ticks run: %d (sim time %.2fs)\n", s.Ticks, round2(s.SimTimeElapsed))
	fmt.Printf("Actors emitted: %d\n", s.ActorsEmitted)
	fmt.Printf("Actors finished: %d\n", s.ActorsFinished)
	fmt.Printf("Emergency brakes: %d\n", s.EmergencyBrakes)
	fmt.Printf("Cut-ins: %d\n", s.CutIns)
	fmt.Printf("Warnings: %d\n", s.Warnings)
	fmt.Printf("Wall clock: %s\n", s.WallClockElapsed)
}
