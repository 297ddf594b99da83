// Package main provides the entry point for batchsim.
// Batchsim simulates a multi-slot batch engine that stages task batches
// from memory, runs them on per-slot compute units, and drains the
// results back, all over one shared memory channel pair.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/akita/v4/mem/idealmemcontroller"
	"github.com/sarchlab/akita/v4/mem/mem"
	"github.com/sarchlab/akita/v4/sim"
	"github.com/sarchlab/akita/v4/sim/directconnection"
	"github.com/sarchlab/akita/v4/tracing"

	"github.com/sarchlab/batchsim/config"
	"github.com/sarchlab/batchsim/driver"
	"github.com/sarchlab/batchsim/sched"
	"github.com/sarchlab/batchsim/unit"
)

// The simulated address map. The bases are aligned to the whole task and
// result regions of the default geometry and stay aligned for every slot
// count the engine accepts.
const (
	statusBase = 0x1000
	srcBase    = 0x10000
	dstBase    = 0x1000000
)

var (
	numSlots   = flag.Int("slots", 0, "Number of compute-unit slots (0 = from config)")
	numBatches = flag.Uint64("batches", 16, "Number of task batches to run")
	interval   = flag.Int("interval", 4, "Cycles between batch enqueues")
	memLatency = flag.Int("mem-latency", 100, "Memory access latency in cycles")
	configPath = flag.String("config", "", "Path to geometry JSON file")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	geometry := loadGeometry()

	engine := sim.NewSerialEngine()

	memCtrl := idealmemcontroller.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		WithLatency(*memLatency).
		WithNewStorage(1 * mem.GB).
		Build("Mem")

	batchEngine := sched.MakeBuilder().
		WithEngine(engine).
		WithGeometry(geometry).
		WithMemPortMapper(&mem.SinglePortMapper{
			Port: memCtrl.GetPortByName("Top").AsRemote(),
		}).
		Build("BatchEngine")

	units := buildUnits(engine, geometry, batchEngine)

	host := driver.MakeBuilder().
		WithEngine(engine).
		WithEngineCtrlPort(batchEngine.CtrlPort.AsRemote()).
		WithRegisters(config.Registers{
			SrcBase:    srcBase,
			DstBase:    dstBase,
			StatusBase: statusBase,
		}).
		WithTotalBatches(*numBatches).
		WithEnqueueInterval(*interval).
		Build("Host")

	connect(engine, memCtrl, batchEngine, units, host)
	preloadTasks(memCtrl.Storage, geometry)

	var reqTracer *tracing.AverageTimeTracer
	if *verbose {
		fmt.Printf("Geometry: %d slots, %dx%dB in, %dx%dB out\n",
			geometry.NumSlots,
			geometry.InputLines, geometry.InputLineBytes,
			geometry.OutputLines, geometry.OutputLineBytes)
		fmt.Printf("Workload: %d batches, enqueued every %d cycles\n",
			*numBatches, *interval)

		reqTracer = tracing.NewAverageTimeTracer(engine,
			func(t tracing.Task) bool { return true })
		tracing.CollectTrace(batchEngine, reqTracer)
	}

	host.TickLater()

	if err := engine.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running simulation: %v\n", err)
		os.Exit(1)
	}

	report(engine, batchEngine, memCtrl.Storage)

	if reqTracer != nil {
		fmt.Printf("Avg request time:  %.9f s over %d requests\n",
			float64(reqTracer.AverageTime()), reqTracer.TotalCount())
	}
}

func loadGeometry() *config.Geometry {
	geometry := config.DefaultGeometry()

	if *configPath != "" {
		g, err := config.LoadGeometry(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
		geometry = g
	}

	if *numSlots > 0 {
		geometry.NumSlots = *numSlots
	}

	if err := geometry.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error in geometry: %v\n", err)
		os.Exit(1)
	}

	return geometry
}

func buildUnits(
	engine sim.Engine,
	geometry *config.Geometry,
	batchEngine *sched.Comp,
) []*unit.Comp {
	units := make([]*unit.Comp, geometry.NumSlots)

	for i := range units {
		units[i] = unit.MakeBuilder().
			WithEngine(engine).
			WithLatency(geometry.UnitLatency).
			WithKernel(unit.DefaultKernel(geometry)).
			Build(fmt.Sprintf("Unit%d", i))

		batchEngine.BindUnit(i, units[i].TaskPort.AsRemote())
	}

	return units
}

func connect(
	engine sim.Engine,
	memCtrl *idealmemcontroller.Comp,
	batchEngine *sched.Comp,
	units []*unit.Comp,
	host *driver.Comp,
) {
	memConn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("MemConn")
	memConn.PlugIn(memCtrl.GetPortByName("Top"))
	memConn.PlugIn(batchEngine.ReadPort)
	memConn.PlugIn(batchEngine.WritePort)

	ctrlConn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("CtrlConn")
	ctrlConn.PlugIn(batchEngine.CtrlPort)
	ctrlConn.PlugIn(host.CtrlPort)

	unitConn := directconnection.MakeBuilder().
		WithEngine(engine).
		WithFreq(1 * sim.GHz).
		Build("UnitConn")
	unitConn.PlugIn(batchEngine.UnitPort)
	for _, u := range units {
		unitConn.PlugIn(u.TaskPort)
	}
}

// preloadTasks fills every slot's task region with a deterministic
// pattern, so the same run always produces the same results.
func preloadTasks(storage *mem.Storage, g *config.Geometry) {
	for slot := 0; slot < g.NumSlots; slot++ {
		for line := 0; line < g.InputLines; line++ {
			data := make([]byte, g.InputLineBytes)
			for j := range data {
				data[j] = byte(slot*31 + line*7 + j)
			}

			addr := uint64(srcBase) +
				uint64(slot)*g.InputSpanBytes() +
				uint64(line)*uint64(g.InputLineBytes)
			if err := storage.Write(addr, data); err != nil {
				fmt.Fprintf(os.Stderr, "Error preloading memory: %v\n", err)
				os.Exit(1)
			}
		}
	}
}

func report(engine sim.Engine, batchEngine *sched.Comp, storage *mem.Storage) {
	stats := batchEngine.Stats()

	fmt.Printf("Simulated time: %.9f s\n", float64(engine.CurrentTime()))
	fmt.Printf("Batches launched:  %d\n", stats.BatchesLaunched)
	fmt.Printf("Batches completed: %d\n", stats.BatchesCompleted)
	fmt.Printf("Reads issued:      %d\n", stats.ReadsIssued)
	fmt.Printf("Writes issued:     %d\n", stats.WritesIssued)
	fmt.Printf("Status writes:     %d\n", stats.StatusWrites)

	identData, err := storage.Read(
		statusBase+sched.StatusIdentOffset, sched.StatusIdentBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading status region: %v\n", err)
		os.Exit(1)
	}

	progressData, err := storage.Read(
		statusBase+sched.StatusProgressOffset, sched.StatusProgressBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading status region: %v\n", err)
		os.Exit(1)
	}

	magic, version := sched.DecodeIdentRecord(identData)
	bitmap, completed := sched.DecodeProgressRecord(progressData)

	fmt.Printf("Status region: magic=0x%08X version=%d busy=0x%X completed=%d\n",
		magic, version, bitmap, completed)
}
