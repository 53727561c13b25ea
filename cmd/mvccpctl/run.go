package main

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/spf13/cobra"

	"github.com/haidar-88/Capstone/charging"
	"github.com/haidar-88/Capstone/config"
	"github.com/haidar-88/Capstone/geo"
	"github.com/haidar-88/Capstone/identity"
	"github.com/haidar-88/Capstone/internal/transport"
	"github.com/haidar-88/Capstone/metrics"
	"github.com/haidar-88/Capstone/node"
	"github.com/haidar-88/Capstone/sim"
)

var runFlags struct {
	nodes    int
	duration float64
	step     float64
	seed     int64
	areaM    float64
	speedMPS float64

	monitor bool
	open    bool
	port    int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an in-process multi-node MVCCP scenario over a lossy medium.",
	RunE:  runScenario,
}

func init() {
	rootCmd.AddCommand(runCmd)

	f := runCmd.Flags()
	f.IntVar(&runFlags.nodes, "nodes", 12, "number of vehicles, including one fixed RREH")
	f.Float64Var(&runFlags.duration, "duration", 120, "scenario length in simulated seconds")
	f.Float64Var(&runFlags.step, "step", 1.0, "tick interval in simulated seconds")
	f.Int64Var(&runFlags.seed, "seed", 1, "seed for placement, mobility, and medium loss")
	f.Float64Var(&runFlags.areaM, "area", 1200, "side length in meters of the square deployment area")
	f.Float64Var(&runFlags.speedMPS, "speed", 12, "max vehicle speed in meters/second")
	f.BoolVar(&runFlags.monitor, "monitor", false, "serve a status dashboard on --port while the scenario runs")
	f.BoolVar(&runFlags.open, "open", false, "open the dashboard in a browser once it is listening (implies --monitor)")
	f.IntVar(&runFlags.port, "port", 8080, "dashboard port, used only with --monitor/--open")
}

// vehicle bundles the fleet-management state run.go tracks per node
// alongside the protocol core's own identity.State, which node.Node owns
// exclusively once built.
type vehicle struct {
	id       identity.NodeID
	n        *node.Node
	counters *metrics.Counters
	rreh     bool
}

func runScenario(cmd *cobra.Command, args []string) error {
	if runFlags.open {
		runFlags.monitor = true
	}
	if runFlags.nodes < 1 {
		return fmt.Errorf("--nodes must be at least 1")
	}

	rng := rand.New(rand.NewSource(runFlags.seed))
	medium := transport.NewMedium(transport.DefaultParams(), runFlags.seed)

	world := &worldState{medium: medium}
	vehicles := make([]*vehicle, 0, runFlags.nodes)

	for i := 0; i < runFlags.nodes; i++ {
		id := identity.NodeID(i + 1)
		isRREH := i == 0

		self := &identity.State{
			ID:                 id,
			Position:           geo.Vec2{X: rng.Float64() * runFlags.areaM, Y: rng.Float64() * runFlags.areaM},
			BatteryCapacityKWh: 60,
			BatteryEnergyKWh:   30 + rng.Float64()*30,
			Willingness:        rng.Intn(8),
			ProviderCapable:    isRREH || rng.Float64() < 0.25,
		}
		if isRREH {
			self.Position = geo.Vec2{X: runFlags.areaM / 2, Y: runFlags.areaM / 2}
			self.BatteryCapacityKWh = 0
			self.BatteryEnergyKWh = 0
			self.Role = identity.RoleRREH
			self.ShareableEnergyKWh = 500
		}

		cfg := config.Default()
		capacity := charging.ProviderCapacity{AvailableSlots: 2, AvailableEnergyKWh: 40}
		if isRREH {
			capacity = charging.ProviderCapacity{AvailableSlots: 8, AvailableEnergyKWh: 500}
		}

		counters := metrics.New()
		n := node.New(cfg, self, capacity, counters, medium.Sink(id))
		medium.Register(id, n, n)

		vehicles = append(vehicles, &vehicle{id: id, n: n, counters: counters, rreh: isRREH})
	}
	world.vehicles = vehicles

	if runFlags.monitor {
		url, err := startMonitor(world, runFlags.port)
		if err != nil {
			return fmt.Errorf("starting monitor: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "dashboard listening on %s\n", url)
		if runFlags.open {
			openDashboard(url)
		}
	}

	headings := make([]float64, len(vehicles))
	for i, v := range vehicles {
		if v.rreh {
			continue
		}
		headings[i] = rng.Float64() * 2 * math.Pi
	}

	for t := 0.0; t <= runFlags.duration; t += runFlags.step {
		vt := sim.VTimeInSec(t)

		world.mu.Lock()
		for i, v := range vehicles {
			if !v.rreh {
				advanceVehicle(v, headings, i, rng, runFlags.step, runFlags.areaM, runFlags.speedMPS, vt)
			}
			if err := v.n.Tick(vt); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "node %d stopped at t=%.2f: %v\n", v.id, t, err)
			}
		}
		medium.AdvanceTo(vt)
		world.mu.Unlock()
	}

	printSummary(cmd, vehicles)
	return nil
}

// advanceVehicle applies one step of a simple bounded random walk, bouncing
// off the deployment area's edges, and feeds the result into the node
// through ApplyMobilityAndEnergy exactly as an external mobility/energy
// simulator would.
func advanceVehicle(v *vehicle, headings []float64, i int, rng *rand.Rand, step, areaM, speed float64, t sim.VTimeInSec) {
	self := v.n.Context().Self()
	headings[i] += (rng.Float64() - 0.5) * 0.4

	vel := geo.Vec2{X: speed * math.Cos(headings[i]), Y: speed * math.Sin(headings[i])}
	pos := self.Position.Add(vel.Scale(step))

	if pos.X < 0 || pos.X > areaM {
		headings[i] = math.Pi - headings[i]
		pos.X = clamp(pos.X, 0, areaM)
	}
	if pos.Y < 0 || pos.Y > areaM {
		headings[i] = -headings[i]
		pos.Y = clamp(pos.Y, 0, areaM)
	}

	battery := self.BatteryEnergyKWh - speed*step*0.0008
	_ = v.n.ApplyMobilityAndEnergy(t, pos, vel, battery)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func printSummary(cmd *cobra.Command, vehicles []*vehicle) {
	out := cmd.OutOrStdout()
	sort.Slice(vehicles, func(i, j int) bool { return vehicles[i].id < vehicles[j].id })
	for _, v := range vehicles {
		self := v.n.Context().Self()
		fmt.Fprintf(out, "node %-4d role=%-15s battery=%5.1f%% pos=(%.0f,%.0f)\n",
			v.id, self.Role, self.BatteryPercent()*100, self.Position.X, self.Position.Y)
		for _, name := range v.counters.Names() {
			fmt.Fprintf(out, "    %-24s %d\n", name, v.counters.Value(name))
		}
	}
}

// worldState is the mutable scenario snapshot the monitor's HTTP handlers
// read concurrently with the tick loop mutating it; every access goes
// through mu.
type worldState struct {
	mu       sync.Mutex
	medium   *transport.Medium
	vehicles []*vehicle
}
