// Command pherowar is the simulation engine entrypoint: it loads a map,
// launches one sandboxed AI worker per player, and runs the tick scheduler
// until a winner emerges (evaluate mode) or the process is signaled to stop.
package main

import (
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Obeeron/pherowar/internal/abi"
	"github.com/Obeeron/pherowar/internal/ant"
	"github.com/Obeeron/pherowar/internal/colony"
	"github.com/Obeeron/pherowar/internal/grid"
	"github.com/Obeeron/pherowar/internal/pheromone"
	"github.com/Obeeron/pherowar/internal/playerhost"
	"github.com/Obeeron/pherowar/internal/pwlog"
	"github.com/Obeeron/pherowar/internal/render"
	"github.com/Obeeron/pherowar/internal/scheduler"
)

func init() {
	pwlog.Init()
}

func main() {
	mapPath := flag.String("map", "", "path to a map-ingest JSON file")
	players := flag.String("players", "", "comma-separated list of AI shared object paths, bound in order to the map's placeholder slots; paths beyond the last slot are skipped")
	seed := flag.Int64("seed", 0, "simulation seed (0 picks a random one)")
	speed := flag.Float64("speed", 1.0, "tick pacing multiplier; 0 runs ticks back-to-back with no wall-clock pacing")
	evaluate := flag.Bool("evaluate", false, "exit as soon as a single colony remains")
	initialPopulation := flag.Int("initial-population", 10, "ants spawned per colony at placement, ignoring food cost")
	addr := flag.String("addr", ":8080", "render/query websocket API listen address")
	tickRate := flag.Float64("tick-rate", 30, "simulation ticks per wall-clock second")
	flag.Parse()

	pwlog.Log.Info("Starting PheroWar...")

	if *mapPath == "" {
		pwlog.Log.Fatal("pherowar: --map is required")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	pwlog.Log.WithField("seed", *seed).Info("pherowar: simulation seed")

	raw, err := os.ReadFile(*mapPath)
	if err != nil {
		pwlog.Log.WithError(err).Fatal("pherowar: reading map file")
	}
	m, err := grid.Load(raw)
	if err != nil {
		pwlog.Log.WithError(err).Fatal("pherowar: loading map")
	}

	field := pheromone.NewField(m.Width, m.Height)
	pool := ant.NewPool()
	colonies := colony.NewManager(m, field, pool, *evaluate)
	sched := scheduler.New(m, field, pool, colonies, *evaluate)

	if err := placePlayers(*players, m, colonies, sched, *initialPopulation, *seed); err != nil {
		pwlog.Log.WithError(err).Fatal("pherowar: placing players")
	}

	hub := render.NewHub()
	srv := render.NewServer(hub, *addr)
	go func() {
		if err := srv.Run(); err != nil {
			pwlog.Log.WithError(err).Fatal("pherowar: render server")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	done := make(chan int32, 1)
	go runLoop(sched, hub, *speed, *tickRate, done)

	select {
	case winner := <-done:
		pwlog.Log.WithField("winner", winner).Info("pherowar: simulation concluded")
	case <-stop:
		pwlog.Log.Info("pherowar: shutting down")
	}

	for _, w := range sched.Workers {
		w.Close()
	}
}

// placePlayers binds each --players entry to a pending placeholder slot, in
// map order, launching its sandboxed worker and registering the resulting
// colony before any tick runs. Colony ids are assigned sequentially from
// zero by Manager.Spawn, so the loop index here always matches the id
// Spawn is about to allocate, since nothing is removed beforehand.
func placePlayers(playersFlag string, m *grid.Map, colonies *colony.Manager, sched *scheduler.Scheduler, initialPopulation int, seed int64) error {
	if playersFlag == "" {
		return nil
	}
	soPaths := strings.Split(playersFlag, ",")
	slots := m.PendingPlaceholders()

	for i, soPath := range soPaths {
		if i >= len(slots) {
			pwlog.Log.WithField("so_path", soPath).Warn("pherowar: no placeholder slot left, skipping player")
			break
		}
		slot := slots[i]

		worker, err := playerhost.Launch(int32(i), soPath)
		if err != nil {
			pwlog.Log.WithFields(map[string]interface{}{"so_path": soPath, "err": err}).Warn("pherowar: worker launch failed, colony will run AI-less")
		}

		// Launch can fail before a worker is even constructed (e.g. its
		// socket directory couldn't be created); fall back to the zero-value
		// decay rates and leave the colony completely unregistered in
		// sched.Workers, which the scheduler already treats as AI-less.
		var decayRates [abi.PheromoneChannelCount]float32
		if worker != nil {
			decayRates = worker.Setup().DecayRates
		}

		c, err := colonies.Spawn(slot.X, slot.Y, decayRates, initialPopulation, seed+int64(i))
		if err != nil {
			return err
		}
		if worker != nil {
			c.Player = worker
			sched.Workers[c.ID] = worker
		}
	}
	return nil
}

func runLoop(sched *scheduler.Scheduler, hub *render.Hub, speed, tickRate float64, done chan<- int32) {
	dt := float32(1.0 / tickRate)
	var pacing time.Duration
	if speed > 0 {
		pacing = time.Duration(float64(time.Second) / tickRate / speed)
	}

	for {
		start := time.Now()

		winner, over := sched.Tick(dt)

		if hub.SubscriberCount() > 0 {
			snap := render.BuildSnapshot(sched.TickCount, sched.Map, sched.Pool, sched.Colonies)
			if frame, err := render.Encode(snap); err == nil {
				hub.Broadcast(frame)
			} else {
				pwlog.Log.WithError(err).Warn("pherowar: snapshot encode failed")
			}
		}

		if over {
			done <- winner
			return
		}

		if pacing > 0 {
			if elapsed := time.Since(start); elapsed < pacing {
				time.Sleep(pacing - elapsed)
			}
		}
	}
}
