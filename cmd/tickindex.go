package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/adfharrison1/go-tickindex/pkg/domain"
	"github.com/adfharrison1/go-tickindex/pkg/indexing"
	"github.com/adfharrison1/go-tickindex/pkg/server"
	"github.com/adfharrison1/go-tickindex/pkg/storage"
)

// Level is the component the demo indexes.
type Level struct {
	Value int `msgpack:"value"`
}

// levelIndex maps an entity to its exact level.
type levelIndex struct{}

func (levelIndex) Key(l Level) int { return l.Value }

func (levelIndex) IndexName() string { return "level" }

var bandIndex = domain.Func("band", func(l Level) int { return l.Value / 10 })

func main() {
	// Command line flags
	var (
		entities    = flag.Int("entities", 1000, "Number of entities to spawn when no snapshot is loaded")
		steps       = flag.Int("steps", 10, "Number of logical steps to simulate")
		keys        = flag.Int("keys", 50, "Number of distinct levels")
		churn       = flag.Float64("churn", 0.05, "Fraction of entities mutated per step")
		seed        = flag.Uint64("seed", 1, "Random seed")
		snapshot    = flag.String("snapshot", "", "Snapshot file to load at start and save at exit")
		compression = flag.String("compression", "lz4", "Snapshot compression: lz4 or zstd")
		metricsAddr = flag.String("metrics-addr", "", "Serve /health, /stats and /metrics on this address and wait for a signal")
		debug       = flag.Bool("debug", false, "Log every refresh")
		showHelp    = flag.Bool("help", false, "Show help message")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\ntickindex simulates a component store and queries it through incremental indexes.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                   # Simulate with defaults\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -entities 100000 -steps 100      # Larger run\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -snapshot levels.tidx            # Resume from and save to a snapshot\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -metrics-addr :9090              # Keep serving metrics after the run\n", os.Args[0])
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}

	codec, err := storage.ParseCodec(*compression)
	if err != nil {
		log.Fatalf("ERROR: %v", err)
	}

	metrics := indexing.NewMetrics()
	promRegistry := prometheus.NewRegistry()
	if err := metrics.Register(promRegistry); err != nil {
		log.Fatalf("ERROR: Could not register metrics: %v", err)
	}

	world := storage.NewWorld()
	levels := storage.TableOf[Level](world)
	registry := indexing.NewRegistry(indexing.WithMetrics(metrics), indexing.WithDebug(*debug))

	if *snapshot != "" {
		n, err := storage.LoadTable(levels, *snapshot)
		if err != nil {
			log.Fatalf("ERROR: Could not load snapshot %s: %v", *snapshot, err)
		}
		log.Printf("INFO: Loaded %d levels from %s", n, *snapshot)
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	if levels.Len() == 0 {
		for i := 0; i < *entities; i++ {
			if err := levels.Insert(world.Spawn(), Level{Value: rng.IntN(*keys)}); err != nil {
				log.Fatalf("ERROR: Could not spawn entity: %v", err)
			}
		}
		log.Printf("INFO: Spawned %d entities", *entities)
	}

	simulate(world, levels, registry, rng, *steps, *keys, *churn)

	if *snapshot != "" {
		if err := storage.SaveTable(levels, *snapshot, storage.WithCompression(codec)); err != nil {
			log.Printf("ERROR: Could not save snapshot %s: %v", *snapshot, err)
		} else {
			log.Printf("INFO: Saved %d levels to %s (%s)", levels.Len(), *snapshot, codec)
		}
	}

	log.Printf("INFO: World stats: %v", world.Stats())

	if *metricsAddr == "" {
		return
	}
	serve(*metricsAddr, server.NewServer(world, registry, promRegistry))
}

// simulate runs steps logical steps. Each step mutates a random share of
// the entities and then queries both indexes.
func simulate(world *storage.World, levels *storage.Table[Level], registry *indexing.Registry, rng *rand.Rand, steps, keys int, churn float64) {
	var entities []domain.Entity
	for ref := range levels.View().All() {
		entities = append(entities, ref.Entity)
	}

	for step := 0; step < steps; step++ {
		tick := world.Advance()
		registry.CheckTicks(tick)
		start := time.Now()

		mutated := 0
		for _, e := range entities {
			if rng.Float64() >= churn {
				continue
			}
			err := levels.Mutate(e, func(l *Level) { l.Value = rng.IntN(keys) })
			if err != nil {
				log.Printf("WARN: Could not mutate %s: %v", e, err)
				continue
			}
			mutated++
		}

		key := rng.IntN(keys)
		byLevel := indexing.Open(registry, levelIndex{}, levels.View())
		byBand := indexing.Open(registry, bandIndex, levels.View())
		stats := byLevel.Refresh()
		matches := byLevel.Lookup(key).Len()
		band := byBand.Count(key / 10)

		log.Printf("INFO: Step %d (tick %d): mutated %d, reindexed %d of %d, level %d -> %d entities, band %d -> %d entities, took %v",
			step, tick, mutated, stats.Reindexed, stats.Scanned, key, matches, key/10, band, time.Since(start))
	}
}

// serve exposes the observability endpoints until SIGINT or SIGTERM.
func serve(addr string, srv *server.Server) {
	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv.Router(),
	}

	// Start server in a goroutine
	go func() {
		log.Printf("INFO: Serving metrics on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ERROR: Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
