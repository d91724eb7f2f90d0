// Command server loads a preprocessed graph index and serves shortest-path
// queries over HTTP.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"chrouter/pkg/api"
	"chrouter/pkg/graph"
	"chrouter/pkg/routing"
)

func main() {
	graphPath := flag.String("graph", "graph.bin", "path to preprocessed graph binary")
	port := flag.Int("port", 8080, "HTTP port")
	corsOrigin := flag.String("cors-origin", "", "CORS allowed origin (empty = same-origin)")
	flag.Parse()

	start := time.Now()

	log.Printf("server: loading graph from %s", *graphPath)
	idx, err := graph.ReadBinary(*graphPath)
	if err != nil {
		log.Fatalf("server: failed to load graph: %v", err)
	}
	log.Printf("server: loaded %d nodes, %d edges", len(idx.Nodes), len(idx.Edges))

	log.Println("server: building spatial index")
	engine := routing.NewEngine(idx.Nodes, idx.Edges, idx.UpOffset, idx.DownOffset, idx.DownIndex)

	// Reclaim memory from init-time temporaries: without this, Go's heap
	// retains peak RSS from index construction across several GC doublings.
	runtime.GC()
	debug.FreeOSMemory()

	log.Printf("server: ready in %s", time.Since(start).Round(time.Millisecond))

	addr := fmt.Sprintf(":%d", *port)
	cfg := api.DefaultConfig(addr)
	cfg.CORSOrigin = *corsOrigin

	stats := api.StatsResponse{
		NumNodes:   uint32(len(idx.Nodes)),
		NumEdges:   len(idx.Edges),
		OptimizeBy: string(idx.OptimizeBy),
		TravelType: string(idx.TravelType),
	}

	handlers := api.NewHandlers(engine, stats)
	srv := api.NewServer(cfg, handlers)

	if err := api.ListenAndServe(srv); err != nil {
		log.Printf("server: stopped: %v", err)
		os.Exit(1)
	}
}
