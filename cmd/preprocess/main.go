// Command preprocess turns an OSM PBF extract into a contracted, binary
// graph index ready to be served by cmd/server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"chrouter/pkg/ch"
	"chrouter/pkg/graph"
	"chrouter/pkg/graphidx"
	"chrouter/pkg/model"
	osmparser "chrouter/pkg/osm"
)

func main() {
	input := flag.String("input", "", "path to .osm.pbf file")
	output := flag.String("output", "graph.bin", "output binary graph file path")
	bbox := flag.String("bbox", "", "bounding box filter: minLat,minLng,maxLat,maxLng")
	singapore := flag.Bool("singapore", false, "shortcut for --bbox 1.15,103.6,1.48,104.1")
	kl := flag.Bool("kl", false, "shortcut for --bbox 2.75,101.2,3.5,102.0")
	optimizeBy := flag.String("optimize-by", "distance", "edge weight objective: distance|time")
	travelType := flag.String("travel-type", "car", "car|bicycle|pedestrian|car_bicycle|bicycle_pedestrian|all")
	workers := flag.Int("workers", 0, "contraction worker count (0 = runtime.NumCPU())")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "usage: preprocess --input <file.osm.pbf> [--output graph.bin] [--singapore | --kl | --bbox minLat,minLng,maxLat,maxLng]")
		os.Exit(1)
	}

	opts := osmparser.ParseOptions{
		OptimizeBy: model.OptimizeBy(*optimizeBy),
		TravelType: model.TravelType(*travelType),
	}
	switch {
	case *kl:
		opts.BBox = osmparser.BBox{MinLat: 2.75, MaxLat: 3.5, MinLng: 101.2, MaxLng: 102.0}
		log.Println("preprocess: using Selangor + KL bounding box filter")
	case *singapore:
		opts.BBox = osmparser.BBox{MinLat: 1.15, MaxLat: 1.48, MinLng: 103.6, MaxLng: 104.1}
		log.Println("preprocess: using Singapore bounding box filter")
	case *bbox != "":
		var minLat, minLng, maxLat, maxLng float64
		if _, err := fmt.Sscanf(*bbox, "%f,%f,%f,%f", &minLat, &minLng, &maxLat, &maxLng); err != nil {
			log.Fatalf("preprocess: invalid --bbox (expected minLat,minLng,maxLat,maxLng): %v", err)
		}
		opts.BBox = osmparser.BBox{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
		log.Printf("preprocess: using bounding box filter: lat [%.4f, %.4f], lng [%.4f, %.4f]", minLat, maxLat, minLng, maxLng)
	}

	start := time.Now()

	log.Println("preprocess: opening OSM file")
	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("preprocess: failed to open input file: %v", err)
	}
	defer f.Close()

	log.Println("preprocess: parsing OSM data")
	parseResult, err := osmparser.Parse(context.Background(), f, opts)
	if err != nil {
		log.Fatalf("preprocess: failed to parse OSM data: %v", err)
	}
	log.Printf("preprocess: parsed %d edges, %d nodes", len(parseResult.Edges), len(parseResult.NodeLat))

	log.Println("preprocess: building graph")
	nodes, edges := graph.Build(parseResult)
	log.Printf("preprocess: graph has %d nodes, %d edges", len(nodes), len(edges))

	log.Println("preprocess: extracting largest connected component")
	component := graphidx.LargestComponent(uint32(len(nodes)), edges)
	log.Printf("preprocess: largest component has %d nodes (%.1f%%)", len(component), float64(len(component))/float64(len(nodes))*100)
	nodes, edges = graphidx.FilterToComponent(nodes, edges, component)
	log.Printf("preprocess: filtered graph has %d nodes, %d edges", len(nodes), len(edges))

	log.Println("preprocess: running contraction hierarchies")
	result := ch.Contract(nodes, edges, ch.Options{Workers: *workers})
	log.Printf("preprocess: contraction complete: %d edges after contraction", len(result.Edges))

	idx := &graph.Index{
		Nodes:      result.Nodes,
		Edges:      result.Edges,
		UpOffset:   result.UpOffset,
		DownOffset: result.DownOffset,
		DownIndex:  result.DownIndex,
		OptimizeBy: opts.OptimizeBy,
		TravelType: opts.TravelType,
	}

	log.Printf("preprocess: writing binary to %s", *output)
	if err := graph.WriteBinary(*output, idx); err != nil {
		log.Fatalf("preprocess: failed to write binary: %v", err)
	}

	info, _ := os.Stat(*output)
	log.Printf("preprocess: done in %s, output %s (%.1f MB)", time.Since(start).Round(time.Second), *output, float64(info.Size())/(1024*1024))
}
