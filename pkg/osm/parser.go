// Package osm parses OSM PBF extracts into directed, weighted edges ready
// for pkg/graph to compactify into the contraction hierarchies pipeline.
package osm

import (
	"context"
	"fmt"
	"io"
	"log"
	"math"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"

	"chrouter/pkg/geo"
	"chrouter/pkg/model"
)

// RawEdge is a directed edge parsed from a single OSM way segment.
type RawEdge struct {
	FromNodeID osm.NodeID
	ToNodeID   osm.NodeID
	Weight     uint32 // in model.DistMultiplicator units per the ParseOptions objective
}

// ParseResult holds the output of parsing an OSM PBF file.
type ParseResult struct {
	Edges   []RawEdge
	NodeLat map[osm.NodeID]float64
	NodeLon map[osm.NodeID]float64
}

// speedsKmh gives the assumed car travel speed per highway tag, used only
// when ParseOptions.OptimizeBy is model.OptimizeByTime.
var speedsKmh = map[string]float64{
	"motorway":       110,
	"motorway_link":  60,
	"trunk":          90,
	"trunk_link":     50,
	"primary":        70,
	"primary_link":   40,
	"secondary":      60,
	"secondary_link": 35,
	"tertiary":       50,
	"tertiary_link":  30,
	"unclassified":   40,
	"residential":    30,
	"living_street":  15,
	"service":        15,
}

const (
	bicycleSpeedKmh    = 15
	pedestrianSpeedKmh = 5
)

// carHighways lists highway tag values accessible by car.
var carHighways = map[string]bool{
	"motorway": true, "motorway_link": true, "trunk": true, "trunk_link": true,
	"primary": true, "primary_link": true, "secondary": true, "secondary_link": true,
	"tertiary": true, "tertiary_link": true, "unclassified": true,
	"residential": true, "living_street": true, "service": true,
}

// bicycleHighways lists highway tag values assumed passable by bicycle.
// Motorways and trunk roads are not in it.
var bicycleHighways = map[string]bool{
	"cycleway": true, "path": true, "track": true, "residential": true,
	"living_street": true, "service": true, "unclassified": true,
	"tertiary": true, "tertiary_link": true, "secondary": true, "secondary_link": true,
	"primary": true, "primary_link": true,
}

// pedestrianHighways lists highway tag values assumed walkable.
var pedestrianHighways = map[string]bool{
	"footway": true, "path": true, "pedestrian": true, "steps": true,
	"track": true, "residential": true, "living_street": true, "service": true,
	"unclassified": true, "tertiary": true, "secondary": true, "primary": true,
}

// accessible reports whether the way is traversable by travelType.
func accessible(tags osm.Tags, travelType model.TravelType) bool {
	hw := tags.Find("highway")
	if hw == "" {
		return false
	}
	if tags.Find("area") == "yes" {
		return false
	}
	if access := tags.Find("access"); access == "no" || access == "private" {
		return false
	}

	switch travelType {
	case model.TravelTypeCar:
		return carHighways[hw] && tags.Find("motor_vehicle") != "no"
	case model.TravelTypeBicycle:
		return bicycleHighways[hw] && tags.Find("bicycle") != "no"
	case model.TravelTypePedestrian:
		return pedestrianHighways[hw] && tags.Find("foot") != "no"
	case model.TravelTypeCarBicycle:
		return accessible(tags, model.TravelTypeCar) || accessible(tags, model.TravelTypeBicycle)
	case model.TravelTypeBicyclePedestrian:
		return accessible(tags, model.TravelTypeBicycle) || accessible(tags, model.TravelTypePedestrian)
	case model.TravelTypeAll:
		return accessible(tags, model.TravelTypeCar) || accessible(tags, model.TravelTypeBicycle) || accessible(tags, model.TravelTypePedestrian)
	default:
		return false
	}
}

// directionFlags returns (forward, backward) based on highway type, oneway
// tags, and the travel mode being routed for. Pedestrians are assumed
// bidirectional regardless of vehicle oneway restrictions.
func directionFlags(tags osm.Tags, travelType model.TravelType) (forward, backward bool) {
	if travelType == model.TravelTypePedestrian {
		return true, true
	}

	forward, backward = true, true
	hw := tags.Find("highway")
	if hw == "motorway" || hw == "motorway_link" || tags.Find("junction") == "roundabout" {
		backward = false
	}

	oneway := tags.Find("oneway")
	switch oneway {
	case "yes", "true", "1":
		forward, backward = true, false
	case "-1", "reverse":
		forward, backward = false, true
	case "no":
		forward, backward = true, true
	case "reversible":
		forward, backward = false, false
	}

	if travelType == model.TravelTypeBicycle || travelType == model.TravelTypeCarBicycle {
		if tags.Find("oneway:bicycle") == "no" {
			forward, backward = true, true
		}
	}

	return forward, backward
}

// edgeSpeedKmh returns the assumed travel speed for the given way and mode.
func edgeSpeedKmh(tags osm.Tags, travelType model.TravelType) float64 {
	switch travelType {
	case model.TravelTypeBicycle, model.TravelTypeBicyclePedestrian:
		return bicycleSpeedKmh
	case model.TravelTypePedestrian:
		return pedestrianSpeedKmh
	default:
		if speed, ok := speedsKmh[tags.Find("highway")]; ok {
			return speed
		}
		return 30
	}
}

// wayInfo holds parsed way data collected during Pass 1.
type wayInfo struct {
	NodeIDs           []osm.NodeID
	Forward, Backward bool
	SpeedKmh          float64
}

// BBox defines a geographic bounding box for filtering. If non-zero, only
// edges with both endpoints inside the box are kept.
type BBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// IsZero returns true if the bbox is unset.
func (b BBox) IsZero() bool {
	return b.MinLat == 0 && b.MaxLat == 0 && b.MinLng == 0 && b.MaxLng == 0
}

// Contains returns true if the point is inside the bounding box.
func (b BBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// ParseOptions configures the OSM parser.
type ParseOptions struct {
	BBox       BBox
	TravelType model.TravelType
	OptimizeBy model.OptimizeBy
}

// Parse reads an OSM PBF file and returns directed edges weighted according
// to opts.OptimizeBy, restricted to ways traversable by opts.TravelType. The
// reader is consumed twice (seeks back to start for the second pass), so it
// must implement io.ReadSeeker.
func Parse(ctx context.Context, rs io.ReadSeeker, opts ParseOptions) (*ParseResult, error) {
	if opts.TravelType == "" {
		opts.TravelType = model.TravelTypeCar
	}
	if opts.OptimizeBy == "" {
		opts.OptimizeBy = model.OptimizeByDistance
	}
	useBBox := !opts.BBox.IsZero()

	referencedNodes := make(map[osm.NodeID]struct{})
	var ways []wayInfo

	scanner := osmpbf.New(ctx, rs, 1)
	scanner.SkipNodes = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		w, ok := scanner.Object().(*osm.Way)
		if !ok {
			continue
		}
		if !accessible(w.Tags, opts.TravelType) || len(w.Nodes) < 2 {
			continue
		}
		fwd, bwd := directionFlags(w.Tags, opts.TravelType)
		if !fwd && !bwd {
			continue
		}

		nodeIDs := make([]osm.NodeID, len(w.Nodes))
		for i, wn := range w.Nodes {
			nodeIDs[i] = wn.ID
			referencedNodes[wn.ID] = struct{}{}
		}

		ways = append(ways, wayInfo{
			NodeIDs:  nodeIDs,
			Forward:  fwd,
			Backward: bwd,
			SpeedKmh: edgeSpeedKmh(w.Tags, opts.TravelType),
		})
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("osm: pass 1 (ways): %w", err)
	}
	scanner.Close()

	log.Printf("osm: pass 1 complete: %d ways, %d referenced nodes", len(ways), len(referencedNodes))

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("osm: seek for pass 2: %w", err)
	}

	nodeLat := make(map[osm.NodeID]float64, len(referencedNodes))
	nodeLon := make(map[osm.NodeID]float64, len(referencedNodes))

	scanner = osmpbf.New(ctx, rs, 1)
	scanner.SkipWays = true
	scanner.SkipRelations = true

	for scanner.Scan() {
		n, ok := scanner.Object().(*osm.Node)
		if !ok {
			continue
		}
		if _, needed := referencedNodes[n.ID]; !needed {
			continue
		}
		nodeLat[n.ID] = n.Lat
		nodeLon[n.ID] = n.Lon
	}
	if err := scanner.Err(); err != nil {
		scanner.Close()
		return nil, fmt.Errorf("osm: pass 2 (nodes): %w", err)
	}
	scanner.Close()

	log.Printf("osm: pass 2 complete: %d node coordinates collected", len(nodeLat))

	var edges []RawEdge
	var skippedEdges, bboxFiltered int

	for _, w := range ways {
		for i := 0; i < len(w.NodeIDs)-1; i++ {
			fromID, toID := w.NodeIDs[i], w.NodeIDs[i+1]

			fromLat, fromOk := nodeLat[fromID]
			fromLon := nodeLon[fromID]
			toLat, toOk := nodeLat[toID]
			toLon := nodeLon[toID]
			if !fromOk || !toOk {
				skippedEdges++
				continue
			}
			if useBBox && (!opts.BBox.Contains(fromLat, fromLon) || !opts.BBox.Contains(toLat, toLon)) {
				bboxFiltered++
				continue
			}

			distKm := geo.Haversine(fromLat, fromLon, toLat, toLon) / 1000.0
			weight := weightFor(distKm, w.SpeedKmh, opts.OptimizeBy)

			if w.Forward {
				edges = append(edges, RawEdge{FromNodeID: fromID, ToNodeID: toID, Weight: weight})
			}
			if w.Backward {
				edges = append(edges, RawEdge{FromNodeID: toID, ToNodeID: fromID, Weight: weight})
			}
		}
	}

	if skippedEdges > 0 {
		log.Printf("osm: skipped %d edges due to missing node coordinates", skippedEdges)
	}
	if bboxFiltered > 0 {
		log.Printf("osm: filtered %d edges outside bounding box", bboxFiltered)
	}
	log.Printf("osm: built %d directed edges", len(edges))

	return &ParseResult{Edges: edges, NodeLat: nodeLat, NodeLon: nodeLon}, nil
}

// weightFor converts a segment length and assumed speed into an integer
// weight in model.DistMultiplicator units, per the chosen objective.
func weightFor(distKm, speedKmh float64, optimizeBy model.OptimizeBy) uint32 {
	var units float64
	if optimizeBy == model.OptimizeByTime {
		units = (distKm / speedKmh) * model.DistMultiplicator
	} else {
		units = distKm * model.DistMultiplicator
	}
	w := uint32(math.Round(units))
	if w == 0 {
		w = 1
	}
	return w
}
