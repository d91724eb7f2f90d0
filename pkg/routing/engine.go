// Package routing wires the spatial index and the CH query engine together
// into a single point-to-point routing API consumed by pkg/api.
package routing

import (
	"context"
	"errors"

	"chrouter/pkg/grid"
	"chrouter/pkg/model"
	"chrouter/pkg/query"
)

// ErrNoRoute is returned when no route exists between the two points.
var ErrNoRoute = errors.New("routing: no route found")

// ErrPointTooFar is returned when a query point has no nearby routable node.
var ErrPointTooFar = grid.ErrPointTooFar

// LatLng is a geographic coordinate.
type LatLng struct {
	Lat float64
	Lng float64
}

// RouteResult is the output of a route query: the total cost and the
// polyline of node coordinates the path passes through.
type RouteResult struct {
	TotalCost float64
	Geometry  []LatLng
}

// Router is the interface for route queries.
type Router interface {
	Route(ctx context.Context, start, end LatLng) (*RouteResult, error)
}

// Engine implements Router using a finalized CH graph.
type Engine struct {
	nodes []model.Node
	index *grid.Index
	query *query.Engine
}

// NewEngine builds a routing engine from a finalized CH graph.
func NewEngine(nodes []model.Node, edges []model.Edge, upOffset, downOffset, downIndex []uint32) *Engine {
	return &Engine{
		nodes: nodes,
		index: grid.Build(nodes),
		query: query.NewEngine(nodes, edges, upOffset, downOffset, downIndex),
	}
}

// Route snaps both endpoints to their nearest routable node and runs a
// bidirectional CH query between them.
func (e *Engine) Route(ctx context.Context, start, end LatLng) (*RouteResult, error) {
	startNode, err := e.index.Nearest(start.Lat, start.Lng)
	if err != nil {
		return nil, err
	}
	endNode, err := e.index.Nearest(end.Lat, end.Lng)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path, cost, err := e.query.FindPath(startNode, endNode)
	if err != nil {
		if errors.Is(err, query.ErrNoPath) {
			return nil, ErrNoRoute
		}
		return nil, err
	}

	geometry := make([]LatLng, 0, len(path)+2)
	geometry = append(geometry, LatLng{Lat: e.nodes[startNode].Lat, Lng: e.nodes[startNode].Lon})
	for _, n := range path {
		geometry = append(geometry, LatLng{Lat: e.nodes[n].Lat, Lng: e.nodes[n].Lon})
	}
	geometry = append(geometry, LatLng{Lat: e.nodes[endNode].Lat, Lng: e.nodes[endNode].Lon})

	return &RouteResult{TotalCost: float64(cost), Geometry: geometry}, nil
}
