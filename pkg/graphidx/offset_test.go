package graphidx

import (
	"reflect"
	"testing"

	"chrouter/pkg/model"
)

func TestFillOffset(t *testing.T) {
	ids := []uint32{0, 0, 0, 2, 3, 4, 4, 4, 6}
	got := FillOffset(ids, 7)
	want := []uint32{0, 3, 3, 4, 5, 8, 8, 9}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("FillOffset = %v, want %v", got, want)
	}
}

// twoParallelChains is the ten-node fixture used throughout the
// preprocessing test suite:
//
//	     7 -> 8 -> 9
//	     |         |
//	0 -> 5 -> 6 -  |
//	|         |  \ |
//	1 -> 2 -> 3 -> 4
func twoParallelChains() []model.Edge {
	return []model.Edge{
		model.NewEdge(0, 1, 1),
		model.NewEdge(1, 2, 1),
		model.NewEdge(2, 3, 1),
		model.NewEdge(3, 4, 20),
		model.NewEdge(0, 5, 5),
		model.NewEdge(5, 6, 1),
		model.NewEdge(6, 4, 20),
		model.NewEdge(6, 3, 20),
		model.NewEdge(5, 7, 5),
		model.NewEdge(7, 8, 1),
		model.NewEdge(8, 9, 1),
		model.NewEdge(9, 4, 1),
	}
}

func TestGenerateOffsetsAllOffsets(t *testing.T) {
	edges := twoParallelChains()
	upOffset, downOffset, downIndex := GenerateOffsets(edges, 10)

	wantUp := []uint32{0, 2, 3, 4, 5, 5, 7, 9, 10, 11, 12}
	if !reflect.DeepEqual(upOffset, wantUp) {
		t.Fatalf("upOffset = %v, want %v", upOffset, wantUp)
	}

	wantDown := []uint32{0, 0, 1, 2, 4, 7, 8, 9, 10, 11, 12}
	if !reflect.DeepEqual(downOffset, wantDown) {
		t.Fatalf("downOffset = %v, want %v", downOffset, wantDown)
	}

	// Every down_index entry must point at an edge whose target is the node
	// whose down range it falls in.
	for node := uint32(0); node < 10; node++ {
		for i := downOffset[node]; i < downOffset[node+1]; i++ {
			edgeIdx := downIndex[i]
			if edges[edgeIdx].Target != node {
				t.Fatalf("downIndex[%d]=%d targets %d, want %d", i, edgeIdx, edges[edgeIdx].Target, node)
			}
		}
	}
}

func TestGenerateOffsetsUnstableSkipsSort(t *testing.T) {
	edges := []model.Edge{
		model.NewEdge(1, 2, 1),
		model.NewEdge(0, 1, 1),
	}
	// Deliberately unsorted: GenerateOffsetsUnstable must not reorder edges.
	upOffset, _, _ := GenerateOffsetsUnstable(edges, 3)
	if edges[0].Source != 1 {
		t.Fatalf("GenerateOffsetsUnstable reordered edges: %v", edges)
	}
	if upOffset[1] != 1 || upOffset[2] != 2 {
		t.Fatalf("upOffset over unsorted edges = %v", upOffset)
	}
}
