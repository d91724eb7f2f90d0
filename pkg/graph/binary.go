package graph

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"unsafe"

	"chrouter/pkg/model"
)

const (
	magicBytes = "CHROUTER"
	version    = uint32(1)
	maxNodes   = 10_000_000
	maxEdges   = 50_000_000
)

// fileHeader is the binary header.
type fileHeader struct {
	Magic      [8]byte
	Version    uint32
	NumNodes   uint32
	NumEdges   uint32
	OptimizeBy [16]byte
	TravelType [24]byte
}

// Index is the finalized, ranked contraction hierarchies graph, ready to be
// loaded by a query server.
type Index struct {
	Nodes []model.Node
	Edges []model.Edge

	UpOffset, DownOffset, DownIndex []uint32

	OptimizeBy model.OptimizeBy
	TravelType model.TravelType
}

// WriteBinary serializes a finalized Index to a binary file. Uses
// unsafe.Slice for zero-copy I/O of the fixed-width array fields.
func WriteBinary(path string, idx *Index) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("graph: create temp file: %w", err)
	}
	defer func() {
		f.Close()
		os.Remove(tmpPath)
	}()

	cw := &crc32Writer{w: f, hash: crc32.NewIEEE()}

	hdr := fileHeader{
		Version:  version,
		NumNodes: uint32(len(idx.Nodes)),
		NumEdges: uint32(len(idx.Edges)),
	}
	copy(hdr.Magic[:], magicBytes)
	copy(hdr.OptimizeBy[:], string(idx.OptimizeBy))
	copy(hdr.TravelType[:], string(idx.TravelType))
	if err := binary.Write(cw, binary.LittleEndian, &hdr); err != nil {
		return fmt.Errorf("graph: write header: %w", err)
	}

	lat := make([]float64, len(idx.Nodes))
	lon := make([]float64, len(idx.Nodes))
	rank := make([]uint32, len(idx.Nodes))
	for i, n := range idx.Nodes {
		lat[i], lon[i], rank[i] = n.Lat, n.Lon, n.Rank
	}
	if err := writeFloat64Slice(cw, lat); err != nil {
		return fmt.Errorf("graph: write node lat: %w", err)
	}
	if err := writeFloat64Slice(cw, lon); err != nil {
		return fmt.Errorf("graph: write node lon: %w", err)
	}
	if err := writeUint32Slice(cw, rank); err != nil {
		return fmt.Errorf("graph: write node rank: %w", err)
	}

	source := make([]uint32, len(idx.Edges))
	target := make([]uint32, len(idx.Edges))
	weight := make([]uint32, len(idx.Edges))
	prev := make([]int64, len(idx.Edges))
	next := make([]int64, len(idx.Edges))
	for i, e := range idx.Edges {
		source[i], target[i], weight[i] = e.Source, e.Target, e.Weight
		prev[i], next[i] = e.ContractedPrevious, e.ContractedNext
	}
	if err := writeUint32Slice(cw, source); err != nil {
		return fmt.Errorf("graph: write edge source: %w", err)
	}
	if err := writeUint32Slice(cw, target); err != nil {
		return fmt.Errorf("graph: write edge target: %w", err)
	}
	if err := writeUint32Slice(cw, weight); err != nil {
		return fmt.Errorf("graph: write edge weight: %w", err)
	}
	if err := writeInt64Slice(cw, prev); err != nil {
		return fmt.Errorf("graph: write edge contracted_previous: %w", err)
	}
	if err := writeInt64Slice(cw, next); err != nil {
		return fmt.Errorf("graph: write edge contracted_next: %w", err)
	}

	if err := writeUint32Slice(cw, idx.UpOffset); err != nil {
		return fmt.Errorf("graph: write up_offset: %w", err)
	}
	if err := writeUint32Slice(cw, idx.DownOffset); err != nil {
		return fmt.Errorf("graph: write down_offset: %w", err)
	}
	if err := writeUint32Slice(cw, idx.DownIndex); err != nil {
		return fmt.Errorf("graph: write down_index: %w", err)
	}

	checksum := cw.hash.Sum32()
	if err := binary.Write(f, binary.LittleEndian, checksum); err != nil {
		return fmt.Errorf("graph: write crc32: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("graph: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("graph: rename: %w", err)
	}
	return nil
}

// ReadBinary deserializes an Index from a binary file.
func ReadBinary(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graph: open: %w", err)
	}
	defer f.Close()

	cr := &crc32Reader{r: f, hash: crc32.NewIEEE()}

	var hdr fileHeader
	if err := binary.Read(cr, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("graph: read header: %w", err)
	}
	if string(hdr.Magic[:]) != magicBytes {
		return nil, fmt.Errorf("graph: invalid magic bytes: %q", hdr.Magic)
	}
	if hdr.Version != version {
		return nil, fmt.Errorf("graph: unsupported version: %d", hdr.Version)
	}
	if hdr.NumNodes > maxNodes {
		return nil, fmt.Errorf("graph: NumNodes %d exceeds limit %d", hdr.NumNodes, maxNodes)
	}
	if hdr.NumEdges > maxEdges {
		return nil, fmt.Errorf("graph: NumEdges %d exceeds limit %d", hdr.NumEdges, maxEdges)
	}

	idx := &Index{
		OptimizeBy: model.OptimizeBy(cstring(hdr.OptimizeBy[:])),
		TravelType: model.TravelType(cstring(hdr.TravelType[:])),
	}

	lat, err := readFloat64Slice(cr, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("graph: read node lat: %w", err)
	}
	lon, err := readFloat64Slice(cr, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("graph: read node lon: %w", err)
	}
	rank, err := readUint32Slice(cr, int(hdr.NumNodes))
	if err != nil {
		return nil, fmt.Errorf("graph: read node rank: %w", err)
	}
	idx.Nodes = make([]model.Node, hdr.NumNodes)
	for i := range idx.Nodes {
		idx.Nodes[i] = model.Node{Lat: lat[i], Lon: lon[i], Rank: rank[i]}
	}

	source, err := readUint32Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("graph: read edge source: %w", err)
	}
	target, err := readUint32Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("graph: read edge target: %w", err)
	}
	weight, err := readUint32Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("graph: read edge weight: %w", err)
	}
	prev, err := readInt64Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("graph: read edge contracted_previous: %w", err)
	}
	next, err := readInt64Slice(cr, int(hdr.NumEdges))
	if err != nil {
		return nil, fmt.Errorf("graph: read edge contracted_next: %w", err)
	}
	idx.Edges = make([]model.Edge, hdr.NumEdges)
	for i := range idx.Edges {
		idx.Edges[i] = model.Edge{
			ID:                 int64(i),
			Source:             source[i],
			Target:             target[i],
			Weight:             weight[i],
			ContractedPrevious: prev[i],
			ContractedNext:     next[i],
		}
	}

	if idx.UpOffset, err = readUint32Slice(cr, int(hdr.NumNodes)+1); err != nil {
		return nil, fmt.Errorf("graph: read up_offset: %w", err)
	}
	if idx.DownOffset, err = readUint32Slice(cr, int(hdr.NumNodes)+1); err != nil {
		return nil, fmt.Errorf("graph: read down_offset: %w", err)
	}
	if idx.DownIndex, err = readUint32Slice(cr, int(hdr.NumEdges)); err != nil {
		return nil, fmt.Errorf("graph: read down_index: %w", err)
	}

	expectedCRC := cr.hash.Sum32()
	var storedCRC uint32
	if err := binary.Read(f, binary.LittleEndian, &storedCRC); err != nil {
		return nil, fmt.Errorf("graph: read crc32: %w", err)
	}
	if storedCRC != expectedCRC {
		return nil, fmt.Errorf("graph: crc32 mismatch: stored=%08x computed=%08x", storedCRC, expectedCRC)
	}

	if err := validateCSR(idx.UpOffset, hdr.NumNodes, hdr.NumEdges); err != nil {
		return nil, fmt.Errorf("graph: up_offset invalid: %w", err)
	}
	if err := validateCSR(idx.DownOffset, hdr.NumNodes, hdr.NumEdges); err != nil {
		return nil, fmt.Errorf("graph: down_offset invalid: %w", err)
	}

	return idx, nil
}

func validateCSR(offset []uint32, numNodes, numEdges uint32) error {
	if uint32(len(offset)) != numNodes+1 {
		return fmt.Errorf("offset length %d != NumNodes+1 %d", len(offset), numNodes+1)
	}
	if offset[numNodes] != numEdges {
		return fmt.Errorf("offset[NumNodes]=%d != NumEdges=%d", offset[numNodes], numEdges)
	}
	for i := uint32(1); i <= numNodes; i++ {
		if offset[i] < offset[i-1] {
			return fmt.Errorf("offset not monotonic at %d: %d < %d", i, offset[i], offset[i-1])
		}
	}
	return nil
}

func cstring(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

// Zero-copy I/O helpers using unsafe.Slice.

func writeUint32Slice(w io.Writer, s []uint32) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
	_, err := w.Write(b)
	return err
}

func writeInt64Slice(w io.Writer, s []int64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func writeFloat64Slice(w io.Writer, s []float64) error {
	if len(s) == 0 {
		return nil
	}
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*8)
	_, err := w.Write(b)
	return err
}

func readUint32Slice(r io.Reader, n int) ([]uint32, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]uint32, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*4)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readInt64Slice(r io.Reader, n int) ([]int64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]int64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

func readFloat64Slice(r io.Reader, n int) ([]float64, error) {
	if n == 0 {
		return nil, nil
	}
	s := make([]float64, n)
	b := unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), n*8)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return s, nil
}

// CRC32 wrapping writers/readers.

type crc32Writer struct {
	w    io.Writer
	hash crc32Hash
}

type crc32Hash interface {
	Write([]byte) (int, error)
	Sum32() uint32
}

func (cw *crc32Writer) Write(p []byte) (int, error) {
	cw.hash.Write(p)
	return cw.w.Write(p)
}

type crc32Reader struct {
	r    io.Reader
	hash crc32Hash
}

func (cr *crc32Reader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		cr.hash.Write(p[:n])
	}
	return n, err
}
