package vector

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// Persistence layout under the index directory: vectors.bin holds the raw
// float32 storage (dimension, count, then count*dimension values, little
// endian); mapping.json holds the id↔position tables. The two files are
// always written and read together.
const (
	vectorsFile = "vectors.bin"
	mappingFile = "mapping.json"
)

type mappingTable struct {
	IDToPos map[string]int `json:"id_to_pos"`
	PosToID map[int]string `json:"pos_to_id"`
}

// Save writes the vector store and id mapping into dir, creating it if
// needed.
func (ix *Index) Save(dir string) error {
	if dir == "" {
		return nil
	}
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, vectorsFile))
	if err != nil {
		return fmt.Errorf("create vector store: %w", err)
	}
	defer f.Close()
	if err := binary.Write(f, binary.LittleEndian, uint32(ix.dimension)); err != nil {
		return fmt.Errorf("write dimension: %w", err)
	}
	if err := binary.Write(f, binary.LittleEndian, uint32(len(ix.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, v := range ix.vectors {
		if _, err := f.Write(float32sToBytes(v)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}

	table := mappingTable{IDToPos: ix.idToPos, PosToID: ix.posToID}
	data, err := json.Marshal(&table)
	if err != nil {
		return fmt.Errorf("marshal mapping: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, mappingFile), data, 0644); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return nil
}

// Load replaces the index contents from dir. A missing directory or file is
// not an error: the index simply stays empty and gets repopulated by the
// caller. A corrupt pair or a dimension mismatch is reported so the caller
// can decide to rebuild.
func (ix *Index) Load(dir string) error {
	if dir == "" {
		return nil
	}
	f, err := os.Open(filepath.Join(dir, vectorsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open vector store: %w", err)
	}
	defer f.Close()

	var dim, n uint32
	if err := binary.Read(f, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimension: %w", err)
	}
	if int(dim) != ix.dimension {
		return fmt.Errorf("%w: file has %d, index expects %d", ErrDimensionMismatch, dim, ix.dimension)
	}
	if err := binary.Read(f, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	vectors := make([][]float32, 0, n)
	buf := make([]byte, ix.dimension*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(f, buf); err != nil {
			return fmt.Errorf("read vector %d: %w", i, err)
		}
		vectors = append(vectors, bytesToFloat32s(buf))
	}

	data, err := os.ReadFile(filepath.Join(dir, mappingFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read mapping: %w", err)
	}
	var table mappingTable
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("parse mapping: %w", err)
	}
	if table.IDToPos == nil {
		table.IDToPos = make(map[string]int)
	}
	if table.PosToID == nil {
		table.PosToID = make(map[int]string)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.vectors = vectors
	ix.idToPos = table.IDToPos
	ix.posToID = table.PosToID
	return nil
}

func float32sToBytes(s []float32) []byte {
	out := make([]byte, len(s)*4)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*4:(i+1)*4], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32s(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
	}
	return out
}
