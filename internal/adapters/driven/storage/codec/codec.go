// Package codec holds the on-disk encodings shared by the persistent
// vector index backends.
package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/custodia-labs/kbase/internal/core/domain"
)

// FormatVersion is bumped when the persisted layout changes incompatibly.
const FormatVersion = 1

// Meta keys stored alongside the entries.
const (
	MetaFormat    = "format_version"
	MetaDimension = "dimension"
	MetaMetric    = "metric"
	MetaModel     = "embedding_model"
	MetaCount     = "count"
	MetaBuiltAt   = "built_at"
)

// EncodeVector packs a vector as little-endian float32s.
func EncodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// DecodeVector unpacks EncodeVector output.
func DecodeVector(data []byte) ([]float32, error) {
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%w: vector blob of %d bytes is not a float32 multiple",
			domain.ErrIndexPersistence, len(data))
	}
	v := make([]float32, len(data)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return v, nil
}

// Record is the persisted form of a chunk and its metadata.
type Record struct {
	ID        string         `json:"id"`
	SourceID  string         `json:"source_id"`
	Index     int            `json:"chunk_index"`
	Text      string         `json:"text"`
	CharStart int            `json:"char_start"`
	CharEnd   int            `json:"char_end"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewRecord converts an index entry, leaving the vector to the caller.
func NewRecord(e domain.IndexEntry) Record {
	c := e.Chunk
	return Record{
		ID:        c.ID,
		SourceID:  c.SourceID,
		Index:     c.Index,
		Text:      c.Text,
		CharStart: c.CharStart,
		CharEnd:   c.CharEnd,
		Metadata:  e.Metadata,
	}
}

// Entry rebuilds an index entry. JSON turns every number into float64,
// so the standard metadata keys are restored with their real types.
func (r Record) Entry(vector []float32) domain.IndexEntry {
	e := domain.NewIndexEntry(domain.Chunk{
		ID:        r.ID,
		SourceID:  r.SourceID,
		Index:     r.Index,
		Text:      r.Text,
		CharStart: r.CharStart,
		CharEnd:   r.CharEnd,
	}, vector)
	for k, v := range r.Metadata {
		if k == "source_id" || k == "chunk_index" {
			continue
		}
		e.Metadata[k] = v
	}
	return e
}

// MarshalMetadata encodes entry metadata for a TEXT column.
func MarshalMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshalling metadata: %w", err)
	}
	return string(b), nil
}

// InfoToMeta flattens index info into string key/value pairs.
func InfoToMeta(info domain.IndexInfo) map[string]string {
	return map[string]string{
		MetaFormat:    strconv.Itoa(FormatVersion),
		MetaDimension: strconv.Itoa(info.Dimension),
		MetaMetric:    info.Metric.String(),
		MetaModel:     info.EmbeddingModel,
		MetaCount:     strconv.Itoa(info.Count),
		MetaBuiltAt:   info.BuiltAt.UTC().Format(time.RFC3339Nano),
	}
}

// MetaToInfo parses InfoToMeta output.
func MetaToInfo(meta map[string]string) (domain.IndexInfo, error) {
	var info domain.IndexInfo

	if v := meta[MetaFormat]; v != strconv.Itoa(FormatVersion) {
		return info, fmt.Errorf("%w: unsupported index format %q", domain.ErrIndexPersistence, v)
	}

	dim, err := strconv.Atoi(meta[MetaDimension])
	if err != nil {
		return info, fmt.Errorf("%w: bad dimension %q", domain.ErrIndexPersistence, meta[MetaDimension])
	}
	count, err := strconv.Atoi(meta[MetaCount])
	if err != nil {
		return info, fmt.Errorf("%w: bad count %q", domain.ErrIndexPersistence, meta[MetaCount])
	}

	info.Dimension = dim
	info.Count = count
	info.Metric = domain.Metric(meta[MetaMetric])
	info.EmbeddingModel = meta[MetaModel]
	if v := meta[MetaBuiltAt]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			info.BuiltAt = t
		}
	}
	return info, nil
}
