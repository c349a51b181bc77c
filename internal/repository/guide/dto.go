package guide

import (
	"encoding/binary"
	"math"

	"github.com/savealife-cloud/lifeline/internal/domain"
)

// Reserved hash field names; tag keys must not collide with these.
const (
	fieldTitle   = "title"
	fieldContent = "__content"
	fieldVector  = "__vector"
)

// buildHashFields converts a guide into a flat map[string]string for HSET.
func buildHashFields(g *domain.Guide) map[string]string {
	m := make(map[string]string, 3+len(g.Tags))
	m[fieldTitle] = g.Title
	m[fieldContent] = g.Content
	m[fieldVector] = vectorToBytes(g.Vector)
	for k, v := range g.Tags {
		if k == fieldTitle || k == fieldContent || k == fieldVector {
			continue
		}
		m[k] = v
	}
	return m
}

// parseHashFields converts a flat hash map back into a guide.
// Unknown fields become tags; malformed vectors read as nil.
func parseHashFields(id string, m map[string]string) domain.Guide {
	g := domain.Guide{ID: id}
	for k, v := range m {
		switch k {
		case fieldTitle:
			g.Title = v
		case fieldContent:
			g.Content = v
		case fieldVector:
			g.Vector = bytesToVector(v)
		default:
			if g.Tags == nil {
				g.Tags = make(map[string]string)
			}
			g.Tags[k] = v
		}
	}
	return g
}

// vectorToBytes serializes []float32 into a binary little-endian string.
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}

// bytesToVector deserializes a binary string to []float32.
func bytesToVector(s string) []float32 {
	b := []byte(s)
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
