package fakeapi

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goliatone/go-travel-admin/pkg/entity"
	"github.com/goliatone/go-travel-admin/pkg/record"
)

type row struct {
	id     int64
	values map[string]any
	// refs maps a relationship source field (e.g. "city") to the referenced id.
	refs map[string]int64
}

type table struct {
	entity entity.Entity
	nextID int64
	rows   []*row
	// links maps a parent id to related ids per relation name.
	links map[string]map[int64][]int64
}

func newTable(ent entity.Entity) *table {
	return &table{entity: ent, nextID: 1, links: make(map[string]map[int64][]int64)}
}

func (t *table) find(id int64) (*row, int) {
	for i, r := range t.rows {
		if r.id == id {
			return r, i
		}
	}
	return nil, -1
}

// coerce converts a validated payload into stored values and reference ids.
func coerce(ent entity.Entity, payload map[string]any) (map[string]any, map[string]int64, error) {
	values := make(map[string]any, len(ent.Fields))
	refs := make(map[string]int64)
	for _, field := range ent.Fields {
		raw, ok := payload[field.Name]
		if !ok || raw == nil {
			continue
		}
		switch field.Type {
		case entity.FieldTypeInteger:
			n, err := toInt(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			values[field.Name] = n
		case entity.FieldTypeNumber:
			f, err := strconv.ParseFloat(record.IDString(raw), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: must be a number", field.Name)
			}
			values[field.Name] = f
		case entity.FieldTypeReference:
			n, err := toInt(raw)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", field.Name, err)
			}
			refs[field.ReadPath()] = n
		default:
			values[field.Name] = strings.TrimSpace(fmt.Sprint(raw))
		}
	}
	return values, refs, nil
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("must be a whole number")
		}
		return int64(v), nil
	default:
		n, err := strconv.ParseInt(record.IDString(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be a whole number")
		}
		return n, nil
	}
}
