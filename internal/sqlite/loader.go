package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/mesh-intelligence/pathtree/pkg/types"
)

// ImportResult summarizes an ImportJSONL run.
type ImportResult struct {
	// Created counts inserted rows.
	Created int
	// Skipped counts malformed records and records whose id already exists.
	Skipped int
	// Parents maps each imported id to the parent_id field of its record,
	// for records written by adjacency-list exporters. "" marks a root.
	// Nil when no record carried parent_id.
	Parents map[types.ID]types.ID
}

// importRecord is one JSONL line. Unknown fields are ignored.
type importRecord struct {
	ID       any    `json:"id"`
	Path     string `json:"path"`
	Depth    int    `json:"depth"`
	Name     string `json:"name"`
	ParentID any    `json:"parent_id"`
}

// ImportJSONL inserts the records of the JSONL file at path into s inside
// one transaction: all rows are written or none. Malformed lines and
// duplicate ids are skipped. Paths and depths are stored as found; run the
// tree engine's integrity pass afterwards to repair them.
func ImportJSONL(ctx context.Context, s types.Store, path string) (ImportResult, error) {
	var res ImportResult

	records, err := readJSONL(path)
	if err != nil {
		return res, err
	}

	err = s.WithTransaction(ctx, func(ctx context.Context, tx types.Store) error {
		for _, raw := range records {
			var rec importRecord
			if err := json.Unmarshal(raw, &rec); err != nil {
				res.Skipped++
				continue
			}
			n := types.Node{ID: idString(rec.ID), Path: rec.Path, Depth: rec.Depth, Name: rec.Name}
			created, err := tx.Create(ctx, n)
			if errors.Is(err, types.ErrDuplicateID) || errors.Is(err, types.ErrInvalidID) {
				res.Skipped++
				continue
			}
			if err != nil {
				return fmt.Errorf("importing node %s: %w", n.ID, err)
			}
			res.Created++

			if rec.ParentID != nil || hasField(raw, "parent_id") {
				if res.Parents == nil {
					res.Parents = make(map[types.ID]types.ID)
				}
				res.Parents[created.ID] = idString(rec.ParentID)
			}
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, fmt.Errorf("importing %s: %w", path, err)
	}
	return res, nil
}

// idString renders a decoded JSON id. Numbers are formatted as integers.
func idString(v any) types.ID {
	switch id := v.(type) {
	case nil:
		return ""
	case float64:
		return types.ID(strconv.FormatFloat(id, 'f', -1, 64))
	case string:
		return types.ID(id)
	}
	return types.ID(fmt.Sprint(v))
}

func hasField(raw json.RawMessage, field string) bool {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return false
	}
	_, ok := obj[field]
	return ok
}
