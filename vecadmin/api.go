// Package vecadmin holds administrative index operations for SQLite
// collections: rebuilding an index from stored embeddings and persisting it
// in the shared vector_storage table.
//
// Usage:
//
//	n, err := vecadmin.Reindex(ctx, db, "agents", vector.DefaultIndexParams())
//	stored, err := vecadmin.LoadIndex(ctx, db, "agents")
//
// Stored blobs are zstd compressed. Each blob records the largest rowid it
// covers, so rows appended after a reindex can be told apart from indexed
// ones.
package vecadmin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/viant/agentvec/index"
	"github.com/viant/agentvec/vector"
)

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// EnsureStorage creates the vector_storage table.
func EnsureStorage(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("vecadmin: db is nil")
	}
	_, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS vector_storage (
    shadow_table_name TEXT PRIMARY KEY,
    params            TEXT NOT NULL,
    item_count        INTEGER NOT NULL DEFAULT 0,
    max_rowid         INTEGER NOT NULL DEFAULT 0,
    built_at          INTEGER NOT NULL,
    "index"           BLOB
)`)
	return err
}

// Reindex rebuilds the index over every embedding in table and persists it,
// replacing any previous one. It returns the number of indexed rows. The
// rebuild holds a write reservation (BEGIN IMMEDIATE) for its whole duration
// so that concurrent reindexes of the same database are serialized.
func Reindex(ctx context.Context, db *sql.DB, table string, params vector.IndexParams) (int, error) {
	if err := vector.ValidateIdentifier(table); err != nil {
		return 0, err
	}
	if err := params.Validate(); err != nil {
		return 0, err
	}
	if err := EnsureStorage(ctx, db); err != nil {
		return 0, err
	}
	// BEGIN/COMMIT must run on the same connection
	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `BEGIN IMMEDIATE`); err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), `ROLLBACK`)
		}
	}()

	ids, vecs, maxRowID, err := readEmbeddings(ctx, conn, table)
	if err != nil {
		return 0, err
	}
	idx, err := index.Build(params, ids, vecs)
	if err != nil {
		return 0, err
	}
	data, err := idx.MarshalBinary()
	if err != nil {
		return 0, err
	}
	enc := getZstdEncoder()
	blob := enc.EncodeAll(data, nil)
	zstdEncoderPool.Put(enc)

	meta, err := json.Marshal(params)
	if err != nil {
		return 0, err
	}
	if _, err := conn.ExecContext(ctx, `INSERT OR REPLACE INTO vector_storage(shadow_table_name, params, item_count, max_rowid, built_at, "index") VALUES(?, ?, ?, ?, ?, ?)`,
		table, string(meta), len(ids), maxRowID, time.Now().Unix(), blob); err != nil {
		return 0, err
	}
	if _, err := conn.ExecContext(ctx, `COMMIT`); err != nil {
		return 0, err
	}
	committed = true
	return len(ids), nil
}

// readEmbeddings returns the embeddings of table in rowid order together
// with the largest rowid read.
func readEmbeddings(ctx context.Context, conn *sql.Conn, table string) ([]string, [][]float32, int64, error) {
	q := fmt.Sprintf("SELECT rowid, pk, embedding FROM %s ORDER BY rowid", table)
	rows, err := conn.QueryContext(ctx, q)
	if err != nil {
		return nil, nil, 0, err
	}
	defer rows.Close()
	var ids []string
	var vecs [][]float32
	var maxRowID int64
	for rows.Next() {
		var rowID int64
		var id string
		var emb []byte
		if err := rows.Scan(&rowID, &id, &emb); err != nil {
			return nil, nil, 0, err
		}
		maxRowID = rowID
		if len(emb) == 0 {
			continue
		}
		dim := len(emb) / 4
		if len(vecs) > 0 {
			dim = len(vecs[0])
		}
		v, err := vector.DecodeEmbeddingDim(emb, dim)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("row %s: %w", id, err)
		}
		ids = append(ids, id)
		vecs = append(vecs, v)
	}
	return ids, vecs, maxRowID, rows.Err()
}

// Stored is a persisted index.
type Stored struct {
	Index  index.Index
	Params vector.IndexParams
	// MaxRowID is the largest rowid of the table when the index was built.
	MaxRowID int64
}

// LoadIndex restores the persisted index of table. It returns nil when no
// index has been built yet.
func LoadIndex(ctx context.Context, db *sql.DB, table string) (*Stored, error) {
	if err := EnsureStorage(ctx, db); err != nil {
		return nil, err
	}
	var meta string
	var blob []byte
	stored := &Stored{}
	err := db.QueryRowContext(ctx, `SELECT params, max_rowid, "index" FROM vector_storage WHERE shadow_table_name = ?`, table).Scan(&meta, &stored.MaxRowID, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal([]byte(meta), &stored.Params); err != nil {
		return nil, fmt.Errorf("vecadmin: invalid params for %s: %w", table, err)
	}
	dec := getZstdDecoder()
	data, err := dec.DecodeAll(blob, nil)
	zstdDecoderPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("vecadmin: corrupt index for %s: %w", table, err)
	}
	if stored.Index, err = index.Decode(stored.Params, data); err != nil {
		return nil, fmt.Errorf("vecadmin: corrupt index for %s: %w", table, err)
	}
	return stored, nil
}

// Drop removes the persisted index of table.
func Drop(ctx context.Context, db *sql.DB, table string) error {
	if err := EnsureStorage(ctx, db); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx, `DELETE FROM vector_storage WHERE shadow_table_name = ?`, table)
	return err
}
