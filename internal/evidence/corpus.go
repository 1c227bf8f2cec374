package evidence

// #region imports
import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"

	_ "modernc.org/sqlite"
)

// #endregion

// #region schema

// corpusSchema is the snapshot table the ingestion pipeline writes and this
// engine reads. The engine never mutates it.
const corpusSchema = `
CREATE TABLE IF NOT EXISTS corpus_blocks (
	block_id    TEXT PRIMARY KEY,
	tenant_id   TEXT NOT NULL,
	twin_id     TEXT,
	source_id   TEXT NOT NULL,
	section     TEXT,
	block_type  TEXT NOT NULL,
	text        TEXT NOT NULL,
	embedding   BLOB
);

CREATE INDEX IF NOT EXISTS idx_corpus_tenant ON corpus_blocks(tenant_id);
`

// #endregion schema

// #region open-corpus

// OpenCorpusDB opens the corpus snapshot database and ensures the schema.
func OpenCorpusDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open corpus db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec(corpusSchema); err != nil {
		return nil, fmt.Errorf("migrate corpus: %w", err)
	}
	return db, nil
}

// #endregion open-corpus

// #region load

// LoadCorpus reads every block from the snapshot into a MemoryIndex.
func LoadCorpus(db *sql.DB) (*MemoryIndex, error) {
	rows, err := db.Query(
		`SELECT block_id, tenant_id, twin_id, source_id, section, block_type, text, embedding
		 FROM corpus_blocks`)
	if err != nil {
		return nil, fmt.Errorf("load corpus: %w", err)
	}
	defer rows.Close()

	idx := NewMemoryIndex()
	for rows.Next() {
		var b Block
		var twin, section sql.NullString
		var blob []byte
		if err := rows.Scan(&b.ID, &b.TenantID, &twin, &b.SourceID, &section, (*string)(&b.Type), &b.Text, &blob); err != nil {
			return nil, fmt.Errorf("scan corpus row: %w", err)
		}
		if twin.Valid {
			b.TwinID = twin.String
		}
		if section.Valid {
			b.Section = section.String
		}
		if err := idx.Add(b, DecodeVector(blob)); err != nil {
			return nil, fmt.Errorf("index block %s: %w", b.ID, err)
		}
	}
	return idx, rows.Err()
}

// #endregion load

// #region insert

// InsertBlock writes one block into the snapshot. Used by the seed command
// and by tests; the serving path is read-only.
func InsertBlock(db *sql.DB, b Block, vector []float64) error {
	_, err := db.Exec(
		`INSERT INTO corpus_blocks (block_id, tenant_id, twin_id, source_id, section, block_type, text, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.TenantID, nullIfEmpty(b.TwinID), b.SourceID, nullIfEmpty(b.Section),
		string(b.Type), b.Text, EncodeVector(vector),
	)
	if err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion insert

// #region vector-encoding

// EncodeVector packs a float64 vector as little-endian float32 bytes.
func EncodeVector(v []float64) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(f)))
	}
	return buf
}

// DecodeVector unpacks little-endian float32 bytes into a float64 vector.
func DecodeVector(buf []byte) []float64 {
	if len(buf) < 4 {
		return nil
	}
	v := make([]float64, len(buf)/4)
	for i := range v {
		v[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
	}
	return v
}

// #endregion vector-encoding
