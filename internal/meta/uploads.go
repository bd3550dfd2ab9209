package meta

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kk-code-lab/segetag/internal/digest"
)

// Upload states.
const (
	StateOpen      = "OPEN"
	StateCompleted = "COMPLETED"
)

// MaxPartNumber is the highest part number S3 accepts.
const MaxPartNumber = 10000

var (
	ErrUploadNotFound = errors.New("meta: upload not found")
	ErrUploadNotOpen  = errors.New("meta: upload not open")
	ErrNoParts        = errors.New("meta: upload has no parts")
	ErrPartGap        = errors.New("meta: part numbers not contiguous")
	ErrPartNumber     = errors.New("meta: part number out of range")
)

// Upload holds multipart session metadata.
type Upload struct {
	UploadID    string
	Object      string
	Algorithm   digest.Algorithm
	State       string
	CreatedAt   string
	CompletedAt string
	Checksum    string
}

// Part holds one recorded segment digest.
type Part struct {
	UploadID   string
	PartNumber int
	Digest     string
	Size       int64
	RecordedAt string
}

// CreateUpload opens a new session for object and returns it.
func (s *Store) CreateUpload(ctx context.Context, object string, alg digest.Algorithm) (*Upload, error) {
	if object == "" {
		return nil, errors.New("meta: object required")
	}
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %q", digest.ErrUnsupportedAlgorithm, string(alg))
	}
	up := &Upload{
		UploadID:  uuid.NewString(),
		Object:    object,
		Algorithm: alg,
		State:     StateOpen,
		CreatedAt: nowUTC(),
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO uploads(upload_id, object, algorithm, state, created_at)
VALUES(?, ?, ?, ?, ?)`, up.UploadID, up.Object, string(up.Algorithm), up.State, up.CreatedAt)
	if err != nil {
		return nil, err
	}
	return up, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUpload(row rowScanner) (*Upload, error) {
	var (
		up  Upload
		alg string
	)
	if err := row.Scan(&up.UploadID, &up.Object, &alg, &up.State, &up.CreatedAt, &up.CompletedAt, &up.Checksum); err != nil {
		return nil, err
	}
	up.Algorithm = digest.Algorithm(alg)
	return &up, nil
}

const uploadColumns = `upload_id, object, algorithm, state, created_at, COALESCE(completed_at, ''), COALESCE(checksum, '')`

// GetUpload returns upload metadata.
func (s *Store) GetUpload(ctx context.Context, uploadID string) (*Upload, error) {
	return getUpload(ctx, s.db, uploadID)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getUpload(ctx context.Context, q queryer, uploadID string) (*Upload, error) {
	up, err := scanUpload(q.QueryRowContext(ctx, `SELECT `+uploadColumns+` FROM uploads WHERE upload_id=?`, uploadID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	return up, err
}

// ListUploads returns uploads whose object starts with prefix.
// An empty state matches every state.
func (s *Store) ListUploads(ctx context.Context, prefix, state string, limit int) ([]Upload, error) {
	if limit <= 0 {
		limit = 1000
	}
	pattern := escapeLike(prefix) + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT `+uploadColumns+`
FROM uploads
WHERE object LIKE ? ESCAPE '\' AND (?='' OR state=?)
ORDER BY object, created_at
LIMIT ?`, pattern, state, state, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Upload
	for rows.Next() {
		up, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *up)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AbortUpload deletes an open upload and its parts.
func (s *Store) AbortUpload(ctx context.Context, uploadID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		up, err := getUpload(ctx, tx, uploadID)
		if err != nil {
			return err
		}
		if up.State != StateOpen {
			return ErrUploadNotOpen
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM upload_parts WHERE upload_id=?`, uploadID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `DELETE FROM uploads WHERE upload_id=?`, uploadID)
		return err
	})
}

// PutPart records or replaces the digest of a part.
func (s *Store) PutPart(ctx context.Context, uploadID string, partNumber int, segmentDigest string, size int64) error {
	if partNumber <= 0 || partNumber > MaxPartNumber {
		return ErrPartNumber
	}
	if size < 0 {
		return errors.New("meta: negative part size")
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		up, err := getUpload(ctx, tx, uploadID)
		if err != nil {
			return err
		}
		if up.State != StateOpen {
			return ErrUploadNotOpen
		}
		if err := digest.ValidateSegment(segmentDigest, up.Algorithm); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO upload_parts(upload_id, part_number, digest, size, recorded_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(upload_id, part_number) DO UPDATE SET
	digest=excluded.digest,
	size=excluded.size,
	recorded_at=excluded.recorded_at`,
			uploadID, partNumber, segmentDigest, size, nowUTC())
		return err
	})
}

// ListParts returns parts ordered by part number.
func (s *Store) ListParts(ctx context.Context, uploadID string) ([]Part, error) {
	if _, err := s.GetUpload(ctx, uploadID); err != nil {
		return nil, err
	}
	return listParts(ctx, s.db, uploadID)
}

type rowsQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listParts(ctx context.Context, q rowsQueryer, uploadID string) ([]Part, error) {
	rows, err := q.QueryContext(ctx, `
SELECT upload_id, part_number, digest, size, recorded_at
FROM upload_parts
WHERE upload_id=?
ORDER BY part_number`, uploadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Part
	for rows.Next() {
		var part Part
		if err := rows.Scan(&part.UploadID, &part.PartNumber, &part.Digest, &part.Size, &part.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, part)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CompleteUpload composes the recorded parts in part order, stores the
// checksum and closes the upload. The upload's algorithm overrides
// opts.Algorithm.
func (s *Store) CompleteUpload(ctx context.Context, uploadID string, opts digest.Options) (*digest.Composite, error) {
	var composite *digest.Composite
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		up, err := getUpload(ctx, tx, uploadID)
		if err != nil {
			return err
		}
		if up.State != StateOpen {
			return ErrUploadNotOpen
		}
		parts, err := listParts(ctx, tx, uploadID)
		if err != nil {
			return err
		}
		if len(parts) == 0 {
			return ErrNoParts
		}
		segs := make([]string, 0, len(parts))
		for i, part := range parts {
			if part.PartNumber != i+1 {
				return fmt.Errorf("%w: missing part %d", ErrPartGap, i+1)
			}
			segs = append(segs, part.Digest)
		}
		opts.Algorithm = up.Algorithm
		composite, err = digest.Compose(segs, opts)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
UPDATE uploads SET state=?, completed_at=?, checksum=? WHERE upload_id=?`,
			StateCompleted, nowUTC(), composite.String(), uploadID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return composite, nil
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
