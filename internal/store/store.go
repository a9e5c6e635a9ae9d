// Package store persists tear fingerprints in SQLite.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"tornedge/internal/features"
	"tornedge/internal/matching"
)

//go:embed schema.sql
var schemaSQL string

// ErrNotFound is returned when no fragment has the requested id.
var ErrNotFound = errors.New("store: fragment not found")

// Record is one stored fragment.
type Record struct {
	ID             int64
	RegisteredDate time.Time
	Features       features.Encoded
	FilePath       string
	ChatRoomID     string
}

// Store manages fingerprint persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path, now: time.Now}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Register stores a fingerprint and returns its new image id.
func (s *Store) Register(ctx context.Context, fs features.FeatureSet) (int64, error) {
	enc := fs.Encode()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO paper (registered_date, fs_x, fs_y, fh, fa, fp, file_path, chat_room_id)
         VALUES (?, ?, ?, ?, ?, ?, '', '')`,
		s.now().UTC().Format(time.RFC3339Nano),
		enc.ShapeX, enc.ShapeY, fs.Height, fs.Angle, enc.Position,
	)
	if err != nil {
		return 0, fmt.Errorf("insert fragment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read fragment id: %w", err)
	}
	return id, nil
}

// SetFilePath attaches a shared file to a fragment.
func (s *Store) SetFilePath(ctx context.Context, id int64, path string) error {
	return s.update(ctx, "file_path", id, path)
}

// SetChatRoomID attaches a chat room to a fragment.
func (s *Store) SetChatRoomID(ctx context.Context, id int64, room string) error {
	return s.update(ctx, "chat_room_id", id, room)
}

// column is always a literal chosen by the caller.
func (s *Store) update(ctx context.Context, column string, id int64, value string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE paper SET "+column+" = ? WHERE image_id = ?", value, id)
	if err != nil {
		return fmt.Errorf("update %s: %w", column, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fragment %d: %w", id, ErrNotFound)
	}
	return nil
}

// EnsureChatRoomID returns the fragment's chat room id, creating one when
// it has none. created reports whether a new id was assigned.
func (s *Store) EnsureChatRoomID(ctx context.Context, id int64) (room string, created bool, err error) {
	room, err = s.ChatRoomID(ctx, id)
	if err != nil || room != "" {
		return room, false, err
	}
	room = NewChatRoomID(s.now())
	if err := s.SetChatRoomID(ctx, id, room); err != nil {
		return "", false, err
	}
	return room, true, nil
}

// NewChatRoomID builds a chat room id from a timestamp and a random uuid.
// Dashes are replaced so the id is safe as a file or table name.
func NewChatRoomID(t time.Time) string {
	raw := "chat_room" + t.Format("200601-0215-0405-") + uuid.NewString()
	return strings.ReplaceAll(raw, "-", "_")
}

// Get returns the full record of a fragment.
func (s *Store) Get(ctx context.Context, id int64) (*Record, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+" WHERE image_id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fragment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load fragment %d: %w", id, err)
	}
	return rec, nil
}

// FeaturesByID returns the encoded fingerprint of a fragment.
func (s *Store) FeaturesByID(ctx context.Context, id int64) (features.Encoded, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return features.Encoded{}, err
	}
	return rec.Features, nil
}

// FilePath returns the shared file path of a fragment, "" when none.
func (s *Store) FilePath(ctx context.Context, id int64) (string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.FilePath, nil
}

// ChatRoomID returns the chat room id of a fragment, "" when none.
func (s *Store) ChatRoomID(ctx context.Context, id int64) (string, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return rec.ChatRoomID, nil
}

// RegisteredDate returns when a fragment was registered.
func (s *Store) RegisteredDate(ctx context.Context, id int64) (time.Time, error) {
	rec, err := s.Get(ctx, id)
	if err != nil {
		return time.Time{}, err
	}
	return rec.RegisteredDate, nil
}

// Delete removes a fragment.
func (s *Store) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM paper WHERE image_id = ?", id)
	if err != nil {
		return fmt.Errorf("delete fragment: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fragment %d: %w", id, ErrNotFound)
	}
	return nil
}

// List returns every record in id order.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	return s.query(ctx, "")
}

// AllFeatures returns every fragment as a match candidate.
func (s *Store) AllFeatures(ctx context.Context) ([]matching.Candidate, error) {
	return s.candidates(ctx, "")
}

// FeaturesWithFile returns the fragments that have a shared file.
func (s *Store) FeaturesWithFile(ctx context.Context) ([]matching.Candidate, error) {
	return s.candidates(ctx, "WHERE file_path != ''")
}

// FeaturesWithChatRoom returns the fragments that have a chat room.
func (s *Store) FeaturesWithChatRoom(ctx context.Context) ([]matching.Candidate, error) {
	return s.candidates(ctx, "WHERE chat_room_id != ''")
}

func (s *Store) candidates(ctx context.Context, where string) ([]matching.Candidate, error) {
	recs, err := s.query(ctx, where)
	if err != nil {
		return nil, err
	}
	out := make([]matching.Candidate, len(recs))
	for i, r := range recs {
		out[i] = matching.Candidate{ID: FormatID(r.ID), Features: r.Features}
	}
	return out, nil
}

const selectRecord = `SELECT image_id, registered_date, fs_x, fs_y, fh, fa, fp, file_path, chat_room_id FROM paper`

func (s *Store) query(ctx context.Context, where string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, selectRecord+" "+where+" ORDER BY image_id")
	if err != nil {
		return nil, fmt.Errorf("query fragments: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fragment: %w", err)
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*Record, error) {
	var (
		rec    Record
		date   string
		fh, fa float64
	)
	if err := row.Scan(&rec.ID, &date, &rec.Features.ShapeX, &rec.Features.ShapeY,
		&fh, &fa, &rec.Features.Position, &rec.FilePath, &rec.ChatRoomID); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, date)
	if err != nil {
		return nil, fmt.Errorf("registered_date %q: %w", date, err)
	}
	rec.RegisteredDate = t
	rec.Features.Height = strconv.FormatFloat(fh, 'f', -1, 64)
	rec.Features.Angle = strconv.FormatFloat(fa, 'f', -1, 64)
	return &rec, nil
}

// FormatID renders an image id as a candidate id.
func FormatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// ParseID parses a candidate id back to an image id.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.Trim(strings.TrimSpace(s), `"`), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid image id %q: %w", s, err)
	}
	return id, nil
}
