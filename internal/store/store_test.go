package store

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"tornedge/internal/features"
	"tornedge/internal/matching"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "tornedge.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sample(h float64) features.FeatureSet {
	return features.FeatureSet{
		ShapeX:   []float64{1, 2, 3, 4},
		ShapeY:   []float64{10, 11, 9.5, 10},
		Height:   h,
		Angle:    87.25,
		Position: features.Position{1, 0},
	}
}

func TestRegisterAndLoad(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	fixed := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	id, err := s.Register(ctx, sample(0.125))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if id != 1 {
		t.Fatalf("expected first id 1, got %d", id)
	}

	enc, err := s.FeaturesByID(ctx, id)
	if err != nil {
		t.Fatalf("FeaturesByID: %v", err)
	}
	got, err := enc.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(got, sample(0.125)) {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	date, err := s.RegisteredDate(ctx, id)
	if err != nil || !date.Equal(fixed) {
		t.Fatalf("RegisteredDate = %v, %v", date, err)
	}
	if path, _ := s.FilePath(ctx, id); path != "" {
		t.Fatalf("new fragment should have no file, got %q", path)
	}
}

func TestFilteredCandidates(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		id, err := s.Register(ctx, sample(float64(i)/10))
		if err != nil {
			t.Fatalf("Register: %v", err)
		}
		ids = append(ids, id)
	}
	if err := s.SetFilePath(ctx, ids[2], "files/a.pdf"); err != nil {
		t.Fatalf("SetFilePath: %v", err)
	}
	if err := s.SetFilePath(ctx, ids[0], "files/b.pdf"); err != nil {
		t.Fatalf("SetFilePath: %v", err)
	}
	if err := s.SetChatRoomID(ctx, ids[1], "chat_room_x"); err != nil {
		t.Fatalf("SetChatRoomID: %v", err)
	}

	tests := []struct {
		name string
		list func(context.Context) ([]string, error)
		want []string
	}{
		{"all", idsOf(s.AllFeatures), []string{"1", "2", "3"}},
		{"with file", idsOf(s.FeaturesWithFile), []string{"1", "3"}},
		{"with chat room", idsOf(s.FeaturesWithChatRoom), []string{"2"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.list(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}

func idsOf(list func(context.Context) ([]matching.Candidate, error)) func(context.Context) ([]string, error) {
	return func(ctx context.Context) ([]string, error) {
		cands, err := list(ctx)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(cands))
		for i, c := range cands {
			ids[i] = c.ID
		}
		return ids, nil
	}
}

func TestEnsureChatRoomID(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	id, err := s.Register(ctx, sample(0.1))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	room, created, err := s.EnsureChatRoomID(ctx, id)
	if err != nil || !created {
		t.Fatalf("EnsureChatRoomID = %q, %v, %v", room, created, err)
	}
	if !strings.HasPrefix(room, "chat_room") || strings.Contains(room, "-") {
		t.Fatalf("unexpected room id %q", room)
	}

	again, created, err := s.EnsureChatRoomID(ctx, id)
	if err != nil || created || again != room {
		t.Fatalf("second call = %q, %v, %v", again, created, err)
	}
}

func TestNewChatRoomID(t *testing.T) {
	ts := time.Date(2020, 7, 4, 13, 5, 9, 0, time.UTC)
	id := NewChatRoomID(ts)
	if !strings.HasPrefix(id, "chat_room202007_0413_0509_") {
		t.Fatalf("unexpected prefix: %q", id)
	}
	if len(id) != len("chat_room202007_0413_0509_")+36 {
		t.Fatalf("unexpected length %d", len(id))
	}
}

func TestNotFound(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	if _, err := s.FeaturesByID(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("FeaturesByID: %v", err)
	}
	if err := s.SetFilePath(ctx, 42, "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetFilePath: %v", err)
	}
	if err := s.Delete(ctx, 42); !errors.Is(err, ErrNotFound) {
		t.Errorf("Delete: %v", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()
	id, err := s.Register(ctx, sample(0.1))
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	recs, err := s.List(ctx)
	if err != nil || len(recs) != 0 {
		t.Fatalf("List = %v, %v", recs, err)
	}
}

func TestParseID(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"7", 7, false},
		{` "12" `, 12, false},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseID(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseID(%q) = %d, %v", tt.in, got, err)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tornedge.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := s.Register(context.Background(), sample(0.3)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	recs, err := s.List(context.Background())
	if err != nil || len(recs) != 1 {
		t.Fatalf("List = %v, %v", recs, err)
	}
}
