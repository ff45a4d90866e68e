package pgx

import (
	"errors"
	"testing"
)

func TestChunkRange(t *testing.T) {
	tests := []struct {
		name      string
		total     int
		chunkSize int
		want      [][2]int
	}{
		{name: "empty", total: 0, chunkSize: 10, want: nil},
		{name: "single partial chunk", total: 3, chunkSize: 10, want: [][2]int{{0, 3}}},
		{name: "exact chunks", total: 10, chunkSize: 5, want: [][2]int{{0, 5}, {5, 10}}},
		{name: "trailing partial chunk", total: 12, chunkSize: 5, want: [][2]int{{0, 5}, {5, 10}, {10, 12}}},
		{name: "zero chunk size falls back to one chunk", total: 4, chunkSize: 0, want: [][2]int{{0, 4}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got [][2]int
			err := chunkRange(tt.total, tt.chunkSize, func(start, end int) error {
				got = append(got, [2]int{start, end})
				return nil
			})
			if err != nil {
				t.Fatalf("chunkRange() = %v, want nil", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("chunks = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("chunk %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestChunkRangeStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := chunkRange(10, 2, func(start, end int) error {
		calls++
		if calls == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Errorf("chunkRange() = %v, want wrapped error", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}
