package frame

import (
	"errors"
	"reflect"
	"testing"
)

// ----------------------------------------------------------------------------
// Normalize Tests
// ----------------------------------------------------------------------------

func TestNormalize(t *testing.T) {
	in := &Table{
		Name:    "confirmed",
		Columns: []string{"Status", "Province/State", "Country/Region", "Lat", "Long", "3/21/20", "3/22/20"},
		Rows: [][]any{
			{"confirmed", "", "Nepal", "28.1667", "84.25", "1", "2"},
			{"confirmed", "Hubei", "China", "30.9756", "112.2707", "444", "444"},
		},
	}

	got, err := Normalize(in, "")
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}

	wantColumns := []string{"status", "province_state", "country_region", "lat", "lon", "d_20200321", "d_20200322"}
	if !reflect.DeepEqual(got.Columns, wantColumns) {
		t.Errorf("Normalize() columns = %v, want %v", got.Columns, wantColumns)
	}

	wantRows := [][]any{
		{"confirmed", "", "Nepal", "28.1667", "84.25", int64(1), int64(2)},
		{"confirmed", "Hubei", "China", "30.9756", "112.2707", int64(444), int64(444)},
	}
	if !reflect.DeepEqual(got.Rows, wantRows) {
		t.Errorf("Normalize() rows = %v, want %v", got.Rows, wantRows)
	}
}

func TestNormalize_LatLongPair(t *testing.T) {
	in := &Table{
		Columns: []string{"Lat", "Long"},
		Rows:    [][]any{{"1.5", "-2.5"}},
	}

	got, err := Normalize(in, "")
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}

	want := []string{"lat", "lon"}
	if !reflect.DeepEqual(got.Columns, want) {
		t.Errorf("Normalize() columns = %v, want %v", got.Columns, want)
	}
}

func TestNormalize_PreservesColumnOrder(t *testing.T) {
	in := &Table{
		Columns: []string{"3/22/20", "Country/Region", "1960 [YR1960]", "Status", "3/21/20"},
		Rows:    [][]any{{"5", "Nepal", "x", "confirmed", "4"}},
	}

	got, err := Normalize(in, "")
	if err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}

	want := []string{"d_20200322", "country_region", "y_1960", "status", "d_20200321"}
	if !reflect.DeepEqual(got.Columns, want) {
		t.Errorf("Normalize() columns = %v, want %v", got.Columns, want)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	in := &Table{
		Columns: []string{"Province/State", "Country/Region", "Lat", "Long", "3/21/20"},
		Rows:    [][]any{{"", "Nepal", "28.1667", "84.25", "1"}},
	}

	once, err := Normalize(in, "")
	if err != nil {
		t.Fatalf("first Normalize() unexpected error: %v", err)
	}
	twice, err := Normalize(once, "")
	if err != nil {
		t.Fatalf("second Normalize() unexpected error: %v", err)
	}

	if !reflect.DeepEqual(once.Columns, twice.Columns) {
		t.Errorf("second pass changed columns: %v -> %v", once.Columns, twice.Columns)
	}
	if !reflect.DeepEqual(once.Rows, twice.Rows) {
		t.Errorf("second pass changed rows: %v -> %v", once.Rows, twice.Rows)
	}
}

func TestNormalize_InputUntouched(t *testing.T) {
	in := &Table{
		Columns: []string{"Lat", "Long", "3/21/20"},
		Rows:    [][]any{{"1.0", "2.0", "7"}},
	}
	wantColumns := append([]string(nil), in.Columns...)
	wantCell := in.Rows[0][2]

	if _, err := Normalize(in, ""); err != nil {
		t.Fatalf("Normalize() unexpected error: %v", err)
	}

	if !reflect.DeepEqual(in.Columns, wantColumns) {
		t.Errorf("input columns mutated: %v, want %v", in.Columns, wantColumns)
	}
	if in.Rows[0][2] != wantCell {
		t.Errorf("input cell mutated: %v, want %v", in.Rows[0][2], wantCell)
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		table   *Table
		wantErr error
	}{
		// Collisions surface before any value work
		{
			name: "long and lon collide after pre-rename",
			table: &Table{
				Columns: []string{"Lon", "Long"},
				Rows:    [][]any{{"1", "2"}},
			},
			wantErr: ErrRenameCollision,
		},
		{
			name: "compound collides with plain",
			table: &Table{
				Columns: []string{"Province/State", "province_state"},
			},
			wantErr: ErrRenameCollision,
		},
		{
			name: "duplicate date headers collide",
			table: &Table{
				Columns: []string{"3/21/20", "03/21/20"},
			},
			wantErr: ErrRenameCollision,
		},

		// Header failures
		{
			name: "empty header",
			table: &Table{
				Columns: []string{"Lat", ""},
			},
			wantErr: ErrMalformedHeader,
		},
		{
			name: "impossible date header",
			table: &Table{
				Columns: []string{"13/45/20"},
			},
			wantErr: ErrDateParse,
		},

		// Cast failures
		{
			name: "non-numeric cell in date column",
			table: &Table{
				Columns: []string{"3/21/20"},
				Rows:    [][]any{{"abc"}},
			},
			wantErr: ErrValueCast,
		},
		{
			name: "empty cell in date column",
			table: &Table{
				Columns: []string{"3/21/20"},
				Rows:    [][]any{{""}},
			},
			wantErr: ErrValueCast,
		},
		{
			name: "short row missing date cell",
			table: &Table{
				Columns: []string{"Lat", "3/21/20"},
				Rows:    [][]any{{"1.0"}},
			},
			wantErr: ErrValueCast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.table, "")
			if err == nil {
				t.Fatalf("Normalize() expected error, got nil")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Normalize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

// A collision must be reported even when the colliding columns hold
// values that would fail the cast, proving header work happens first.
func TestNormalize_CollisionBeforeCasts(t *testing.T) {
	in := &Table{
		Columns: []string{"3/21/20", "03/21/20"},
		Rows:    [][]any{{"not-a-number", "also-not"}},
	}

	_, err := Normalize(in, "")
	if !errors.Is(err, ErrRenameCollision) {
		t.Errorf("Normalize() error = %v, want %v", err, ErrRenameCollision)
	}
}
