package frame

import (
	"errors"
	"testing"
)

// ----------------------------------------------------------------------------
// Classify Tests
// ----------------------------------------------------------------------------

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Classification
	}{
		// Date-like headers
		{
			name:   "slash date two digit year",
			header: "3/21/20",
			want:   Classification{Kind: KindDate, Name: "d_20200321", CastInt: true},
		},
		{
			name:   "slash date padded fields",
			header: "01/02/20",
			want:   Classification{Kind: KindDate, Name: "d_20200102", CastInt: true},
		},
		{
			name:   "slash date four digit year",
			header: "3/21/2020",
			want:   Classification{Kind: KindDate, Name: "d_20200321", CastInt: true},
		},
		{
			name:   "two digit year 19 resolves to 2019",
			header: "12/31/19",
			want:   Classification{Kind: KindDate, Name: "d_20191231", CastInt: true},
		},
		{
			name:   "date header with surrounding whitespace",
			header: " 3/21/20 ",
			want:   Classification{Kind: KindDate, Name: "d_20200321", CastInt: true},
		},

		// Compound headers
		{
			name:   "province state",
			header: "Province/State",
			want:   Classification{Kind: KindCompound, Name: "province_state"},
		},
		{
			name:   "country region",
			header: "Country/Region",
			want:   Classification{Kind: KindCompound, Name: "country_region"},
		},
		{
			name:   "compound with internal spaces",
			header: "New Cases/Per Day",
			want:   Classification{Kind: KindCompound, Name: "new_cases_per_day"},
		},
		{
			name:   "two numeric fields are compound not date",
			header: "3/21",
			want:   Classification{Kind: KindCompound, Name: "3_21"},
		},

		// Numeric-year headers
		{
			name:   "world bank year header",
			header: "1960 [YR1960]",
			want:   Classification{Kind: KindYear, Name: "y_1960"},
		},
		{
			name:   "bare year",
			header: "2019",
			want:   Classification{Kind: KindYear, Name: "y_2019"},
		},
		{
			name:   "digits then text",
			header: "2000 estimate",
			want:   Classification{Kind: KindYear, Name: "y_2000"},
		},

		// Plain headers
		{
			name:   "simple word",
			header: "Status",
			want:   Classification{Kind: KindPlain, Name: "status"},
		},
		{
			name:   "lat",
			header: "Lat",
			want:   Classification{Kind: KindPlain, Name: "lat"},
		},
		{
			name:   "plain with spaces",
			header: "Country Name",
			want:   Classification{Kind: KindPlain, Name: "country_name"},
		},
		{
			name:   "plain collapses whitespace runs",
			header: "Country   Code",
			want:   Classification{Kind: KindPlain, Name: "country_code"},
		},

		// Multi-slash boundary: never compound
		{
			name:   "three text fields fall through to plain",
			header: "A/B/C",
			want:   Classification{Kind: KindPlain, Name: "a/b/c"},
		},
		{
			name:   "slash with empty side is plain",
			header: "A/",
			want:   Classification{Kind: KindPlain, Name: "a/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.header, "")
			if err != nil {
				t.Fatalf("Classify(%q) unexpected error: %v", tt.header, err)
			}
			if got != tt.want {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.header, got, tt.want)
			}
		})
	}
}

func TestClassify_Errors(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{
			name:    "empty header",
			header:  "",
			wantErr: ErrMalformedHeader,
		},
		{
			name:    "whitespace only header",
			header:  "   ",
			wantErr: ErrMalformedHeader,
		},
		{
			name:    "numeric fields but impossible date",
			header:  "13/45/20",
			wantErr: ErrDateParse,
		},
		{
			name:    "month zero",
			header:  "0/1/20",
			wantErr: ErrDateParse,
		},
		{
			name:    "year first ordering rejected",
			header:  "2020/3/21",
			wantErr: ErrDateParse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Classify(tt.header, "")
			if err == nil {
				t.Fatalf("Classify(%q) expected error, got nil", tt.header)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Classify(%q) error = %v, want %v", tt.header, err, tt.wantErr)
			}
		})
	}
}

func TestClassify_DateKeyLayouts(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		dateKey string
		want    string
	}{
		{
			name:    "default layout",
			header:  "3/21/20",
			dateKey: "",
			want:    "d_20200321",
		},
		{
			name:    "dashed layout",
			header:  "3/21/20",
			dateKey: "d_2006-01-02",
			want:    "d_2020-03-21",
		},
		{
			name:    "month name layout is lowercased",
			header:  "3/21/20",
			dateKey: "d_Jan_2006",
			want:    "d_mar_2020",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Classify(tt.header, tt.dateKey)
			if err != nil {
				t.Fatalf("Classify(%q, %q) unexpected error: %v", tt.header, tt.dateKey, err)
			}
			if got.Name != tt.want {
				t.Errorf("Classify(%q, %q).Name = %q, want %q", tt.header, tt.dateKey, got.Name, tt.want)
			}
		})
	}
}

// Any M/D/YY header must render to d_ plus exactly eight digits under
// the default layout.
func TestClassify_DateNameShape(t *testing.T) {
	headers := []string{"1/1/20", "12/31/19", "2/29/20", "9/9/99"}

	for _, h := range headers {
		got, err := Classify(h, "")
		if err != nil {
			t.Fatalf("Classify(%q) unexpected error: %v", h, err)
		}
		if len(got.Name) != len("d_20060102") {
			t.Errorf("Classify(%q).Name = %q, want d_ plus 8 digits", h, got.Name)
		}
		if got.Name[:2] != "d_" {
			t.Errorf("Classify(%q).Name = %q, want d_ prefix", h, got.Name)
		}
		for _, r := range got.Name[2:] {
			if r < '0' || r > '9' {
				t.Errorf("Classify(%q).Name = %q, want digits after d_", h, got.Name)
			}
		}
		if !got.CastInt {
			t.Errorf("Classify(%q).CastInt = false, want true", h)
		}
	}
}
