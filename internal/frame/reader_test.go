package frame

import (
	"bytes"
	"io"
	"testing"
	"testing/iotest"
)

func TestBOMSkippingReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "input with BOM",
			input: append([]byte{0xEF, 0xBB, 0xBF}, []byte("hello,world")...),
			want:  "hello,world",
		},
		{
			name:  "input without BOM",
			input: []byte("hello,world"),
			want:  "hello,world",
		},
		{
			name:  "empty input",
			input: []byte{},
			want:  "",
		},
		{
			name:  "only BOM",
			input: []byte{0xEF, 0xBB, 0xBF},
			want:  "",
		},
		{
			name:  "partial BOM preserved",
			input: []byte{0xEF, 0xBB, 'a', 'b', 'c'},
			want:  string([]byte{0xEF, 0xBB, 'a', 'b', 'c'}),
		},
		{
			name:  "input shorter than BOM",
			input: []byte{'a', 'b'},
			want:  "ab",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewBOMSkippingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", string(got), tt.want)
			}
		})
	}
}

func TestUTF8SanitizingReader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "valid ASCII",
			input: []byte("hello,world"),
			want:  "hello,world",
		},
		{
			name:  "valid multibyte",
			input: []byte("café"),
			want:  "café",
		},
		{
			name:  "invalid byte replaced",
			input: []byte{'h', 'e', 0x80, 'l', 'o'},
			want:  "he�lo",
		},
		{
			name:  "truncated sequence at end replaced",
			input: []byte{'a', 0xC3},
			want:  "a�",
		},
		{
			name:  "empty input",
			input: []byte{},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := io.ReadAll(NewUTF8SanitizingReader(bytes.NewReader(tt.input)))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", string(got), tt.want)
			}
		})
	}
}

// A multi-byte rune split across underlying reads must survive intact.
// OneByteReader forces the worst-case split on every boundary.
func TestUTF8SanitizingReader_SplitRune(t *testing.T) {
	input := "aéb世c"
	r := NewUTF8SanitizingReader(iotest.OneByteReader(bytes.NewReader([]byte(input))))

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != input {
		t.Errorf("got %q, want %q", string(got), input)
	}
}

func TestWrapReader(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte{'h', 'e', 0x80, 'l', 'o'}...)

	got, err := io.ReadAll(WrapReader(bytes.NewReader(input)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "he�lo"
	if string(got) != want {
		t.Errorf("got %q, want %q", string(got), want)
	}
}
