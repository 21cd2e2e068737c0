package bulkudp

import (
	"testing"
)

func TestWithNewBufferCap(t *testing.T) {
	p := NewEncoderPool(nil)
	if p.NewBufferCap != defaultNewBufferCap {
		t.Fatalf("expected NewBufferCap default to be: %d, got: %d", defaultNewBufferCap, p.NewBufferCap)
	}

	cap := 16 << 10
	p = NewEncoderPool(&EncoderOptions{NewBufferCap: cap})
	if p.NewBufferCap != cap {
		t.Fatalf("expected NewBufferCap to be: %d, got: %d`", cap, p.NewBufferCap)
	}
}

func TestWithMaxBufferCap(t *testing.T) {
	p := NewEncoderPool(nil)
	if p.MaxBufferCap != defaultMaxBufferCap {
		t.Fatalf("expected MaxBufferCap default to be: %d, got: %d", defaultMaxBufferCap, p.MaxBufferCap)
	}

	cap := 128 << 10
	p = NewEncoderPool(&EncoderOptions{MaxBufferCap: cap})
	if p.MaxBufferCap != cap {
		t.Fatalf("expected MaxBufferCap to be: %d, got: %d`", cap, p.MaxBufferCap)
	}
}

func TestEncoderOptions_resolve(t *testing.T) {
	tests := []struct {
		name      string
		input     EncoderOptions
		expectNew int
		expectMax int
	}{
		{"zero values get defaults", EncoderOptions{}, defaultNewBufferCap, defaultMaxBufferCap},
		{"tiny NewBufferCap raised to the minimum", EncoderOptions{NewBufferCap: 8}, minBufferCap, defaultMaxBufferCap},
		{"MaxBufferCap raised to NewBufferCap", EncoderOptions{NewBufferCap: 4096, MaxBufferCap: 1024}, 4096, 4096},
	}
	for i := 0; i < len(tests); i++ {
		tt := tests[i]
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.input
			opts.resolve()
			if opts.NewBufferCap != tt.expectNew {
				t.Errorf("failed: %s, expected NewBufferCap: %d, got: %d", tt.name, tt.expectNew, opts.NewBufferCap)
			}
			if opts.MaxBufferCap != tt.expectMax {
				t.Errorf("failed: %s, expected MaxBufferCap: %d, got: %d", tt.name, tt.expectMax, opts.MaxBufferCap)
			}
		})
	}
}
