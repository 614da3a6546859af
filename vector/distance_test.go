package vector

import (
	"errors"
	"math"
	"testing"
)

func TestMetricScore(t *testing.T) {
	cases := []struct {
		metric Metric
		a, b   []float32
		want   float64
	}{
		{Cosine, []float32{1, 0}, []float32{0, 1}, 0},
		{Cosine, []float32{1, 0}, []float32{2, 0}, 1},
		{Cosine, []float32{0, 0}, []float32{0, 1}, 0},
		{L2, []float32{0, 0}, []float32{3, 4}, 5},
		{IP, []float32{1, 2}, []float32{3, 4}, 11},
	}
	for _, c := range cases {
		got, err := c.metric.Score(c.a, c.b)
		if err != nil {
			t.Fatalf("%s.Score(%v, %v) failed: %v", c.metric, c.a, c.b, err)
		}
		if math.Abs(got-c.want) > 1e-6 {
			t.Fatalf("%s.Score(%v, %v) = %v, want %v", c.metric, c.a, c.b, got, c.want)
		}
	}
	if _, err := IP.Score([]float32{1}, []float32{1, 2}); !errors.Is(err, ErrQuery) {
		t.Fatalf("dimension mismatch: got %v, want ErrQuery", err)
	}
	if _, err := Metric("HAMMING").Score(nil, nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("unknown metric: got %v, want ErrValidation", err)
	}
}

func TestMetricDistance(t *testing.T) {
	a := []float32{0, 0}
	b := []float32{3, 4}
	if d := L2.Distance(a, b); math.Abs(d-5) > 1e-6 {
		t.Fatalf("L2.Distance = %v, want 5", d)
	}
	if d := IP.Distance([]float32{1, 2}, []float32{3, 4}); d != -11 {
		t.Fatalf("IP.Distance = %v, want -11", d)
	}
	if d := Cosine.Distance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-6 {
		t.Fatalf("Cosine.Distance(identical) = %v, want 0", d)
	}
	if d := Cosine.Distance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-6 {
		t.Fatalf("Cosine.Distance(orthogonal) = %v, want 1", d)
	}
	if d := Cosine.Distance([]float32{0, 0}, []float32{0, 1}); d != 1 {
		t.Fatalf("Cosine.Distance(zero) = %v, want 1", d)
	}
}

func TestMetricToDistance(t *testing.T) {
	if d := Cosine.ToDistance(0.75); d != 0.25 {
		t.Fatalf("Cosine.ToDistance(0.75) = %v, want 0.25", d)
	}
	if d := IP.ToDistance(2); d != -2 {
		t.Fatalf("IP.ToDistance(2) = %v, want -2", d)
	}
	if d := L2.ToDistance(2); d != 2 {
		t.Fatalf("L2.ToDistance(2) = %v, want 2", d)
	}
	if !Cosine.HigherIsBetter() || L2.HigherIsBetter() {
		t.Fatalf("HigherIsBetter mismatch")
	}
}

func TestParseMetric(t *testing.T) {
	for in, want := range map[string]Metric{"l2": L2, "InnerProduct": IP, "cosine": Cosine, " IP ": IP} {
		got, err := ParseMetric(in)
		if err != nil || got != want {
			t.Fatalf("ParseMetric(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseMetric("hamming"); err == nil {
		t.Fatalf("expected error for unsupported metric")
	}
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 1}
	b := []float32{1, 0}
	want := 1 - 1/math.Sqrt2
	if d := Cosine.Distance(a, b); math.Abs(d-want) > 1e-6 {
		t.Fatalf("Cosine.Distance(%v, %v) = %v, want %v", a, b, d, want)
	}
	if d := Cosine.Distance([]float32{2, 0}, []float32{-3, 0}); math.Abs(d-2) > 1e-6 {
		t.Fatalf("Cosine.Distance(opposite) = %v, want 2", d)
	}
	sim, err := Cosine.Score(a, b)
	if err != nil {
		t.Fatalf("Cosine.Score failed: %v", err)
	}
	if math.Abs(sim-1/math.Sqrt2) > 1e-6 {
		t.Fatalf("Cosine.Score = %v, want %v", sim, 1/math.Sqrt2)
	}
	if got := Cosine.ToDistance(sim); math.Abs(got-want) > 1e-6 {
		t.Fatalf("Cosine.ToDistance(Score) = %v, want Distance %v", got, want)
	}
}
