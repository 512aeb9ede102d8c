package mixer

import (
	"testing"

	"github.com/go-mcm/mcm/internal/rangecoder"
)

func TestMixerLearnsConstantBit(t *testing.T) {
	m := New(3)
	in := []int32{rangecoder.Stretch(2048), rangecoder.Stretch(3000), rangecoder.Stretch(1000)}
	var p int32
	for i := 0; i < 2000; i++ {
		_, p = m.PredictProb(in)
		m.Update(1, p, in)
	}
	if p < 3500 {
		t.Fatalf("after training on all-1 bits, p=%d should be high", p)
	}
}

func TestMixerSetContextIsolatesWeights(t *testing.T) {
	s := NewSet(2, 2)
	in := []int32{500, -500}
	s.SetContext(0)
	for i := 0; i < 500; i++ {
		_, p := s.Current().PredictProb(in)
		s.Current().Update(1, p, in)
	}
	s.SetContext(1)
	_, p1 := s.Current().PredictProb(in)
	s.SetContext(0)
	_, p0 := s.Current().PredictProb(in)
	if p0 == p1 {
		t.Fatalf("training context 0 should not affect context 1's prediction identically: p0=%d p1=%d", p0, p1)
	}
}

func TestSSERefineBounds(t *testing.T) {
	s := NewSSE(4)
	for ctx := 0; ctx < 4; ctx++ {
		for p := int32(1); p < 4095; p += 37 {
			out := s.Refine(p, ctx)
			if out < 1 || out > 4095 {
				t.Fatalf("Refine(%d,%d)=%d out of bounds", p, ctx, out)
			}
			s.Update(1)
		}
	}
}

func TestSSEApproximatesIdentityBeforeTraining(t *testing.T) {
	s := NewSSE(1)
	for _, p := range []int32{100, 2048, 4000} {
		out := s.Refine(p, 0)
		diff := out - p
		if diff < -80 || diff > 80 {
			t.Fatalf("fresh SSE should approximate identity: Refine(%d)=%d", p, out)
		}
	}
}
