package provider

import "testing"

func TestParamFloatAcceptsIntAndFloat(t *testing.T) {
	params := map[string]any{"temperature": int64(1), "top_p": 0.9}
	if v, ok := paramFloat(params, "temperature"); !ok || v != 1 {
		t.Fatalf("got %v, %v", v, ok)
	}
	if v, ok := paramFloat(params, "top_p"); !ok || v != 0.9 {
		t.Fatalf("got %v, %v", v, ok)
	}
	if _, ok := paramFloat(params, "missing"); ok {
		t.Fatal("expected missing key to report false")
	}
}

func TestParamIntAcceptsFloatAndInt(t *testing.T) {
	params := map[string]any{"max_tokens": float64(2048)}
	if v, ok := paramInt(params, "max_tokens"); !ok || v != 2048 {
		t.Fatalf("got %v, %v", v, ok)
	}
}
