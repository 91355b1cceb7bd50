package util

import (
	"testing"
	"time"
)

func TestFormatValueFactor(t *testing.T) {
	for _, tc := range []struct {
		value float64
		want  string
	}{
		{2.5, "2.500 m"},
		{0.0125, "12.500 mm"},
		{3e-6, "3.000 um"},
		{4.2e3, "4.200e+03 m"},
		{0, "0.000e+00 m"},
	} {
		if got := FormatValueFactor(tc.value, "m"); got != tc.want {
			t.Errorf("FormatValueFactor(%g) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestFormatResidual(t *testing.T) {
	for _, tc := range []struct {
		value float64
		want  string
	}{
		{-1, "       -"},
		{0.0732, "  0.0732"},
		{5.43e-5, "5.43e-05"},
		{1000, "1.00e+03"},
	} {
		if got := FormatResidual(tc.value); got != tc.want {
			t.Errorf("FormatResidual(%g) = %q, want %q", tc.value, got, tc.want)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(1500 * time.Millisecond); got != "1.500 s" {
		t.Errorf("got %q", got)
	}
	if got := FormatDuration(2 * time.Millisecond); got != "2.000 ms" {
		t.Errorf("got %q", got)
	}
	if got := FormatDuration(90 * time.Second); got != "1m30s" {
		t.Errorf("got %q", got)
	}
}
