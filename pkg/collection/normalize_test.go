package collection

import (
	"math"
	"testing"
)

func TestParseClass(t *testing.T) {
	tests := []struct {
		kind string
		want Class
	}{
		{"counter", ClassCounter},
		{"Counter", ClassCounter},
		{"COUNTER", ClassCounter},
		{"counter64", ClassCounter},
		{"gauge", ClassGauge},
		{"Gauge32", ClassGauge},
		{"string", ClassOther},
		{"", ClassOther},
		{"count", ClassOther},
		{" counter", ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			if got := ParseClass(tt.kind); got != tt.want {
				t.Errorf("ParseClass(%q) = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		class   Class
		want    string
		outcome Outcome
	}{
		{"gauge trailing zero", "12.50", ClassGauge, "12.5", OutcomeParsed},
		{"gauge integer", "42", ClassGauge, "42", OutcomeParsed},
		{"gauge negative", "-7.25", ClassGauge, "-7.25", OutcomeParsed},
		{"gauge scientific", "1.5e3", ClassGauge, "1500", OutcomeParsed},
		{"gauge negative zero", "-0", ClassGauge, "0", OutcomeParsed},
		{"gauge tiny", "1e-9", ClassGauge, "1e-09", OutcomeParsed},
		{"gauge huge", "2.5E22", ClassGauge, "2.5e+22", OutcomeParsed},
		{"gauge leading plus", "+3", ClassGauge, "3", OutcomeParsed},
		{"other formats like gauge", "3.10", ClassOther, "3.1", OutcomeParsed},
		{"counter truncates", "42.9", ClassCounter, "42", OutcomeParsed},
		{"counter truncates toward zero", "-3.9", ClassCounter, "-3", OutcomeParsed},
		{"counter scientific", "1.5e3", ClassCounter, "1500", OutcomeParsed},
		{"counter exact beyond float precision", "9007199254740993", ClassCounter, "9007199254740993", OutcomeParsed},
		{"counter saturates", "1e30", ClassCounter, "9223372036854775807", OutcomeParsed},
		{"counter saturates negative", "-1e30", ClassCounter, "-9223372036854775808", OutcomeParsed},
		{"unit suffix", "23.5 Mbps", ClassGauge, "23.5", OutcomeRecovered},
		{"percent", "87%", ClassGauge, "87", OutcomeRecovered},
		{"unit suffix counter", "1024.7 bytes", ClassCounter, "1024", OutcomeRecovered},
		{"surrounding spaces", " 12 ", ClassGauge, "12", OutcomeRecovered},
		{"trailing plus", "12+", ClassGauge, "12", OutcomeRecovered},
		{"dangling exponent", "7e", ClassCounter, "7", OutcomeRecovered},
		{"dangling exponent fraction", "1.5e", ClassGauge, "1.5", OutcomeRecovered},
		{"plus before minus", "+-5", ClassGauge, "-5", OutcomeRecovered},
		{"plus before minus counter", "+-5", ClassCounter, "-5", OutcomeRecovered},
		{"not available", "n/a", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"empty", "", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"empty counter", "", ClassCounter, SentinelUnknown, OutcomeUnknown},
		{"unit only", "Mbps", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"multiple decimal points", "1.2.3 V", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"embedded minus", "12-34", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"double minus", "--5", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"thousands separator", "1,234", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"thousands separator with unit", "1,234,567 pkts", ClassCounter, SentinelUnknown, OutcomeUnknown},
		{"nan", "NaN", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"infinity", "Infinity", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"hex float", "0x1p-2", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"lone minus", "-", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"lone dot", ".", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"overflow", "1e400", ClassGauge, SentinelUnknown, OutcomeUnknown},
		{"overflow counter", "-1e400", ClassCounter, SentinelUnknown, OutcomeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, outcome := Normalize(tt.raw, tt.class)
			if got := v.String(); got != tt.want {
				t.Errorf("Normalize(%q, %v) = %q, want %q", tt.raw, tt.class, got, tt.want)
			}
			if outcome != tt.outcome {
				t.Errorf("Normalize(%q, %v) outcome = %v, want %v", tt.raw, tt.class, outcome, tt.outcome)
			}
			if v.Known() == (tt.want == SentinelUnknown) {
				t.Errorf("Known() = %v for %q", v.Known(), v.String())
			}
		})
	}
}

func TestValue_Accessors(t *testing.T) {
	v, _ := Normalize("42.9", ClassCounter)
	if i, ok := v.Int64(); !ok || i != 42 {
		t.Errorf("Int64() = %d, %v; want 42, true", i, ok)
	}
	if f, ok := v.Float64(); !ok || f != 42 {
		t.Errorf("Float64() = %v, %v; want 42, true", f, ok)
	}

	g, _ := Normalize("-3.75", ClassGauge)
	if f, ok := g.Float64(); !ok || f != -3.75 {
		t.Errorf("Float64() = %v, %v; want -3.75, true", f, ok)
	}
	if i, ok := g.Int64(); !ok || i != -3 {
		t.Errorf("Int64() = %d, %v; want -3, true", i, ok)
	}

	var zero Value
	if zero.Known() {
		t.Error("zero Value should be unknown")
	}
	if _, ok := zero.Float64(); ok {
		t.Error("Float64() on unknown value reported ok")
	}
	if zero.String() != SentinelUnknown {
		t.Errorf("zero Value String() = %q, want %q", zero.String(), SentinelUnknown)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{0.99, 0},
		{-0.99, 0},
		{1e19, math.MaxInt64},
		{-1e19, math.MinInt64},
		{123456.7, 123456},
	}
	for _, tt := range tests {
		if got := truncate(tt.in); got != tt.want {
			t.Errorf("truncate(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func FuzzNormalize(f *testing.F) {
	for _, seed := range []string{"", "n/a", "23.5 Mbps", "1,234", "12-34", "-3.9", "1e308", "\xff\xfe"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, raw string) {
		for _, class := range []Class{ClassCounter, ClassGauge, ClassOther} {
			v, outcome := Normalize(raw, class)
			s := v.String()
			if s == "" {
				t.Fatalf("Normalize(%q) returned empty string", raw)
			}
			if (outcome == OutcomeUnknown) != (s == SentinelUnknown) {
				t.Fatalf("Normalize(%q) outcome %v inconsistent with %q", raw, outcome, s)
			}
		}
	})
}
