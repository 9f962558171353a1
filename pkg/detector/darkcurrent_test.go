package detector

import (
	"errors"
	"math"
	"testing"
)

func TestDarkCurrent(t *testing.T) {
	tests := []struct {
		serial  int
		a, b, c float64
	}{
		{9914, 24.66, 0.0015, 0.29},
		{9915, 35.26, 0.0019, 0.31},
		{9916, 9.67, 0.0012, 0.25},
		{9917, 5.92, 0.0005, 0.18},
	}

	for _, tt := range tests {
		for _, temp := range []float64{0, -30, -60, -70} {
			got, err := DarkCurrent(tt.serial, temp)
			if err != nil {
				t.Fatalf("DarkCurrent(%d, %v): %v", tt.serial, temp, err)
			}
			want := tt.a * math.Exp(tt.b*temp*temp+tt.c*temp)
			if math.Abs(got-want) > 1e-15*math.Max(1, want) {
				t.Errorf("DarkCurrent(%d, %v) = %v, want %v", tt.serial, temp, got, want)
			}
		}
	}
}

func TestDarkCurrentReference(t *testing.T) {
	got, err := DarkCurrent(9917, -60)
	if err != nil {
		t.Fatal(err)
	}
	want := 5.92 * math.Exp(0.0005*3600+0.18*(-60))
	if math.Abs(got-want) > 1e-12*want {
		t.Errorf("DarkCurrent(9917, -60) = %v, want %v", got, want)
	}
}

func TestDarkCurrentColderIsLower(t *testing.T) {
	for _, sn := range KnownSerialNumbers() {
		warm, _ := DarkCurrent(sn, -30)
		cold, _ := DarkCurrent(sn, -70)
		if !(cold < warm) {
			t.Errorf("SN%d: dark current at -70C (%v) not below -30C (%v)", sn, cold, warm)
		}
	}
}

func TestDarkCurrentUnknownSerial(t *testing.T) {
	_, err := DarkCurrent(1234, -60)
	if !errors.Is(err, ErrUnknownSerial) {
		t.Errorf("DarkCurrent(1234) err = %v, want ErrUnknownSerial", err)
	}
}

func TestKnownSerialNumbers(t *testing.T) {
	got := KnownSerialNumbers()
	want := []int{9914, 9915, 9916, 9917}
	if len(got) != len(want) {
		t.Fatalf("KnownSerialNumbers() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("KnownSerialNumbers()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
