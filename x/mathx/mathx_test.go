package mathx

import "testing"

func TestClamp(t *testing.T) {
	if Clamp(5, 0, 3) != 3 || Clamp(-1, 0, 3) != 0 || Clamp(2, 0, 3) != 2 {
		t.Fatal("clamp")
	}
	if Clamp(5, 3, 0) != 3 {
		t.Fatal("swapped bounds")
	}
	if Clamp(int64(1)<<40, 0, 10_000_000) != 10_000_000 {
		t.Fatal("int64")
	}
}

func TestBetween(t *testing.T) {
	if !Between(0, 0, 10) || !Between(10, 10, 0) || Between(11, 0, 10) || Between(-1, 0, 10) {
		t.Fatal("between")
	}
}
