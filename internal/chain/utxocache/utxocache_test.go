package utxocache

import "testing"

func TestAcceleratorMarkAndQuery(t *testing.T) {
	a := New(1024 * 1024)
	txID := [32]byte{0x01}

	if a.MaybeSpendable(txID, 0) {
		t.Fatal("unmarked pointer must not report spendable")
	}

	a.MarkSpendable(txID, 0)
	if !a.MaybeSpendable(txID, 0) {
		t.Fatal("marked pointer must report spendable")
	}

	a.MarkSpent(txID, 0)
	if a.MaybeSpendable(txID, 0) {
		t.Fatal("spent pointer must no longer report spendable")
	}
}

func TestAcceleratorDistinguishesOutputIndex(t *testing.T) {
	a := New(1024 * 1024)
	txID := [32]byte{0x02}

	a.MarkSpendable(txID, 0)
	if a.MaybeSpendable(txID, 1) {
		t.Fatal("marking output 0 must not affect output 1 of the same transaction")
	}
}

func TestAcceleratorReset(t *testing.T) {
	a := New(1024 * 1024)
	txID := [32]byte{0x03}

	a.MarkSpendable(txID, 0)
	a.Reset()
	if a.MaybeSpendable(txID, 0) {
		t.Fatal("Reset must clear all previously marked pointers")
	}
}
