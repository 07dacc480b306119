package dispatcher

import (
	"reflect"
	"testing"

	"elevsys/floor"
	"elevsys/wire"
)

func mustFloors(t *testing.T, ss ...string) []floor.Floor {
	t.Helper()
	out := make([]floor.Floor, len(ss))
	for i, s := range ss {
		f, err := floor.Parse(s)
		if err != nil {
			t.Fatalf("floor.Parse(%q): %v", s, err)
		}
		out[i] = f
	}
	return out
}

func TestThreeCarDispatch(t *testing.T) {
	r := NewRegistry(10, 20)
	register := func(name, lo, hi string) {
		bounds := mustFloors(t, lo, hi)
		if err := r.Register(name, bounds[0], bounds[1], nil); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
		r.UpdateStatus(name, bounds[0], wire.Closed)
	}
	register("Alpha", "1", "4")
	register("Beta", "B3", "1")
	register("Gamma", "2", "5")

	check := func(srcS, dstS, wantCar string, wantHead string) {
		t.Helper()
		src, dst := mustFloors(t, srcS)[0], mustFloors(t, dstS)[0]
		name, changed, head, ok := r.Schedule(src, dst)
		if wantCar == "" {
			if ok {
				t.Errorf("CALL %s %s: got CAR %s, want UNAVAILABLE", srcS, dstS, name)
			}
			return
		}
		if !ok || name != wantCar {
			t.Fatalf("CALL %s %s: got (%s,%v), want CAR %s", srcS, dstS, name, ok, wantCar)
		}
		if !changed {
			t.Fatalf("CALL %s %s: expected queue head to change", srcS, dstS)
		}
		wantHeadF := mustFloors(t, wantHead)[0]
		if head != wantHeadF {
			t.Fatalf("CALL %s %s: head = %v, want %v", srcS, dstS, head, wantHeadF)
		}
	}

	check("1", "3", "Alpha", "1")
	check("1", "B2", "Beta", "1")
	check("3", "5", "Gamma", "3")
	check("1", "5", "", "")
	check("B3", "3", "", "")
}

func TestQueueInsertionPreservesDirection(t *testing.T) {
	r := NewRegistry(10, 20)
	if err := r.Register("Car", floor.Floor(-99), floor.Floor(999), nil); err != nil {
		t.Fatalf("Register: %v", err)
	}
	r.UpdateStatus("Car", floor.Floor(1), wire.Between)
	e := r.cars["Car"]
	e.Queue = mustFloors(t, "3", "7")

	src, dst := mustFloors(t, "5")[0], mustFloors(t, "6")[0]
	name, changed, head, ok := r.Schedule(src, dst)
	if !ok || name != "Car" || !changed || head != floor.Floor(3) {
		t.Fatalf("Schedule(5,6) = (%s,%v,%v,%v)", name, changed, head, ok)
	}
	want := mustFloors(t, "3", "5", "6", "7")
	if got := r.cars["Car"].Queue; !reflect.DeepEqual(got, want) {
		t.Fatalf("queue = %v, want %v", got, want)
	}

	src, dst = mustFloors(t, "8")[0], mustFloors(t, "2")[0]
	_, _, _, ok = r.Schedule(src, dst)
	if !ok {
		t.Fatalf("Schedule(8,2) should succeed")
	}
	want = mustFloors(t, "3", "5", "6", "7", "8", "2")
	if got := r.cars["Car"].Queue; !reflect.DeepEqual(got, want) {
		t.Fatalf("queue = %v, want %v", got, want)
	}
}
