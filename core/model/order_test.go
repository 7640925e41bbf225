package model

import (
	"encoding/json"
	"testing"
)

func TestParseTimeOfDay(t *testing.T) {
	ok := map[string]TimeOfDay{
		"09:30":                NewTimeOfDay(9, 30),
		"00:00":                0,
		"23:59":                NewTimeOfDay(23, 59),
		"7:05":                 NewTimeOfDay(7, 5),
		"2024-01-02T14:45:00Z": NewTimeOfDay(14, 45),
	}
	for in, want := range ok {
		got, err := ParseTimeOfDay(in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q): %v", in, err)
		}
		if got != want {
			t.Errorf("ParseTimeOfDay(%q) = %v, want %v", in, got, want)
		}
	}
	for _, in := range []string{"", "24:00", "12:60", "ab:cd", "12"} {
		if _, err := ParseTimeOfDay(in); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestOrderJSON(t *testing.T) {
	var o Order
	if err := json.Unmarshal([]byte(`{"order_id":"O1","value_rs":1200,"route_id":4,"delivery_time":"11:15"}`), &o); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if o.RouteID == nil || *o.RouteID != 4 {
		t.Fatalf("route id not decoded: %#v", o.RouteID)
	}
	if o.DeliveryTime.String() != "11:15" {
		t.Fatalf("delivery time = %s", o.DeliveryTime)
	}

	var noRoute Order
	if err := json.Unmarshal([]byte(`{"order_id":"O2","value_rs":10,"route_id":null,"delivery_time":"08:00"}`), &noRoute); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if noRoute.RouteID != nil {
		t.Fatal("expected nil route id")
	}
	b, err := json.Marshal(noRoute)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"order_id":"O2","value_rs":10,"route_id":null,"delivery_time":"08:00"}` {
		t.Fatalf("unexpected json %s", b)
	}
}
