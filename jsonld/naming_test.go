package jsonld

import "testing"

func TestCamelToSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"startTime", "start_time"},
		{"preferredUsername", "preferred_username"},
		{"publicKeyPem", "public_key_pem"},
		{"name", "name"},
		{"goalAmount", "goal_amount"},
	}

	for _, tt := range tests {
		if got := CamelToSnake(tt.in); got != tt.want {
			t.Errorf("CamelToSnake(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSnakeToCamel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"start_time", "startTime"},
		{"preferred_username", "preferredUsername"},
		{"public_key_pem", "publicKeyPem"},
		{"name", "name"},
	}

	for _, tt := range tests {
		if got := SnakeToCamel(tt.in); got != tt.want {
			t.Errorf("SnakeToCamel(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNameTransformBijection(t *testing.T) {
	names := []string{
		"startTime", "endTime", "preferredUsername", "publicKeyPem",
		"adoptionMode", "goalAmount", "slotSeq", "attributedTo",
		"name", "summary", "inbox", "zipcode",
	}

	for _, n := range names {
		if got := SnakeToCamel(CamelToSnake(n)); got != n {
			t.Errorf("Round trip of %q produced %q", n, got)
		}
	}
}

func TestWireToInternalDeep(t *testing.T) {
	doc := map[string]interface{}{
		"@context":  "https://www.w3.org/ns/activitystreams",
		"@type":     "Follow",
		"startTime": "2026-04-01T10:00:00Z",
		"object": map[string]interface{}{
			"publicKeyPem": "pem",
			"items":        []interface{}{map[string]interface{}{"slotSeq": 1}},
		},
	}

	out := WireToInternal(doc)

	if _, ok := out["@context"]; !ok {
		t.Error("@context must pass through untouched")
	}
	if _, ok := out["start_time"]; !ok {
		t.Error("startTime should become start_time")
	}
	inner, ok := out["object"].(map[string]interface{})
	if !ok {
		t.Fatal("object should remain a map")
	}
	if _, ok := inner["public_key_pem"]; !ok {
		t.Error("Nested publicKeyPem should become public_key_pem")
	}
	items, ok := inner["items"].([]interface{})
	if !ok || len(items) != 1 {
		t.Fatal("items should remain a one-element slice")
	}
	if _, ok := items[0].(map[string]interface{})["slot_seq"]; !ok {
		t.Error("slotSeq inside a list element should become slot_seq")
	}
}

func TestWireInternalRoundTrip(t *testing.T) {
	doc := map[string]interface{}{
		"@type":        "GoodDeed",
		"startTime":    "2026-04-01T10:00:00Z",
		"goalAmount":   float64(500),
		"adoptionMode": "manual",
	}

	back := InternalToWire(WireToInternal(doc))

	for k := range doc {
		if _, ok := back[k]; !ok {
			t.Errorf("Field %q lost in round trip", k)
		}
	}
}
