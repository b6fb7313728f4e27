package pubsub

import (
	"encoding/json"
	"testing"
)

func TestChangeJSONShape(t *testing.T) {
	data, err := json.Marshal(Change{CellID: "A1", Value: "10"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["cellId"] != "A1" || decoded["value"] != "10" {
		t.Errorf("unexpected decoded shape: %v", decoded)
	}
	if _, hasError := decoded["error"]; hasError {
		t.Errorf("empty Error should be omitted, got %v", decoded)
	}
	if decoded["isError"] != false {
		t.Errorf("isError should default to false, got %v", decoded["isError"])
	}
}

func TestChangeJSONErrorShape(t *testing.T) {
	data, err := json.Marshal(Change{CellID: "B1", IsError: true, Error: "boom"})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if decoded["isError"] != true || decoded["error"] != "boom" {
		t.Errorf("unexpected decoded shape: %v", decoded)
	}
	if _, hasValue := decoded["value"]; hasValue {
		t.Errorf("empty Value should be omitted, got %v", decoded)
	}
}
