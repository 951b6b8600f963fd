package ui

import (
	"strings"
	"testing"

	"github.com/prodops/declfast/engine"
)

func TestDeclareProgress(t *testing.T) {
	tests := []struct {
		processed  int64
		discovered int64
		expected   float64
	}{
		{0, 0, 0},
		{5, 0, 0},
		{0, 10, 0},
		{5, 10, 0.5},
		{10, 10, 1},
		{15, 10, 1}, // denominator lags while discovery streams
	}

	for _, tt := range tests {
		result := declareProgress(tt.processed, tt.discovered)
		if result != tt.expected {
			t.Errorf("declareProgress(%d, %d) = %v; want %v", tt.processed, tt.discovered, result, tt.expected)
		}
	}
}

func TestModelInitialization(t *testing.T) {
	counters := &engine.Counters{}
	counters.Discovered.Store(100)

	model := NewModel(counters, 4, 10)

	if model.state.Discovered != 100 {
		t.Errorf("Expected Discovered 100, got %d", model.state.Discovered)
	}

	view := model.View()
	if view == "" {
		t.Errorf("View rendered empty string")
	}

	if !strings.Contains(view, "Initializing...") {
		t.Errorf("Expected Initializing view when width is 0")
	}
}

func TestViewShowsCounters(t *testing.T) {
	counters := &engine.Counters{}
	counters.Discovered.Store(7)
	counters.Declared.Store(3)

	model := NewModel(counters, 4, 10)
	model.width = 80
	model.height = 24

	view := model.View()
	if !strings.Contains(view, "Discovered:  7") {
		t.Errorf("View missing discovered count:\n%s", view)
	}
	if !strings.Contains(view, "Declared:    3") {
		t.Errorf("View missing declared count:\n%s", view)
	}
}
