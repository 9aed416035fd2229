package app

import (
	"errors"
	"testing"
	"time"
)

func TestNewOperation(t *testing.T) {
	started := time.Date(2024, 6, 15, 14, 30, 45, 0, time.FixedZone("CEST", 2*3600))
	op := NewOperation("serve", started)

	if op.ID != "20240615T123045Z" {
		t.Errorf("ID = %q, want UTC timestamp", op.ID)
	}
	if op.Name != "serve" {
		t.Errorf("Name = %q, want %q", op.Name, "serve")
	}
	if op.Status != "success" {
		t.Errorf("Status = %q, want %q", op.Status, "success")
	}
	if got := op.Elapsed(started.Add(1500*time.Millisecond + 300*time.Microsecond)); got != 1500*time.Millisecond {
		t.Errorf("Elapsed() = %v, want 1.5s", got)
	}
}

func TestOperation_Track(t *testing.T) {
	tests := []struct {
		name string
		errs []error
		want string
	}{
		{name: "no errors", errs: []error{nil, nil}, want: "success"},
		{name: "one failure", errs: []error{nil, errors.New("boom")}, want: "error"},
		{name: "failure is sticky", errs: []error{errors.New("boom"), nil}, want: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := NewOperation("invoke", time.Now())
			for _, err := range tt.errs {
				if got := op.Track(err); got != err {
					t.Errorf("Track(%v) = %v, want the same error", err, got)
				}
			}
			if op.Status != tt.want {
				t.Errorf("Status = %q, want %q", op.Status, tt.want)
			}
		})
	}
}
