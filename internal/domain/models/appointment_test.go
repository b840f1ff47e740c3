package models

import (
	"testing"
	"time"
)

func TestAppointment_Overlaps(t *testing.T) {
	base := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	a := Appointment{StartsAt: base, EndsAt: base.Add(30 * time.Minute)}

	tests := []struct {
		name       string
		start, end time.Time
		want       bool
	}{
		{"same interval", base, base.Add(30 * time.Minute), true},
		{"starts inside", base.Add(15 * time.Minute), base.Add(45 * time.Minute), true},
		{"contains", base.Add(-time.Hour), base.Add(time.Hour), true},
		{"ends at start", base.Add(-30 * time.Minute), base, false},
		{"starts at end", base.Add(30 * time.Minute), base.Add(time.Hour), false},
		{"far before", base.Add(-2 * time.Hour), base.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Overlaps(tt.start, tt.end); got != tt.want {
				t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.start, tt.end, got, tt.want)
			}
		})
	}
}

func TestAppointment_Duration(t *testing.T) {
	base := time.Date(2026, 10, 15, 10, 0, 0, 0, time.UTC)
	a := Appointment{StartsAt: base, EndsAt: base.Add(45 * time.Minute)}
	if a.Duration() != 45*time.Minute {
		t.Errorf("Duration() = %v, want 45m", a.Duration())
	}
}

func TestIsStaffRole(t *testing.T) {
	if IsStaffRole(RoleClient) {
		t.Error("client should not be staff")
	}
	if !IsStaffRole(RoleBarber) || !IsStaffRole(RoleAdmin) {
		t.Error("barber and admin should be staff")
	}
}
