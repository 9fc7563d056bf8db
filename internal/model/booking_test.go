package model

import (
	"testing"
	"time"
)

func day(s string) Date {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func clock(h, m int) *Clock {
	c := time.Duration(h)*time.Hour + time.Duration(m)*time.Minute
	return &c
}

func timed(res, from, to string, sh, sm, eh, em int) Booking {
	return Booking{ResourceID: res, StartDate: day(from), EndDate: day(to), StartTime: clock(sh, sm), EndTime: clock(eh, em)}
}

func whole(res, from, to string) Booking {
	return Booking{ResourceID: res, StartDate: day(from), EndDate: day(to)}
}

func TestBookingOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Booking
		want bool
	}{
		{"same window", timed("r", "2026-01-02", "2026-01-02", 9, 0, 10, 0), timed("r", "2026-01-02", "2026-01-02", 9, 0, 10, 0), true},
		{"partial overlap", timed("r", "2026-01-02", "2026-01-02", 9, 0, 10, 0), timed("r", "2026-01-02", "2026-01-02", 9, 30, 10, 30), true},
		{"contained", timed("r", "2026-01-02", "2026-01-02", 9, 0, 17, 0), timed("r", "2026-01-02", "2026-01-02", 12, 0, 13, 0), true},
		{"back to back", timed("r", "2026-01-02", "2026-01-02", 9, 0, 10, 0), timed("r", "2026-01-02", "2026-01-02", 10, 0, 11, 0), false},
		{"different day", timed("r", "2026-01-02", "2026-01-02", 9, 0, 10, 0), timed("r", "2026-01-03", "2026-01-03", 9, 0, 10, 0), false},
		{"different resource", timed("r", "2026-01-02", "2026-01-02", 9, 0, 10, 0), timed("s", "2026-01-02", "2026-01-02", 9, 0, 10, 0), false},
		{"date ranges touch", whole("r", "2026-01-02", "2026-01-05"), whole("r", "2026-01-05", "2026-01-07"), true},
		{"date ranges apart", whole("r", "2026-01-02", "2026-01-04"), whole("r", "2026-01-05", "2026-01-07"), false},
		{"whole day vs timed", whole("r", "2026-01-02", "2026-01-02"), timed("r", "2026-01-02", "2026-01-02", 15, 0, 16, 0), true},
		{"multi day windows disjoint", timed("r", "2026-01-02", "2026-01-06", 9, 0, 12, 0), timed("r", "2026-01-04", "2026-01-04", 13, 0, 14, 0), false},
		{"multi day windows overlap", timed("r", "2026-01-02", "2026-01-06", 9, 0, 12, 0), timed("r", "2026-01-04", "2026-01-04", 11, 0, 14, 0), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Overlaps(tt.b); got != tt.want {
				t.Errorf("a.Overlaps(b) = %v, want %v", got, tt.want)
			}
			if got := tt.b.Overlaps(tt.a); got != tt.want {
				t.Errorf("b.Overlaps(a) = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBookingStatusActive(t *testing.T) {
	for s, want := range map[BookingStatus]bool{
		BookingPending: true, BookingConfirmed: true, BookingRejected: false, BookingCancelled: false,
	} {
		if s.Active() != want {
			t.Errorf("%s.Active() = %v, want %v", s, s.Active(), want)
		}
	}
}

func TestFormatCode(t *testing.T) {
	tests := []struct {
		kind Kind
		n    uint64
		want string
	}{
		{KindParkingSlot, 7, "PKG-0007"},
		{KindDesk, 1, "DSK-0001"},
		{KindConferenceRoom, 120, "CNF-0120"},
		{KindCafeteriaTable, 9999, "TBL-9999"},
		{KindCafeteriaTable, 10000, "TBL-10000"},
	}
	for _, tt := range tests {
		if got := FormatCode(tt.kind, tt.n); got != tt.want {
			t.Errorf("FormatCode(%s, %d) = %q, want %q", tt.kind, tt.n, got, tt.want)
		}
	}
}

func TestPrincipalValidate(t *testing.T) {
	tests := []struct {
		name string
		p    Principal
		want error
	}{
		{"employee", Principal{UserID: "1", Role: RoleEmployee}, nil},
		{"manager with type", Principal{UserID: "1", Role: RoleManager, ManagerType: ManagerParking}, nil},
		{"manager without type", Principal{UserID: "1", Role: RoleManager}, ErrManagerTypeRequired},
		{"manager with bad type", Principal{UserID: "1", Role: RoleManager, ManagerType: "hr"}, ErrUnknownManagerType},
		{"admin with type", Principal{UserID: "1", Role: RoleAdmin, ManagerType: ManagerParking}, ErrManagerTypeForbidden},
		{"unknown role", Principal{UserID: "1", Role: "root"}, ErrUnknownRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.p.Validate(); got != tt.want {
				t.Errorf("Validate() = %v, want %v", got, tt.want)
			}
		})
	}
}
