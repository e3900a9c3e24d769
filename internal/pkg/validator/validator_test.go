package validator

import (
	"testing"
	"time"
)

func TestIsEmpty(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"", true},
		{"   ", true},
		{"abc", false},
		{" abc ", false},
	}
	for _, c := range cases {
		got := IsEmpty(c.input)
		if got != c.want {
			t.Errorf("IsEmpty(%q) = %v, want %v", c.input, got, c.want)
		}
	}
}

func TestIsValidDate(t *testing.T) {
	valid := []string{"2025-03-04", "2024-02-29"}
	invalid := []string{"2025-02-29", "04-03-2025", "2025/03/04", ""}
	for _, d := range valid {
		if _, ok := IsValidDate(d); !ok {
			t.Errorf("IsValidDate(%q) = false, want true", d)
		}
	}
	for _, d := range invalid {
		if _, ok := IsValidDate(d); ok {
			t.Errorf("IsValidDate(%q) = true, want false", d)
		}
	}

	got, _ := IsValidDate("2025-03-04")
	if want := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("IsValidDate returned %v, want %v", got, want)
	}
}

func TestIsValidDateTime(t *testing.T) {
	cases := []struct {
		input string
		want  bool
	}{
		{"2025-03-04T09:00:00Z", true},
		{"2025-03-04T16:00:00+07:00", true},
		{"2025-03-04T09:00:00.123456Z", true},
		{"2025-03-04 09:00:00", false},
		{"2025-03-04", false},
	}
	for _, c := range cases {
		_, ok := IsValidDateTime(c.input)
		if ok != c.want {
			t.Errorf("IsValidDateTime(%q) = %v, want %v", c.input, ok, c.want)
		}
	}

	local, _ := IsValidDateTime("2025-03-04T16:00:00+07:00")
	if want := time.Date(2025, 3, 4, 9, 0, 0, 0, time.UTC); !local.Equal(want) {
		t.Errorf("IsValidDateTime offset: got %v, want %v", local.UTC(), want)
	}
}

func TestIsInSlice(t *testing.T) {
	slice := []string{"in", "out", "break_start"}
	if !IsInSlice("out", slice) {
		t.Error("IsInSlice(out) = false, want true")
	}
	if IsInSlice("break_end", slice) {
		t.Error("IsInSlice(break_end) = true, want false")
	}
	if IsInSlice("", nil) {
		t.Error("IsInSlice on nil slice = true, want false")
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{
		{Field: "type", Message: "type is required"},
		{Field: "date", Message: "date must be in YYYY-MM-DD format"},
	}

	if got, want := errs.Error(), "type: type is required; date: date must be in YYYY-MM-DD format"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	m := errs.ToMap()
	if len(m) != 2 || m["type"] != "type is required" {
		t.Errorf("ToMap() = %v", m)
	}
}
