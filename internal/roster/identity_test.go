package roster

import (
	"errors"
	"slices"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected Identity
	}{
		{
			name:     "reg and name",
			key:      "22157147046_Ramesh Kumar",
			expected: Identity{RegNo: "22157147046", Name: "Ramesh Kumar", Branch: "Unknown", Session: "Unknown"},
		},
		{
			name:     "three segments keep grouping unknown",
			key:      "101_Ramesh_Kumar",
			expected: Identity{RegNo: "101", Name: "Ramesh Kumar", Branch: "Unknown", Session: "Unknown"},
		},
		{
			name:     "grouped key",
			key:      "101_Ramesh_Kumar_ECE_2023-2027",
			expected: Identity{RegNo: "101", Name: "Ramesh Kumar", Branch: "ECE", Session: "2023-2027"},
		},
		{
			name:     "four segments single name",
			key:      "7_Asha_CSE(DS)_2024-2028",
			expected: Identity{RegNo: "7", Name: "Asha", Branch: "CSE(DS)", Session: "2024-2028"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.key)
			if err != nil {
				t.Fatalf("ParseKey(%q) returned error: %v", tt.key, err)
			}
			if got != tt.expected {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestParseKey_Malformed(t *testing.T) {
	for _, key := range []string{"", "101", "_Ramesh", "101_", "101__ECE_2023"} {
		t.Run(key, func(t *testing.T) {
			_, err := ParseKey(key)
			if !errors.Is(err, ErrMalformedKey) {
				t.Errorf("ParseKey(%q) error = %v, want ErrMalformedKey", key, err)
			}
		})
	}
}

func TestIdentity_KeyRoundTrip(t *testing.T) {
	ids := []Identity{
		{RegNo: "101", Name: "Ramesh Kumar", Branch: "ECE", Session: "2023-2027"},
		{RegNo: "102", Name: "Asha", Branch: "Unknown", Session: "Unknown"},
		{RegNo: "103", Name: "Li Wei Chen", Branch: "CSE(AI&ML)", Session: "2025-2029"},
		{RegNo: "104", Name: "Ramesh Kumar", Branch: "Unknown", Session: "Unknown"},
		{RegNo: "105", Name: "Ramesh Kumar Singh", Branch: "Unknown", Session: "Unknown"},
		{RegNo: "106", Name: "Anand Raj Kumar Iyer", Branch: "Unknown", Session: "Unknown"},
		{RegNo: "107", Name: "Ramesh Kumar Singh", Branch: "ECE", Session: "Unknown"},
	}

	for _, id := range ids {
		t.Run(id.Key(), func(t *testing.T) {
			parsed, err := ParseKey(id.Key())
			if err != nil {
				t.Fatalf("ParseKey(%q) returned error: %v", id.Key(), err)
			}
			if parsed != id {
				t.Errorf("round trip = %+v, want %+v", parsed, id)
			}
		})
	}
}

func TestNewIdentity(t *testing.T) {
	id, err := NewIdentity(" 101 ", "Ramesh Kumar", "CSE (Core)", "")
	if err != nil {
		t.Fatalf("NewIdentity returned error: %v", err)
	}
	if id.RegNo != "101" || id.Branch != "CSE(Core)" || id.Session != "Unknown" {
		t.Errorf("unexpected identity %+v", id)
	}
	if id.Key() != "101_Ramesh_Kumar_CSE(Core)_Unknown" {
		t.Errorf("unexpected key %q", id.Key())
	}

	if _, err := NewIdentity("", "Ramesh", "", ""); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("expected ErrMalformedKey for empty reg no, got %v", err)
	}
	if _, err := NewIdentity("1_0", "Ramesh", "", ""); !errors.Is(err, ErrMalformedKey) {
		t.Errorf("expected ErrMalformedKey for underscore in reg no, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	ids := []Identity{
		{RegNo: "2", Name: "B"},
		{RegNo: "10", Name: "A"},
		{RegNo: "2", Name: "A"},
	}
	slices.SortFunc(ids, Compare)

	want := []Identity{
		{RegNo: "10", Name: "A"},
		{RegNo: "2", Name: "A"},
		{RegNo: "2", Name: "B"},
	}
	if !slices.Equal(ids, want) {
		t.Errorf("sorted = %+v, want %+v", ids, want)
	}
}

func TestCohort(t *testing.T) {
	ece := Cohort{Branch: "ECE", Session: "2023-2027"}
	a := Identity{RegNo: "1", Name: "A", Branch: "ECE", Session: "2023-2027"}
	b := Identity{RegNo: "2", Name: "B", Branch: "EEE", Session: "2023-2027"}

	if !ece.Filter()(a) || ece.Filter()(b) {
		t.Error("cohort filter should accept only matching branch and session")
	}
	if !(Cohort{}).Filter()(b) {
		t.Error("zero cohort should accept everyone")
	}
	if a.Cohort() != ece {
		t.Errorf("Identity.Cohort() = %+v, want %+v", a.Cohort(), ece)
	}
}

func TestCohort_FileName(t *testing.T) {
	tests := []struct {
		cohort Cohort
		want   string
	}{
		{Cohort{Branch: "ECE", Session: "2023-2027"}, "attendance_ECE_2023-2027.csv"},
		{Cohort{Branch: "CSE/IT", Session: "2023/2027"}, "attendance_CSE-IT_2023-2027.csv"},
		{Cohort{}, "attendance.csv"},
		{Cohort{Branch: "Unknown", Session: "Unknown"}, "attendance.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.cohort.FileName(); got != tt.want {
				t.Errorf("FileName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIdentity_KeyUngroupedLongName(t *testing.T) {
	id, err := NewIdentity("101", "Ramesh Kumar Singh", "", "")
	if err != nil {
		t.Fatalf("NewIdentity returned error: %v", err)
	}
	if id.Key() != "101_Ramesh_Kumar_Singh_Unknown_Unknown" {
		t.Errorf("unexpected key %q", id.Key())
	}

	parsed, err := ParseKey(id.Key())
	if err != nil {
		t.Fatalf("ParseKey(%q) returned error: %v", id.Key(), err)
	}
	if parsed != id {
		t.Errorf("round trip = %+v, want %+v", parsed, id)
	}

	short, err := NewIdentity("101", "Ramesh Kumar", "", "")
	if err != nil {
		t.Fatalf("NewIdentity returned error: %v", err)
	}
	if short.Key() != "101_Ramesh_Kumar" {
		t.Errorf("expected short key for a two-word name, got %q", short.Key())
	}
}
