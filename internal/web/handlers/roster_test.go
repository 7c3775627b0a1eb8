package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/roster"
)

func TestRosterHandler_Cohorts(t *testing.T) {
	cfg := testConfigWithPaths(t)
	galleries, _ := savedGalleryCache(t, cfg)
	h := NewRosterHandler(cfg, galleries)

	recorder := httptest.NewRecorder()
	h.Cohorts(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/cohorts", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp CohortsResponse
	parseJSONResponse(t, recorder, &resp)

	if len(resp.Branches) != 2 || len(resp.Sessions) != 2 {
		t.Errorf("expected configured options, got %+v", resp)
	}
	want := []roster.Cohort{
		{Branch: "ECE", Session: "2023-2027"},
		{Branch: "EEE", Session: "2024-2028"},
	}
	if len(resp.Trained) != len(want) {
		t.Fatalf("expected %d trained cohorts, got %+v", len(want), resp.Trained)
	}
	for i := range want {
		if resp.Trained[i] != want[i] {
			t.Errorf("trained[%d]: expected %+v, got %+v", i, want[i], resp.Trained[i])
		}
	}
}

func TestRosterHandler_CohortsWithoutGallery(t *testing.T) {
	cfg := testConfigWithPaths(t)
	h := NewRosterHandler(cfg, NewGalleryCache(gallery.NewFileStore(cfg.Paths.GalleryPath), nil))

	recorder := httptest.NewRecorder()
	h.Cohorts(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/cohorts", nil))

	assertStatusCode(t, recorder, http.StatusOK)
	var resp CohortsResponse
	parseJSONResponse(t, recorder, &resp)
	if resp.Trained == nil || len(resp.Trained) != 0 {
		t.Errorf("expected empty trained list, got %+v", resp.Trained)
	}
}

func TestRosterHandler_Students(t *testing.T) {
	cfg := testConfigWithPaths(t)
	galleries, _ := savedGalleryCache(t, cfg)
	h := NewRosterHandler(cfg, galleries)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"everyone", "", []string{"101", "102", "201"}},
		{"cohort", "?branch=ECE&session=2023-2027", []string{"101", "102"}},
		{"name search", "?q=bala", []string{"102"}},
		{"reg no search", "?q=20", []string{"201"}},
		{"no match", "?q=zed", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			h.Students(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/students"+tt.query, nil))

			assertStatusCode(t, recorder, http.StatusOK)
			var students []StudentResponse
			parseJSONResponse(t, recorder, &students)

			if len(students) != len(tt.want) {
				t.Fatalf("expected %d students, got %+v", len(tt.want), students)
			}
			for i, regNo := range tt.want {
				if students[i].RegNo != regNo {
					t.Errorf("students[%d]: expected %s, got %s", i, regNo, students[i].RegNo)
				}
			}
		})
	}
}

func TestRosterHandler_StudentsDescriptorCount(t *testing.T) {
	cfg := testConfigWithPaths(t)
	galleries, _ := savedGalleryCache(t, cfg)
	h := NewRosterHandler(cfg, galleries)

	recorder := httptest.NewRecorder()
	h.Students(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/students?q=asha", nil))

	var students []StudentResponse
	parseJSONResponse(t, recorder, &students)
	if len(students) != 1 || students[0].Descriptors != 2 {
		t.Errorf("expected Asha with 2 descriptors, got %+v", students)
	}
}

func TestRosterHandler_StudentsInvalidCohort(t *testing.T) {
	cfg := testConfigWithPaths(t)
	galleries, _ := savedGalleryCache(t, cfg)
	h := NewRosterHandler(cfg, galleries)

	recorder := httptest.NewRecorder()
	h.Students(recorder, httptest.NewRequest(http.MethodGet, "/api/v1/students?branch=MECH&session=2023-2027", nil))

	assertStatusCode(t, recorder, http.StatusBadRequest)
}
