package task

import (
	"errors"
	"testing"

	"github.com/Strob0t/PropExtract/internal/domain"
)

func TestCheckProgress(t *testing.T) {
	tests := []struct {
		name    string
		status  Status
		current int
		next    int
		wantErr error
	}{
		{"forward", StatusProcessing, 20, 50, nil},
		{"same value", StatusProcessing, 50, 50, nil},
		{"regression", StatusProcessing, 50, 20, domain.ErrConflict},
		{"completed task", StatusCompleted, 100, 100, domain.ErrConflict},
		{"failed task", StatusFailed, 30, 40, domain.ErrConflict},
		{"above range", StatusProcessing, 0, 101, domain.ErrValidation},
		{"below range", StatusProcessing, 0, -1, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := &Task{ID: "t", Status: tt.status, Progress: tt.current}
			err := tk.CheckProgress(tt.next)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestComputeStats(t *testing.T) {
	views := []View{
		{Task: Task{Status: StatusProcessing}},
		{Task: Task{Status: StatusCompleted}},
		{Task: Task{Status: StatusCompleted}},
		{Task: Task{Status: StatusFailed}},
	}

	s := ComputeStats(views)
	if s.Total != 4 || s.Processing != 1 || s.Completed != 2 || s.Failed != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
	if s.Total != s.Processing+s.Completed+s.Failed {
		t.Fatalf("total must equal the sum of statuses: %+v", s)
	}
}

func TestComputeStatsEmpty(t *testing.T) {
	if s := ComputeStats(nil); s != (Stats{}) {
		t.Fatalf("expected zero stats, got %+v", s)
	}
}

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if Kind("fax").Valid() {
		t.Error("unknown kind should be invalid")
	}
}

func TestNewTaskInitialState(t *testing.T) {
	tk := New("id-1", KindFile, "listing.pdf")
	if tk.Status != StatusProcessing || tk.Progress != ProgressStart {
		t.Fatalf("expected processing/0, got %s/%d", tk.Status, tk.Progress)
	}
	if tk.Status.Terminal() {
		t.Fatal("processing must not be terminal")
	}
}

func TestResultSetDownloads(t *testing.T) {
	var r Result
	r.SetDownloads(Downloads{PDF: "https://s/r.pdf", JSON: "https://s/r.json"})
	if r.PDFURL == nil || *r.PDFURL != "https://s/r.pdf" {
		t.Errorf("unexpected pdf url %v", r.PDFURL)
	}
	if r.ExcelURL != nil {
		t.Errorf("empty download should stay nil, got %q", *r.ExcelURL)
	}
}
