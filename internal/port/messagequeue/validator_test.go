package messagequeue

import (
	"strings"
	"testing"

	"github.com/Strob0t/PropExtract/internal/domain/task"
)

func TestValidateDispatchPayloads(t *testing.T) {
	tests := []struct {
		kind task.Kind
		data string
	}{
		{task.KindSingleURL, `{"taskId":"t1","url":"https://x.com/redfin/listing"}`},
		{task.KindMultiURL, `{"taskId":"t1","urls":["https://a","https://b"]}`},
		{task.KindFile, `{"taskId":"t1","fileName":"listing.pdf","compressionLevel":"low"}`},
		{task.KindPDFMerge, `{"taskId":"t1","fileUrls":["https://f/a.pdf"]}`},
		{task.KindPDFSplit, `{"taskId":"t1","fileUrl":"https://f/a.pdf","splitOptions":{"type":"pages","pagesPerFile":2}}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if err := Validate(DispatchSubject(tt.kind), []byte(tt.data)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateDispatchMissingFields(t *testing.T) {
	err := Validate(DispatchSubject(task.KindSingleURL), []byte(`{"taskId":"t1"}`))
	if err == nil {
		t.Fatal("expected error for missing url")
	}
	if !strings.Contains(err.Error(), "taskId and url are required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateDispatchWrongType(t *testing.T) {
	err := Validate(DispatchSubject(task.KindMultiURL), []byte(`{"taskId":"t1","urls":"not-a-list"}`))
	if err == nil {
		t.Fatal("expected schema error")
	}
}

func TestValidateUnknownKind(t *testing.T) {
	err := Validate(SubjectTaskDispatch+".fax", []byte(`{}`))
	if err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestValidateCancel(t *testing.T) {
	if err := Validate(SubjectTaskCancel, []byte(`{"task_id":"t1"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := Validate(SubjectTaskCancel, []byte(`{}`)); err == nil {
		t.Fatal("expected error for empty task_id")
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	err := Validate(SubjectTaskCancel, []byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	if err := Validate("some.other.subject", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unknown subject should pass, got %v", err)
	}
}

func TestDispatchSubject(t *testing.T) {
	if got := DispatchSubject(task.KindPDFMerge); got != "tasks.dispatch.pdf-merge" {
		t.Errorf("unexpected subject %q", got)
	}
}
