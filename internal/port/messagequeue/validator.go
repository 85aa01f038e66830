package messagequeue

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Strob0t/PropExtract/internal/domain/task"
)

type validatable interface {
	Validate() error
}

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects only need valid JSON.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	var target any
	switch {
	case subject == SubjectTaskCancel:
		var p TaskCancelPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.TaskID == "" {
			return fmt.Errorf("schema validation failed for %s: task_id is required", subject)
		}
		return nil
	case strings.HasPrefix(subject, SubjectTaskDispatch+"."):
		kind := task.Kind(strings.TrimPrefix(subject, SubjectTaskDispatch+"."))
		target = PayloadFor(kind)
		if target == nil {
			return fmt.Errorf("unknown task kind %q on subject %s", kind, subject)
		}
	default:
		return nil
	}

	if err := json.Unmarshal(data, target); err != nil {
		return fmt.Errorf("schema validation failed for %s: %w", subject, err)
	}
	if v, ok := target.(validatable); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	}
	return nil
}

// PayloadFor returns a pointer to a zero payload for kind, or nil for an
// unknown kind.
func PayloadFor(kind task.Kind) any {
	switch kind {
	case task.KindSingleURL:
		return &task.URLPayload{}
	case task.KindMultiURL:
		return &task.MultiURLPayload{}
	case task.KindFile:
		return &task.FilePayload{}
	case task.KindPDFMerge:
		return &task.MergePayload{}
	case task.KindPDFSplit:
		return &task.SplitPayload{}
	default:
		return nil
	}
}
