package failure_test

import (
	"errors"
	"strings"
	"testing"

	"authorship/internal/failure"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := failure.Wrap(failure.ErrConfiguration, "features", "fit", "bad threshold", base)
	if !errors.Is(err, failure.ErrConfiguration) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	for _, fragment := range []string{"features", "fit", "bad threshold"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in error string %q", fragment, err.Error())
		}
	}
}

func TestTypedErrorsMatchMarkers(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		marker error
	}{
		{"configuration", failure.Configf("split.seed", "must be set"), failure.ErrConfiguration},
		{"insufficient", &failure.InsufficientDataError{Author: "dickens", Documents: 1}, failure.ErrInsufficientData},
		{"missing", &failure.MissingArtifactError{Stage: "preprocessing", Artifact: "split"}, failure.ErrMissingArtifact},
		{"empty vocabulary", &failure.EmptyVocabularyError{Candidates: 3, MinDocFreq: 9}, failure.ErrEmptyVocabulary},
		{"unknown document", &failure.UnknownDocumentError{DocumentID: "doc-1"}, failure.ErrUnknownDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := &failure.StageError{Stage: "x", Err: tt.err}
			if !errors.Is(wrapped, tt.marker) {
				t.Fatalf("expected %v to match %v", wrapped, tt.marker)
			}
		})
	}
}

func TestDescribeNamesStageArtifactAndRemediation(t *testing.T) {
	err := &failure.StageError{
		Stage:    "feature_engineering",
		Artifact: "vocabulary",
		Err:      &failure.MissingArtifactError{Stage: "feature_engineering", Artifact: "vocabulary", Fingerprint: "0123456789abcdef"},
	}
	msg := failure.Describe(err)
	for _, fragment := range []string{"feature_engineering", "vocabulary", "0123456789ab", "stages.enable_feature_engineering"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in %q", fragment, msg)
		}
	}
}

func TestInsufficientDataNamesAuthor(t *testing.T) {
	err := &failure.InsufficientDataError{Author: "eliot", Documents: 1, Reason: "cannot appear in a held-out partition"}
	if !strings.Contains(err.Error(), `"eliot"`) {
		t.Fatalf("expected author in message: %v", err)
	}
}
