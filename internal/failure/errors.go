package failure

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConfiguration    = errors.New("configuration error")
	ErrInsufficientData = errors.New("insufficient data")
	ErrMissingArtifact  = errors.New("missing artifact")
	ErrEmptyVocabulary  = errors.New("empty vocabulary")
	ErrUnknownDocument  = errors.New("unknown document")
	ErrContractMismatch = errors.New("feature contract mismatch")
)

// ConfigurationError reports an invalid configuration key.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration, e.Message)
	}
	return fmt.Sprintf("%s: %s %s", ErrConfiguration, e.Key, e.Message)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError for key with a formatted message.
func Configf(key, format string, args ...any) error {
	return &ConfigurationError{Key: key, Message: fmt.Sprintf(format, args...)}
}

// InsufficientDataError names an author that cannot be stratified.
type InsufficientDataError struct {
	Author    string
	Documents int
	Reason    string
}

func (e *InsufficientDataError) Error() string {
	msg := fmt.Sprintf("%s: author %q has %d document(s)", ErrInsufficientData, e.Author, e.Documents)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }

// MissingArtifactError names the artifact a skipped stage could not load.
type MissingArtifactError struct {
	Stage       string
	Artifact    string
	Fingerprint string
}

func (e *MissingArtifactError) Error() string {
	fp := e.Fingerprint
	if len(fp) > 12 {
		fp = fp[:12]
	}
	return fmt.Sprintf("%s: stage %s requires %s (fingerprint %s) but it is not cached", ErrMissingArtifact, e.Stage, e.Artifact, fp)
}

func (e *MissingArtifactError) Is(target error) bool { return target == ErrMissingArtifact }

// EmptyVocabularyError reports that filtering left no vocabulary entries.
type EmptyVocabularyError struct {
	Candidates int
	MinDocFreq int
	MaxSize    int
}

func (e *EmptyVocabularyError) Error() string {
	return fmt.Sprintf("%s: %d candidate token(s), none survive min_doc_freq=%d vocab_max_size=%d",
		ErrEmptyVocabulary, e.Candidates, e.MinDocFreq, e.MaxSize)
}

func (e *EmptyVocabularyError) Is(target error) bool { return target == ErrEmptyVocabulary }

// UnknownDocumentError reports a document that cannot be vectorized.
type UnknownDocumentError struct {
	DocumentID string
}

func (e *UnknownDocumentError) Error() string {
	return fmt.Sprintf("%s: document %q has empty cleaned text", ErrUnknownDocument, e.DocumentID)
}

func (e *UnknownDocumentError) Is(target error) bool { return target == ErrUnknownDocument }

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		if err != nil {
			return fmt.Errorf("%s: %w", detail, err)
		}
		return errors.New(detail)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StageError records which stage halted the run.
type StageError struct {
	Stage    string
	Artifact string
	Err      error
}

func (e *StageError) Error() string {
	if e.Artifact != "" {
		return fmt.Sprintf("stage %s failed (artifact %s): %v", e.Stage, e.Artifact, e.Err)
	}
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Hint returns remediation guidance for err.
func Hint(err error) string {
	var missing *MissingArtifactError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &missing):
		return fmt.Sprintf("enable the %s stage (stages.enable_%s = true) to regenerate it", missing.Stage, missing.Stage)
	case errors.Is(err, ErrConfiguration):
		return "fix the configuration value and rerun"
	case errors.Is(err, ErrInsufficientData):
		return "add documents for the author, drop the author from the corpus, or adjust split.proportions"
	case errors.Is(err, ErrEmptyVocabulary):
		return "lower features.min_doc_freq or raise features.vocab_max_size"
	case errors.Is(err, ErrUnknownDocument):
		return "remove documents with empty cleaned text from the corpus"
	case errors.Is(err, ErrContractMismatch):
		return "retrain the model against the current vocabulary and label map"
	default:
		return "inspect the log for the failing stage"
	}
}

// Describe renders the single terminal failure message for a run.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.TrimSpace(err.Error())
	hint := Hint(err)
	if hint == "" {
		return msg
	}
	return msg + "\nremediation: " + hint
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "pipeline failure"
	}
	return strings.Join(parts, ": ")
}
