package ledger

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"authorship/internal/artifact"
)

const runColumns = "id, started_at, finished_at, status, seed, corpus_fingerprint, enabled_stages, models, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		startedRaw  string
		finishedRaw sql.NullString
		status      string
		seed        int64
		corpusFP    sql.NullString
		stagesRaw   string
		modelsRaw   string
		errMsg      sql.NullString
	)
	if err := scanner.Scan(&id, &startedRaw, &finishedRaw, &status, &seed, &corpusFP, &stagesRaw, &modelsRaw, &errMsg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan run: %w", err)
	}
	run := &Run{
		ID:            id,
		StartedAt:     parseTime(startedRaw),
		Status:        RunStatus(status),
		Seed:          seed,
		Corpus:        corpusFP.String,
		EnabledStages: splitList(stagesRaw),
		Models:        splitList(modelsRaw),
		ErrorMessage:  errMsg.String,
	}
	if finishedRaw.Valid && finishedRaw.String != "" {
		t := parseTime(finishedRaw.String)
		run.FinishedAt = &t
	}
	return run, nil
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func artifactKind(raw string) artifact.Kind { return artifact.Kind(raw) }
