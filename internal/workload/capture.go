package workload

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// sessionIDColumn and queryColumn are the zero-indexed CSV fields a
// PostgreSQL CSV-format log carries the session id and statement text
// in (indices 5 and 13 of log_line_prefix's CSV output).
const (
	sessionIDColumn = 5
	queryColumn     = 13
)

// RawStatement is one retained statement from the capture log, tagged
// with the session it came from.
type RawStatement struct {
	SessionID string
	Text      string
}

// LoadCaptureLog reads a PostgreSQL CSV-format query log and returns
// the statements worth feeding to the parser: only sessions with a
// meaningful share of the workload are kept, and only statements that
// look like application SELECT/UPDATE traffic survive.
//
// The 10%-of-busiest-session threshold is computed over every raw log
// row per session (BEGIN/COMMIT/connection noise included), before the
// statement/exclusion filters are applied: a session's row count in
// the log is what determines whether it's noise, not its count of
// surviving statements. Only after that threshold is decided does each
// remaining line need a "statement:" marker and SELECT or UPDATE while
// not containing bare AS/BEGIN/COMMIT tokens.
func LoadCaptureLog(r io.Reader) ([]RawStatement, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	type candidateLine struct {
		sessionID string
		raw       string
	}
	var lines []candidateLine
	counts := make(map[string]int)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("load capture log: %w", err)
		}
		if len(record) <= queryColumn {
			continue
		}
		sessionID := record[sessionIDColumn]
		counts[sessionID]++
		lines = append(lines, candidateLine{sessionID: sessionID, raw: record[queryColumn]})
	}

	maxCount := 0
	for _, c := range counts {
		if c > maxCount {
			maxCount = c
		}
	}
	threshold := float64(maxCount) * 0.1

	var out []RawStatement
	for _, ln := range lines {
		if float64(counts[ln.sessionID]) < threshold {
			continue
		}
		if !isStatementLine(ln.raw) {
			continue
		}
		text := strings.TrimPrefix(ln.raw, "statement: ")
		if isExcluded(text) {
			continue
		}
		out = append(out, RawStatement{SessionID: ln.sessionID, Text: text})
	}
	return out, nil
}

func isStatementLine(raw string) bool {
	return strings.Contains(raw, "statement:")
}

func isExcluded(text string) bool {
	fields := strings.Fields(text)
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		seen[strings.ToUpper(strings.Trim(f, "();,"))] = struct{}{}
	}
	for _, excluded := range []string{"AS", "BEGIN", "COMMIT"} {
		if _, ok := seen[excluded]; ok {
			return true
		}
	}
	_, hasSelect := seen["SELECT"]
	_, hasUpdate := seen["UPDATE"]
	return !hasSelect && !hasUpdate
}
