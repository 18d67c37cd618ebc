// Package chatlog keeps the assistant transcript in logs/chat-log.csv.
package chatlog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Roles of a transcript line.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Entry is one message of a chat session.
type Entry struct {
	Timestamp time.Time
	SessionID string
	Role      string
	Model     string
	Currency  string
	Message   string
}

// Header is the CSV header for chat-log.csv.
const Header = "timestamp,session_id,role,model,currency,message"

// RelPath is the transcript location within a project.
var RelPath = filepath.Join("logs", "chat-log.csv")

const (
	numFields    = 6
	colTimestamp = 0
	colSession   = 1
	colRole      = 2
	colModel     = 3
	colCurrency  = 4
	colMessage   = 5
)

// MarshalEntry converts an Entry to a CSV row.
func MarshalEntry(e Entry) []string {
	row := make([]string, numFields)
	row[colTimestamp] = e.Timestamp.UTC().Format(time.RFC3339)
	row[colSession] = e.SessionID
	row[colRole] = e.Role
	row[colModel] = e.Model
	row[colCurrency] = e.Currency
	row[colMessage] = e.Message
	return row
}

// UnmarshalEntry converts a CSV row to an Entry.
func UnmarshalEntry(record []string) (Entry, error) {
	if len(record) != numFields {
		return Entry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	ts, err := time.Parse(time.RFC3339, record[colTimestamp])
	if err != nil {
		return Entry{}, fmt.Errorf("parsing timestamp %q: %w", record[colTimestamp], err)
	}
	switch record[colRole] {
	case RoleUser, RoleModel:
	default:
		return Entry{}, fmt.Errorf("unknown role %q", record[colRole])
	}
	return Entry{
		Timestamp: ts,
		SessionID: record[colSession],
		Role:      record[colRole],
		Model:     record[colModel],
		Currency:  record[colCurrency],
		Message:   record[colMessage],
	}, nil
}

// Append writes entries to <repoRoot>/logs/chat-log.csv, creating the file
// and header if needed.
func Append(repoRoot string, entries []Entry) error {
	path := filepath.Join(repoRoot, RelPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening chat log: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if needsHeader {
		if err := cw.Write(strings.Split(Header, ",")); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for i, e := range entries {
		if err := cw.Write(MarshalEntry(e)); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read returns all entries from <repoRoot>/logs/chat-log.csv. A missing
// file yields no entries.
func Read(repoRoot string) ([]Entry, error) {
	f, err := os.Open(filepath.Join(repoRoot, RelPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening chat log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

// Session returns the entries of one session in file order.
func Session(entries []Entry, sessionID string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

func readEntries(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chat log CSV: %w", err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	var entries []Entry
	for i, rec := range records[1:] {
		e, err := UnmarshalEntry(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
