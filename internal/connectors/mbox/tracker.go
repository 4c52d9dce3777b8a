package mbox

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// Name is the connector type identifier.
const Name = "mbox"

// Ensure Tracker implements the interface.
var _ driven.Tracker = (*Tracker)(nil)

// Tracker reads messages from mbox archives under a local directory.
// The archive is scanned once per run; FetchRecords serves from the
// scan.
type Tracker struct {
	path string

	messages map[string][]byte
}

// NewTracker creates a tracker over the given archive directory.
func NewTracker(path string) *Tracker {
	return &Tracker{path: path, messages: make(map[string][]byte)}
}

// Name returns the connector type.
func (t *Tracker) Name() string {
	return Name
}

// Origin identifies the archive in stored records.
func (t *Tracker) Origin() string {
	return t.path
}

// ListIDs scans the archive and returns every message at or after
// from, keyed by Message-ID. Messages without a parseable Date header
// are skipped with a warning.
func (t *Tracker) ListIDs(ctx context.Context, from *time.Time) ([]domain.ListEntry, error) {
	start := time.Now()
	defer func() { metrics.ObserveList(time.Since(start).Seconds()) }()

	var entries []domain.ListEntry
	err := filepath.WalkDir(t.path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		found, err := t.scanFile(path, from)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		entries = append(entries, found...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.IDsListed(len(entries))
	return entries, nil
}

// FetchRecords returns the raw message bytes for the given ids, from
// the current run's scan.
func (t *Tracker) FetchRecords(_ context.Context, ids []string) ([]domain.RawRecord, error) {
	fetchedAt := time.Now().UTC()
	records := make([]domain.RawRecord, 0, len(ids))
	for _, id := range ids {
		payload, ok := t.messages[id]
		if !ok {
			return nil, fmt.Errorf("message %s not in the archive scan: %w", id, domain.ErrNotFound)
		}
		records = append(records, domain.RawRecord{
			ID:        id,
			Kind:      domain.KindRecord,
			Payload:   payload,
			FetchedAt: fetchedAt,
		})
	}
	metrics.RecordsFetched(len(records))
	return records, nil
}

// scanFile splits one mbox file into messages and keeps those at or
// after the lower bound.
func (t *Tracker) scanFile(path string, from *time.Time) ([]domain.ListEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []domain.ListEntry
	for _, raw := range splitMessages(f) {
		msg, err := mail.ReadMessage(bytes.NewReader(raw))
		if err != nil {
			logger.Warn("mbox: skipping unparseable message in %s: %v", path, err)
			continue
		}

		id := strings.Trim(msg.Header.Get("Message-ID"), "<>")
		if id == "" {
			logger.Warn("mbox: skipping message without Message-ID in %s", path)
			continue
		}

		date, err := msg.Header.Date()
		if err != nil {
			logger.Warn("mbox: skipping message %s with bad Date: %v", id, err)
			continue
		}
		date = date.UTC()
		if from != nil && date.Before(*from) {
			continue
		}

		t.messages[id] = raw
		entries = append(entries, domain.ListEntry{ID: id, ChangedAt: date})
	}
	return entries, nil
}

// splitMessages cuts an mbox stream on "From " separator lines.
func splitMessages(f *os.File) [][]byte {
	var messages [][]byte
	var current bytes.Buffer

	flush := func() {
		if current.Len() > 0 {
			messages = append(messages, append([]byte(nil), current.Bytes()...))
			current.Reset()
		}
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "From ") {
			flush()
			continue
		}
		current.WriteString(line)
		current.WriteByte('\n')
	}
	flush()
	return messages
}
