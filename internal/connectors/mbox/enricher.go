package mbox

import (
	"bytes"
	"context"
	"fmt"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/core/ports/driven"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// DefaultProject is the bucket for lists with no explicit mapping.
const DefaultProject = "unknown"

// RichMessage is the enriched-tier document for one list message.
type RichMessage struct {
	MessageID string  `json:"id"`
	Subject   string  `json:"subject"`
	From      string  `json:"from"`
	FromName  *string `json:"from_name"`
	FromEmail *string `json:"from_email"`
	FromUUID  *string `json:"from_uuid"`
	Domain    *string `json:"domain"`
	EmailDate *string `json:"email_date"`
	List      string  `json:"list"`
	Project   string  `json:"project"`
}

// Ensure Enricher implements the interface.
var _ driven.Enricher = (*Enricher)(nil)

// Enricher builds enriched documents from raw list messages.
type Enricher struct {
	list       string
	identities driven.IdentityService
	projects   driven.ProjectMapper
}

// NewEnricher creates an mbox enricher. archivePath names the list:
// its base directory is both the list label and the project-mapping
// key.
func NewEnricher(archivePath string, identities driven.IdentityService, projects driven.ProjectMapper) *Enricher {
	return &Enricher{
		list:       filepath.Base(strings.TrimRight(archivePath, "/")),
		identities: identities,
		projects:   projects,
	}
}

// FieldDate names the enriched date field the cursor is computed from.
func (e *Enricher) FieldDate() string {
	return "email_date"
}

// UniqueID extracts the message id from a raw message.
func (e *Enricher) UniqueID(raw domain.RawRecord) (string, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw.Payload))
	if err != nil {
		return "", fmt.Errorf("parsing message %s: %w", raw.ID, err)
	}
	id := strings.Trim(msg.Header.Get("Message-ID"), "<>")
	if id == "" {
		return "", fmt.Errorf("message without Message-ID: %w", domain.ErrMissingField)
	}
	return id, nil
}

// RichItem builds the enriched document for one raw message.
func (e *Enricher) RichItem(ctx context.Context, raw domain.RawRecord) (any, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw.Payload))
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", raw.ID, err)
	}

	from := msg.Header.Get("From")
	rich := &RichMessage{
		MessageID: strings.Trim(msg.Header.Get("Message-ID"), "<>"),
		Subject:   msg.Header.Get("Subject"),
		From:      from,
		List:      e.list,
	}

	if from != "" {
		id := ShIdentity(from)
		rich.FromName = id.Name
		rich.FromEmail = id.Email
		rich.Domain = EmailDomain(id.Email)
		uuid, err := e.identities.UUID(ctx, id, Name)
		if err != nil {
			return nil, fmt.Errorf("from uuid for %s: %w", raw.ID, err)
		}
		rich.FromUUID = &uuid
	}

	if date, err := msg.Header.Date(); err == nil {
		rich.EmailDate = domain.StringPtr(date.UTC().Format(domain.TimeProfile))
	} else {
		logger.Warn("mbox: message %s has unparsable Date: %v", raw.ID, err)
	}

	project, ok := e.projects.Project(Name, e.list)
	if !ok {
		project = DefaultProject
	}
	rich.Project = project

	metrics.DocEnriched()
	return rich, nil
}

// Identities enumerates the actors in one raw message: the sender.
func (e *Enricher) Identities(raw domain.RawRecord) ([]domain.Identity, error) {
	msg, err := mail.ReadMessage(bytes.NewReader(raw.Payload))
	if err != nil {
		return nil, fmt.Errorf("parsing message %s: %w", raw.ID, err)
	}
	from := msg.Header.Get("From")
	if from == "" {
		return nil, nil
	}
	return []domain.Identity{ShIdentity(from)}, nil
}

// Mappings returns engine mappings keeping the facet fields verbatim.
func (e *Enricher) Mappings() map[string]string {
	mapping := `
	{
	    "properties": {
	       "list":    {"type": "keyword"},
	       "domain":  {"type": "keyword"},
	       "project": {"type": "keyword"}
	    }
	}`
	return map[string]string{"items": mapping}
}
