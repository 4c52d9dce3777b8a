package bugzilla

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"

	"github.com/custodia-labs/harvest-cli/internal/core/domain"
	"github.com/custodia-labs/harvest-cli/internal/logger"
	"github.com/custodia-labs/harvest-cli/internal/metrics"
)

// ChangesParser recovers structured field transitions from the
// semi-structured show_activity.cgi HTML document.
//
// The change-history table is the first table whose header row has
// exactly five columns; everything around it is boilerplate. Rows come
// in two shapes: a five-cell shape (who, when, what, removed, added)
// opening an actor/date group, and a three-cell shape (what, removed,
// added) continuing the previous group. Continuation rows inherit the
// last seen actor and date.
type ChangesParser struct {
	// FieldMap renames field labels to their enriched names.
	FieldMap map[string]string

	// StatusMap and ResolutionMap translate enumerated values.
	// Identity by default: the synonym tables are configuration,
	// not parser logic.
	StatusMap     map[string]string
	ResolutionMap map[string]string
}

// NewChangesParser creates a parser with the default rename tables.
func NewChangesParser() *ChangesParser {
	return &ChangesParser{
		FieldMap: map[string]string{
			"Status":     "status",
			"Resolution": "resolution",
		},
		StatusMap:     map[string]string{},
		ResolutionMap: map[string]string{},
	}
}

// headerColumns is the column count that identifies the change table.
const headerColumns = 5

// Parse extracts the ordered change sequence for one bug. A document
// with no qualifying table yields an empty sequence, not an error:
// some records legitimately have no recorded changes. Malformed rows
// are skipped with a diagnostic.
func (p *ChangesParser) Parse(markup []byte, bugID string) ([]domain.ChangeRecord, error) {
	root, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, err
	}
	stripComments(root)

	table := findChangeTable(root)
	changes := make([]domain.ChangeRecord, 0)
	if table == nil {
		return changes, nil
	}

	var lastBy string
	var lastDate *domain.ChangeRecord // carries the inherited timestamp

	for _, row := range findAll(table, "tr")[1:] {
		cells := directCellTexts(row)
		var change domain.ChangeRecord

		switch len(cells) {
		case 5:
			when, err := parseTime(cells[1])
			if err != nil {
				metrics.ParseError()
				logger.Warn("bugzilla: skipping change row for bug %s: %v", bugID, err)
				continue
			}
			change = domain.ChangeRecord{
				ChangedBy: deobfuscate(cells[0]),
				Timestamp: when,
				Field:     cells[2],
				OldValue:  cells[3],
				NewValue:  cells[4],
			}
			lastBy = change.ChangedBy
			lastDate = &change
		case 3:
			if lastDate == nil {
				metrics.ParseError()
				logger.Warn("bugzilla: continuation row before any group row for bug %s", bugID)
				continue
			}
			change = domain.ChangeRecord{
				ChangedBy: lastBy,
				Timestamp: lastDate.Timestamp,
				Field:     cells[0],
				OldValue:  cells[1],
				NewValue:  cells[2],
			}
		default:
			metrics.ParseError()
			logger.Warn("bugzilla: skipping change row with %d cells for bug %s", len(cells), bugID)
			continue
		}

		change.Field, change.OldValue, change.NewValue =
			p.sanitize(change.Field, change.OldValue, change.NewValue)
		changes = append(changes, change)
	}

	return changes, nil
}

// sanitize applies the field rename and per-value synonym tables.
func (p *ChangesParser) sanitize(field, oldValue, newValue string) (string, string, string) {
	if renamed, ok := p.FieldMap[field]; ok {
		field = renamed
	}
	oldValue = strings.TrimSpace(oldValue)
	newValue = strings.TrimSpace(newValue)

	var values map[string]string
	switch field {
	case "status":
		values = p.StatusMap
	case "resolution":
		values = p.ResolutionMap
	}
	if values != nil {
		if v, ok := values[oldValue]; ok {
			oldValue = v
		}
		if v, ok := values[newValue]; ok {
			newValue = v
		}
	}
	return field, oldValue, newValue
}

// deobfuscate undoes the entity obfuscation Bugzilla applies to actor
// addresses in activity tables.
func deobfuscate(who string) string {
	return strings.ReplaceAll(who, "&#64;", "@")
}

// stripComments removes comment nodes so commented-out markup never
// contributes cells.
func stripComments(n *html.Node) {
	for child := n.FirstChild; child != nil; {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			stripComments(child)
		}
		child = next
	}
}

// findChangeTable returns the first table whose header row has exactly
// headerColumns th cells, or nil.
func findChangeTable(root *html.Node) *html.Node {
	for _, table := range findAll(root, "table") {
		rows := findAll(table, "tr")
		if len(rows) == 0 {
			continue
		}
		if len(findAll(rows[0], "th")) == headerColumns {
			return table
		}
	}
	return nil
}

// findAll collects descendant elements with the given tag, in document
// order. Nested occurrences of the same tag are not descended into, so
// a table's rows do not include rows of an inner table.
func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.ElementNode && child.Data == tag {
				out = append(out, child)
				continue
			}
			walk(child)
		}
	}
	walk(n)
	return out
}

// directCellTexts returns the flattened text of each td cell in a row.
// Inline markup (links, spans, emphasis) collapses to its text content
// so multi-element cells like "Attachment #12723 Flag" come back as
// one string.
func directCellTexts(row *html.Node) []string {
	cells := findAll(row, "td")
	texts := make([]string, len(cells))
	for i, cell := range cells {
		texts[i] = flattenText(cell)
	}
	return texts
}

// flattenText concatenates all text fragments under a node, joining
// them with single spaces and collapsing internal whitespace.
func flattenText(n *html.Node) string {
	var fragments []string
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			if text := strings.TrimSpace(node.Data); text != "" {
				fragments = append(fragments, text)
			}
			return
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(strings.Join(fragments, " ")), " ")
}
