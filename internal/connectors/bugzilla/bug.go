package bugzilla

import (
	"encoding/xml"
	"fmt"
)

// Person is a contributor reference in bug XML: the element text is
// the account (usually an email), the optional name attribute is the
// display name.
type Person struct {
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

// Comment is one long_desc child of a bug: a comment-shaped record.
type Comment struct {
	Who     Person `xml:"who"`
	BugWhen string `xml:"bug_when"`
	TheText string `xml:"thetext"`
}

// Bug is the decoded show_bug.cgi XML for one record. InnerXML keeps
// the verbatim element body so the raw tier stores exactly what the
// server sent.
type Bug struct {
	XMLName  xml.Name `xml:"bug"`
	InnerXML []byte   `xml:",innerxml"`

	ID         string    `xml:"bug_id"`
	CreationTS string    `xml:"creation_ts"`
	DeltaTS    string    `xml:"delta_ts"`
	ShortDesc  string    `xml:"short_desc"`
	Product    string    `xml:"product"`
	Component  string    `xml:"component"`
	Version    string    `xml:"version"`
	Priority   string    `xml:"priority"`
	BugStatus  string    `xml:"bug_status"`
	Resolution string    `xml:"resolution"`
	Reporter   *Person   `xml:"reporter"`
	AssignedTo *Person   `xml:"assigned_to"`
	QAContact  *Person   `xml:"qa_contact"`
	Comments   []Comment `xml:"long_desc"`
}

// bugzillaXML is the show_bug.cgi response envelope.
type bugzillaXML struct {
	XMLName xml.Name `xml:"bugzilla"`
	Version string   `xml:"version,attr"`
	URLBase string   `xml:"urlbase,attr"`
	Bugs    []Bug    `xml:"bug"`
}

// ParseBugs decodes a show_bug.cgi batch response.
func ParseBugs(payload []byte) ([]Bug, error) {
	var envelope bugzillaXML
	if err := xml.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("bugzilla: decoding bug XML: %w", err)
	}
	return envelope.Bugs, nil
}

// ParseBug decodes a single raw-tier bug payload.
func ParseBug(payload []byte) (*Bug, error) {
	var bug Bug
	if err := xml.Unmarshal(payload, &bug); err != nil {
		return nil, fmt.Errorf("bugzilla: decoding bug XML: %w", err)
	}
	if bug.ID == "" {
		return nil, ErrNoBugID
	}
	return &bug, nil
}

// Verbatim renders the bug element back to its raw payload form.
func (b *Bug) Verbatim() []byte {
	raw := make([]byte, 0, len(b.InnerXML)+len("<bug></bug>"))
	raw = append(raw, "<bug>"...)
	raw = append(raw, b.InnerXML...)
	raw = append(raw, "</bug>"...)
	return raw
}
