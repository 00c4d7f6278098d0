package parser

import "strings"

// AttrName identifies one metadata facet tracked by an itemized-change column.
type AttrName string

const (
	AttrChecksum    AttrName = "checksum"
	AttrSize        AttrName = "size"
	AttrTime        AttrName = "time"
	AttrPermissions AttrName = "permissions"
	AttrOwner       AttrName = "owner"
	AttrGroup       AttrName = "group"
	AttrReserved    AttrName = "reserved"
	AttrACL         AttrName = "acl"
	AttrXattr       AttrName = "xattr"
)

// Update types emitted in column 0 of the itemized format.
const (
	UpdateUnchanged   = '.'
	UpdateMessage     = '*'
	UpdateSent        = '>'
	UpdateReceived    = '<'
	UpdateLocalChange = 'c'
	UpdateHardlink    = 'h'
)

// Entity types emitted in column 1.
const (
	EntityFile      = 'f'
	EntityDirectory = 'd'
	EntitySymlink   = 'L'
	EntityDevice    = 'D'
	EntitySpecial   = 'S'
)

// attrSlot binds a fixed column to its designated attribute code. Adding a
// new slot is a one-line edit here.
type attrSlot struct {
	col  int
	code byte
	name AttrName
}

var attrSlots = [...]attrSlot{
	{2, 'c', AttrChecksum},
	{3, 's', AttrSize},
	{4, 't', AttrTime},
	{5, 'p', AttrPermissions},
	{6, 'o', AttrOwner},
	{7, 'g', AttrGroup},
	{8, 'u', AttrReserved},
	{9, 'a', AttrACL},
	{10, 'x', AttrXattr},
}

// formatCols counts the format code itself: update type, entity type, and
// the 9 attribute slots. The canonical layout appends a reserved 12th
// column before the separating space; older tool versions omit it, so the
// decoder accepts both. The reserved column carries future attribute codes
// ('+', '?', '.', or space) and never contributes an attribute. Either way
// a record line is at least 13 characters.
const (
	formatCols = 11
	minLineLen = formatCols + 2
)

// Attribute is one changed-attribute marker observed in a record. Code is
// the character actually present in the column, which is either the slot's
// designated letter (or 'T' for the time slot) or '+' on brand-new items.
type Attribute struct {
	Name AttrName `json:"name"`
	Code byte     `json:"code"`
}

// Record is the decoded form of one itemized-change or message line.
type Record struct {
	UpdateType byte
	EntityType byte
	Attributes []Attribute
	Path       string
	Target     string // symlink destination, empty unless EntityType is 'L'
	Message    string // message tag for '*'-prefixed lines, e.g. "deleting"
}

// ParseLine decodes a single line of itemized-change output. The second
// return value is false when the line is not a record at all; that covers
// blank lines, statistics lines, and anything shorter than the fixed-width
// prefix. Decoding never fails with an error.
func ParseLine(line string) (Record, bool) {
	if strings.HasPrefix(line, "*") {
		return parseMessage(line), true
	}
	if len(line) < minLineLen {
		return Record{}, false
	}
	sep := formatCols + 1
	if line[sep] != ' ' {
		// The legacy layout lacks the reserved-column anchor, so a space at
		// the separator offset alone is not enough: "Total bytes sent: 512"
		// has one too. Require the leading columns to form a format code.
		if line[formatCols] != ' ' || !legacyFormat(line) {
			return Record{}, false
		}
		sep = formatCols
	}

	rec := Record{
		UpdateType: line[0],
		EntityType: line[1],
		Path:       strings.TrimSpace(line[sep+1:]),
	}
	for _, slot := range attrSlots {
		ch := line[slot.col]
		if ch == slot.code || ch == '+' || (slot.name == AttrTime && ch == 'T') {
			rec.Attributes = append(rec.Attributes, Attribute{Name: slot.name, Code: ch})
		}
	}
	if rec.EntityType == EntitySymlink {
		if idx := strings.Index(rec.Path, " -> "); idx >= 0 {
			rec.Target = rec.Path[idx+4:]
			rec.Path = rec.Path[:idx]
		}
	}
	return rec, true
}

// legacyFormat reports whether the first formatCols columns plausibly form
// an itemized format code: a known update type and attribute columns that
// hold only the markers the format emits. Unknown entity types stay
// accepted; the entity column is not constrained.
func legacyFormat(line string) bool {
	switch line[0] {
	case UpdateUnchanged, UpdateSent, UpdateReceived, UpdateLocalChange, UpdateHardlink:
	default:
		return false
	}
	for _, slot := range attrSlots {
		switch ch := line[slot.col]; ch {
		case '.', '+', '?', ' ', slot.code:
		default:
			if slot.name == AttrTime && ch == 'T' {
				continue
			}
			return false
		}
	}
	return true
}

func parseMessage(line string) Record {
	rec := Record{UpdateType: UpdateMessage}
	body := line[1:]
	if idx := strings.IndexByte(body, ' '); idx >= 0 {
		rec.Message = body[:idx]
		rec.Path = strings.TrimSpace(body[idx+1:])
	} else {
		rec.Message = body
	}
	return rec
}

// IsMessage reports whether the record came from a '*'-prefixed line.
func (r Record) IsMessage() bool {
	return r.UpdateType == UpdateMessage
}

// IsDeletion reports whether the record describes a removed item.
func (r Record) IsDeletion() bool {
	return r.IsMessage() && r.Path != "" && strings.HasPrefix(r.Message, "deleting")
}

// IsNewItem reports whether the item was freshly created rather than an
// existing item with specific changed fields. rsync marks new items by
// filling every attribute column with '+'.
func (r Record) IsNewItem() bool {
	if len(r.Attributes) == 0 {
		return false
	}
	for _, attr := range r.Attributes {
		if attr.Code != '+' {
			return false
		}
	}
	return true
}

// HasAttribute reports whether the named attribute changed.
func (r Record) HasAttribute(name AttrName) bool {
	for _, attr := range r.Attributes {
		if attr.Name == name {
			return true
		}
	}
	return false
}
