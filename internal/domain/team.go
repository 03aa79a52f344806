package domain

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// TeamDirectory maps author display names to team members.
// It is built once per project and never modified.
type TeamDirectory struct {
	members map[string]MemberID
}

// NewTeamDirectory creates a directory from an author-name to member-id mapping.
func NewTeamDirectory(entries map[string]MemberID) *TeamDirectory {
	members := make(map[string]MemberID, len(entries))
	for author, member := range entries {
		members[author] = member
	}
	return &TeamDirectory{members: members}
}

// ParseTeamDirectory decodes a team file of "author name, member id" lines.
// Blank lines and lines with fewer than two fields are skipped; when an author
// appears more than once the last line wins.
func ParseTeamDirectory(data []byte) (*TeamDirectory, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true

	members := make(map[string]MemberID)
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse team file: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		author := strings.TrimSpace(record[0])
		member := strings.TrimSpace(record[1])
		if author == "" || member == "" {
			continue
		}
		members[author] = MemberID(member)
	}

	if len(members) == 0 {
		return nil, ErrTeamFileEmpty
	}
	return &TeamDirectory{members: members}, nil
}

// Resolve looks up the member an author name belongs to.
// The second return value is false when the author is not on the roster.
func (d *TeamDirectory) Resolve(authorName string) (MemberID, bool) {
	if d == nil {
		return "", false
	}
	member, ok := d.members[authorName]
	return member, ok
}

// Len returns the number of known author names.
func (d *TeamDirectory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.members)
}
