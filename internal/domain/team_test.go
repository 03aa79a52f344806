package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTeamDirectory(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantLen    int
		wantLookup map[string]MemberID
		wantErr    error
	}{
		{
			name:    "simple roster",
			input:   "Alice Example, alice\nBob Example,bob\n",
			wantLen: 2,
			wantLookup: map[string]MemberID{
				"Alice Example": "alice",
				"Bob Example":   "bob",
			},
		},
		{
			name:    "whitespace trimmed and CRLF endings",
			input:   "  Alice Example ,  alice  \r\nBob Example, bob\r\n",
			wantLen: 2,
			wantLookup: map[string]MemberID{
				"Alice Example": "alice",
				"Bob Example":   "bob",
			},
		},
		{
			name:    "blank and short lines skipped",
			input:   "\nAlice Example, alice\n\nnot-a-pair\n, orphan\n",
			wantLen: 1,
			wantLookup: map[string]MemberID{
				"Alice Example": "alice",
			},
		},
		{
			name:    "later duplicate wins",
			input:   "Alice Example, alice\nAlice Example, alice2\n",
			wantLen: 1,
			wantLookup: map[string]MemberID{
				"Alice Example": "alice2",
			},
		},
		{
			name:    "several author names per member",
			input:   "Alice Example, alice\nalice.e, alice\n",
			wantLen: 2,
			wantLookup: map[string]MemberID{
				"Alice Example": "alice",
				"alice.e":       "alice",
			},
		},
		{
			name:    "byte order mark stripped",
			input:   "\ufeffAlice Example, alice\n",
			wantLen: 1,
			wantLookup: map[string]MemberID{
				"Alice Example": "alice",
			},
		},
		{
			name:    "empty file",
			input:   "",
			wantErr: ErrTeamFileEmpty,
		},
		{
			name:    "no usable lines",
			input:   "header-only\n\n",
			wantErr: ErrTeamFileEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir, err := ParseTeamDirectory([]byte(tt.input))

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, dir)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantLen, dir.Len())
			for author, want := range tt.wantLookup {
				got, ok := dir.Resolve(author)
				assert.True(t, ok, author)
				assert.Equal(t, want, got)
			}
		})
	}
}

func TestTeamDirectory_ResolveUnknown(t *testing.T) {
	dir := NewTeamDirectory(map[string]MemberID{"Alice Example": "alice"})

	member, ok := dir.Resolve("alice example")
	assert.False(t, ok, "lookup is exact")
	assert.Empty(t, member)

	var nilDir *TeamDirectory
	_, ok = nilDir.Resolve("Alice Example")
	assert.False(t, ok)
	assert.Zero(t, nilDir.Len())
}

func TestNewTeamDirectory_CopiesInput(t *testing.T) {
	entries := map[string]MemberID{"Alice Example": "alice"}
	dir := NewTeamDirectory(entries)

	entries["Bob Example"] = "bob"

	_, ok := dir.Resolve("Bob Example")
	assert.False(t, ok)
	assert.Equal(t, 1, dir.Len())
}
