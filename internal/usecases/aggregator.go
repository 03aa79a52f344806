package usecases

import "github.com/MyCarrier-DevOps/team-audit/internal/domain"

// MemberAggregate is one member's share of the project history.
// The merge/non-merge partition is fixed at construction.
type MemberAggregate struct {
	Member domain.MemberID

	// AuthorName is the first author name seen for the member.
	AuthorName string

	Commits  []ClassifiedCommit
	NonMerge []ClassifiedCommit
	Merge    []ClassifiedCommit
}

// Aggregation is the per-member view of a project's commits.
type Aggregation struct {
	// Members are ordered by the member's first appearance in the history.
	Members []*MemberAggregate

	// Unresolved holds one anomaly per commit whose author is not on the roster.
	Unresolved []domain.Anomaly

	// TeamMaxNonMerge is the largest non-merge commit count of any member.
	// It is computed from the full partition, before any paranoid narrowing.
	TeamMaxNonMerge int
}

// Aggregate groups classified commits by the member their author resolves to.
func Aggregate(commits []ClassifiedCommit, team *domain.TeamDirectory) *Aggregation {
	agg := &Aggregation{}
	byMember := make(map[domain.MemberID]*MemberAggregate)

	for _, c := range commits {
		member, ok := team.Resolve(c.AuthorName)
		if !ok {
			agg.Unresolved = append(agg.Unresolved, domain.Anomaly{
				Kind:       domain.AnomalyUnresolvedAuthor,
				AuthorName: c.AuthorName,
				CommitID:   c.ID,
			})
			continue
		}

		m, exists := byMember[member]
		if !exists {
			m = &MemberAggregate{Member: member, AuthorName: c.AuthorName}
			byMember[member] = m
			agg.Members = append(agg.Members, m)
		}
		m.Commits = append(m.Commits, c)
		if c.Merge {
			m.Merge = append(m.Merge, c)
		} else {
			m.NonMerge = append(m.NonMerge, c)
		}
	}

	for _, m := range agg.Members {
		if len(m.NonMerge) > agg.TeamMaxNonMerge {
			agg.TeamMaxNonMerge = len(m.NonMerge)
		}
	}
	return agg
}
