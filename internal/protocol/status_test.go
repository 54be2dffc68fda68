package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/turntable-server/turntable/internal/domain"
)

func TestSubmissionFromStatus(t *testing.T) {
	tests := []struct {
		name    string
		status  domain.RankingStatus
		version int
		want    SubmissionStatus
	}{
		{"graveyard v1", domain.StatusGraveyard, 1, SubmissionGraveyard},
		{"wip v1", domain.StatusWIP, 1, SubmissionWIP},
		{"pending v1", domain.StatusPending, 1, SubmissionPending},
		{"ranked v1", domain.StatusRanked, 1, SubmissionRanked},
		{"approved v1", domain.StatusApproved, 1, SubmissionApproved},
		{"qualified v1", domain.StatusQualified, 1, SubmissionQualified},
		{"loved v1", domain.StatusLoved, 1, SubmissionLoved},

		{"ranked v2 unswapped", domain.StatusRanked, 2, SubmissionRanked},
		{"qualified v2 unswapped", domain.StatusQualified, 2, SubmissionQualified},

		// Request versions above 2 swap Ranked and Qualified.
		{"ranked v3 swapped", domain.StatusRanked, 3, SubmissionQualified},
		{"qualified v3 swapped", domain.StatusQualified, 3, SubmissionRanked},
		{"ranked v4 swapped", domain.StatusRanked, 4, SubmissionQualified},
		{"approved v3 untouched", domain.StatusApproved, 3, SubmissionApproved},
		{"loved v3 untouched", domain.StatusLoved, 3, SubmissionLoved},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SubmissionFromStatus(tt.status, tt.version))
		})
	}
}

func TestSubmissionFromStatusSwapTable(t *testing.T) {
	// Ranked above version 2 must encode to exactly the code Qualified
	// encodes to at or below version 2, and vice versa.
	assert.Equal(t,
		SubmissionFromStatus(domain.StatusQualified, 2),
		SubmissionFromStatus(domain.StatusRanked, 3),
	)
	assert.Equal(t,
		SubmissionFromStatus(domain.StatusRanked, 2),
		SubmissionFromStatus(domain.StatusQualified, 3),
	)
}

func TestStatusTranslationIsPure(t *testing.T) {
	statuses := []domain.RankingStatus{
		domain.StatusGraveyard, domain.StatusWIP, domain.StatusPending,
		domain.StatusRanked, domain.StatusApproved, domain.StatusQualified,
		domain.StatusLoved,
	}
	for _, s := range statuses {
		for version := 0; version <= 5; version++ {
			first := SubmissionFromStatus(s, version)
			for i := 0; i < 3; i++ {
				assert.Equal(t, first, SubmissionFromStatus(s, version))
			}
		}
		first := LegacyFromStatus(s)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, LegacyFromStatus(s))
		}
	}
}

func TestLegacyFromStatus(t *testing.T) {
	tests := []struct {
		status domain.RankingStatus
		want   LegacyStatus
	}{
		{domain.StatusGraveyard, LegacyPending},
		{domain.StatusWIP, LegacyPending},
		{domain.StatusPending, LegacyPending},
		{domain.StatusQualified, LegacyPending},
		{domain.StatusRanked, LegacyRanked},
		{domain.StatusLoved, LegacyRanked},
		{domain.StatusApproved, LegacyApproved},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LegacyFromStatus(tt.status))
	}
}
