package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turntable-server/turntable/internal/domain"
)

func sampleBeatmap(status domain.RankingStatus) *domain.Beatmap {
	return &domain.Beatmap{
		ID:           1337,
		SetID:        204,
		Checksum:     "d41d8cd98f00b204e9800998ecf8427e",
		Filename:     "artist - title (mapper) [hard].osu",
		Status:       status,
		DisplayTitle: "[bold:0,size:20]artist|title",
		Offset:       -12,
		Diff:         9.5,
	}
}

func TestAssembleNotSubmitted(t *testing.T) {
	assert.Equal(t, "-1|false", Assemble(VariantCurrent, Page{}))
	assert.Equal(t, "-1", Assemble(VariantGetScores6, Page{}))
	assert.Equal(t, "-1", Assemble(VariantGetScores1, Page{}))
}

func TestAssembleStale(t *testing.T) {
	page := Page{Beatmap: sampleBeatmap(domain.StatusRanked), Stale: true}
	assert.Equal(t, "1|false", Assemble(VariantCurrent, page))
	assert.Equal(t, "1", Assemble(VariantGetScores3, page))
}

func TestAssembleCurrentHeader(t *testing.T) {
	score := sampleScore()
	page := Page{
		Beatmap:        sampleBeatmap(domain.StatusRanked),
		RequestVersion: 1,
		ScoreCount:     42,
		PersonalBest:   &score,
		PersonalRank:   3,
		Scores:         []domain.Score{score},
	}
	lines := strings.Split(Assemble(VariantCurrent, page), "\n")
	require.Len(t, lines, 6)

	assert.Equal(t, "1|False|1337|204|42", lines[0])
	assert.Equal(t, "-12", lines[1])
	assert.Equal(t, "[bold:0,size:20]artist|title", lines[2])
	assert.Equal(t, "9.5", lines[3])
	// Personal best carries its own rank, the list ranks from zero.
	assert.Equal(t, EncodeScore(&score, 3, 1), lines[4])
	assert.Equal(t, EncodeScore(&score, 0, 1), lines[5])
}

func TestAssembleSwappedHeaderStatus(t *testing.T) {
	page := Page{
		Beatmap:        sampleBeatmap(domain.StatusRanked),
		RequestVersion: 3,
		SkipScores:     true,
	}
	lines := strings.Split(Assemble(VariantCurrent, page), "\n")
	assert.Equal(t, "3|False|1337|204|0", lines[0])
}

func TestAssembleRatingLineKeepsDecimalPart(t *testing.T) {
	// Old clients always received a decimal point on the rating line,
	// "0.0" for unrated maps included.
	tests := []struct {
		diff float64
		want string
	}{
		{0, "0.0"},
		{10, "10.0"},
		{5.25, "5.25"},
		{9.5, "9.5"},
	}
	for _, tt := range tests {
		beatmap := sampleBeatmap(domain.StatusRanked)
		beatmap.Diff = tt.diff
		page := Page{Beatmap: beatmap, SkipScores: true}

		lines := strings.Split(Assemble(VariantCurrent, page), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, tt.want, lines[3])

		lines = strings.Split(Assemble(VariantGetScores6, page), "\n")
		require.Len(t, lines, 4)
		assert.Equal(t, tt.want, lines[3])
	}
}

func TestAssembleMetadataOnlyWhenUnranked(t *testing.T) {
	score := sampleScore()
	page := Page{
		Beatmap: sampleBeatmap(domain.StatusPending),
		// Scores are present in the page, the gate must still drop
		// them.
		PersonalBest: &score,
		Scores:       []domain.Score{score},
	}

	lines := strings.Split(Assemble(VariantGetScores6, page), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "0", lines[0])
	assert.Equal(t, "-12", lines[1])

	// getscores5 dropped the rating line.
	assert.Len(t, strings.Split(Assemble(VariantGetScores5, page), "\n"), 3)
	// getscores4 dropped the metadata lines entirely.
	assert.Equal(t, "0", Assemble(VariantGetScores4, page))
}

func TestAssembleSkipScores(t *testing.T) {
	score := sampleScore()
	page := Page{
		Beatmap:      sampleBeatmap(domain.StatusRanked),
		SkipScores:   true,
		PersonalBest: &score,
		Scores:       []domain.Score{score},
	}
	lines := strings.Split(Assemble(VariantGetScores6, page), "\n")
	require.Len(t, lines, 4)
	for _, line := range lines {
		assert.False(t, strings.Contains(line, "peppy"))
	}
}

func TestAssembleEmptyPersonalBestLine(t *testing.T) {
	score := sampleScore()
	page := Page{
		Beatmap:        sampleBeatmap(domain.StatusRanked),
		RequestVersion: 1,
		Scores:         []domain.Score{score, score},
	}
	lines := strings.Split(Assemble(VariantCurrent, page), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "", lines[4])
}

func TestAssembleGatedLegacyStatus(t *testing.T) {
	score := sampleScore()

	// Pending maps below the Unknown sentinel: the line is emitted.
	pending := Page{Beatmap: sampleBeatmap(domain.StatusPending)}
	assert.Equal(t, "0", Assemble(VariantGetScores2, pending))

	// Ranked maps above it: the status line disappears and the
	// response starts with score lines.
	ranked := Page{
		Beatmap: sampleBeatmap(domain.StatusRanked),
		Scores:  []domain.Score{score},
	}
	lines := strings.Split(Assemble(VariantGetScores2, ranked), "\n")
	require.Len(t, lines, 1)
	assert.Equal(t, EncodeScoreLegacy(&score, "|"), lines[0])
}

func TestAssembleOldestVariant(t *testing.T) {
	score := sampleScore()
	page := Page{
		// The oldest generation has no ranked gate and no status
		// line: scores come back even for a pending map.
		Beatmap: sampleBeatmap(domain.StatusPending),
		Scores:  []domain.Score{score, score},
	}
	lines := strings.Split(Assemble(VariantGetScores1, page), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, EncodeScoreLegacy(&score, ":"), line)
		assert.False(t, strings.Contains(line, "|"))
	}
}

func TestAssembleNoTrailingNewline(t *testing.T) {
	page := Page{Beatmap: sampleBeatmap(domain.StatusRanked), SkipScores: true}
	body := Assemble(VariantCurrent, page)
	assert.False(t, strings.HasSuffix(body, "\n"))
}
