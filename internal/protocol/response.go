package protocol

import (
	"strconv"
	"strings"

	"github.com/turntable-server/turntable/internal/domain"
)

// hasOsz is the osz-availability field of the five-field header. Checking
// package freshness needs endpoints outside this server's scope, so the
// literal never changes.
const hasOsz = "False"

// Page is everything the assembler needs to render one response. It is
// filled by the leaderboard service from a single consistent read and
// carries no behavior of its own.
type Page struct {
	// Beatmap is nil when resolution failed entirely.
	Beatmap *domain.Beatmap
	// Stale marks a resolvable beatmap whose stored checksum differs
	// from the one the client supplied.
	Stale bool

	SkipScores     bool
	RequestVersion int

	ScoreCount int
	// PersonalBest is nil when the requester has no qualifying score.
	PersonalBest *domain.Score
	PersonalRank int
	Scores       []domain.Score
}

// Assemble renders the full response body for one endpoint variant. Absent
// stages emit nothing, not an empty line; the result is newline-joined with
// no trailing newline.
func Assemble(v Variant, p Page) string {
	if p.Beatmap == nil {
		return sentinel(v, "-1")
	}
	if p.Stale {
		return sentinel(v, "1")
	}

	var lines []string

	switch v.Vocabulary {
	case VocabularySubmission:
		code := SubmissionFromStatus(p.Beatmap.Status, p.RequestVersion)
		if v.HeaderCounts {
			lines = append(lines, strings.Join([]string{
				strconv.Itoa(int(code)),
				hasOsz,
				strconv.Itoa(p.Beatmap.ID),
				strconv.Itoa(p.Beatmap.SetID),
				strconv.Itoa(p.ScoreCount),
			}, "|"))
		} else {
			lines = append(lines, strconv.Itoa(int(code)))
		}
	case VocabularyLegacy:
		lines = append(lines, strconv.Itoa(int(LegacyFromStatus(p.Beatmap.Status))))
	case VocabularyLegacyGated:
		if code := LegacyFromStatus(p.Beatmap.Status); code <= LegacyUnknown {
			lines = append(lines, strconv.Itoa(int(code)))
		}
	}

	if v.OffsetLine {
		lines = append(lines, strconv.Itoa(p.Beatmap.Offset))
	}
	if v.TitleLine {
		lines = append(lines, p.Beatmap.DisplayTitle)
	}
	if v.DiffLine {
		lines = append(lines, formatRating(p.Beatmap.Diff))
	}

	if v.RankedGate && (p.SkipScores || !p.Beatmap.Ranked()) {
		return strings.Join(lines, "\n")
	}

	if v.PersonalBest {
		if p.PersonalBest != nil {
			lines = append(lines, encodeLine(v, p.PersonalBest, p.PersonalRank, p.RequestVersion))
		} else {
			lines = append(lines, "")
		}
	}

	for i := range p.Scores {
		lines = append(lines, encodeLine(v, &p.Scores[i], i, p.RequestVersion))
	}

	return strings.Join(lines, "\n")
}

func encodeLine(v Variant, s *domain.Score, index int, requestVersion int) string {
	if v.Format == LineLegacy {
		return EncodeScoreLegacy(s, v.Separator)
	}
	return EncodeScore(s, index, requestVersion)
}

// formatRating renders the rating line. Integral values keep their decimal
// part: old clients were handed "0.0", never "0", and zero is the common
// rating.
func formatRating(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func sentinel(v Variant, code string) string {
	if v.CurrentSentinel {
		return code + "|false"
	}
	return code
}
