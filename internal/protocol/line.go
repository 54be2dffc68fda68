package protocol

import (
	"strconv"
	"strings"

	"github.com/turntable-server/turntable/internal/domain"
)

// timeLayout is the human-readable timestamp form old clients parse.
const timeLayout = "2006-01-02 15:04:05"

// formatBool renders a flag the way the client's parser reads it.
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// EncodeScore renders one current-format leaderboard line. Timestamps became
// Unix seconds in request version 2 and the trailing "has replay" flag was
// added in request version 4.
func EncodeScore(s *domain.Score, index int, requestVersion int) string {
	fields := []string{
		strconv.Itoa(s.ID),
		s.Username,
		strconv.FormatInt(s.TotalScore, 10),
		strconv.Itoa(s.MaxCombo),
		strconv.Itoa(s.Count50),
		strconv.Itoa(s.Count100),
		strconv.Itoa(s.Count300),
		strconv.Itoa(s.CountMiss),
		strconv.Itoa(s.CountKatu),
		strconv.Itoa(s.CountGeki),
		formatBool(s.Perfect),
		strconv.Itoa(int(s.Mods)),
		strconv.Itoa(s.UserID),
		strconv.Itoa(index),
	}

	if requestVersion <= 1 {
		fields = append(fields, s.SubmittedAt.Format(timeLayout))
	} else {
		fields = append(fields, strconv.FormatInt(s.SubmittedAt.Unix(), 10))
	}

	if requestVersion >= 4 {
		fields = append(fields, "1")
	}

	return strings.Join(fields, "|")
}

// EncodeScoreLegacy renders the pre-versioning line shape. The player id is
// repeated where the client expects an avatar file name, and the timestamp
// is always the human-readable form.
func EncodeScoreLegacy(s *domain.Score, separator string) string {
	return strings.Join([]string{
		strconv.Itoa(s.ID),
		s.Username,
		strconv.FormatInt(s.TotalScore, 10),
		strconv.Itoa(s.MaxCombo),
		strconv.Itoa(s.Count50),
		strconv.Itoa(s.Count100),
		strconv.Itoa(s.Count300),
		strconv.Itoa(s.CountMiss),
		strconv.Itoa(s.CountKatu),
		strconv.Itoa(s.CountGeki),
		formatBool(s.Perfect),
		strconv.Itoa(int(s.Mods)),
		strconv.Itoa(s.UserID),
		strconv.Itoa(s.UserID),
		s.SubmittedAt.Format(timeLayout),
	}, separator)
}
