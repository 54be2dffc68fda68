package protocol

import "github.com/turntable-server/turntable/internal/domain"

// SubmissionStatus is the status vocabulary spoken by clients that send a
// request version parameter. The numeric assignments are frozen by wire
// compatibility; they are a lookup table, not a formula.
type SubmissionStatus int

const (
	SubmissionGraveyard SubmissionStatus = -2
	SubmissionWIP       SubmissionStatus = -1
	SubmissionPending   SubmissionStatus = 0
	SubmissionRanked    SubmissionStatus = 1
	SubmissionApproved  SubmissionStatus = 2
	SubmissionQualified SubmissionStatus = 3
	SubmissionLoved     SubmissionStatus = 4
)

var submissionTable = map[domain.RankingStatus]SubmissionStatus{
	domain.StatusGraveyard: SubmissionGraveyard,
	domain.StatusWIP:       SubmissionWIP,
	domain.StatusPending:   SubmissionPending,
	domain.StatusRanked:    SubmissionRanked,
	domain.StatusApproved:  SubmissionApproved,
	domain.StatusQualified: SubmissionQualified,
	domain.StatusLoved:     SubmissionLoved,
}

// SubmissionFromStatus maps a stored ranking state to the wire code for the
// given request version. Request versions above 2 swap the Ranked and
// Qualified codes. That swap shipped to real clients and they depend on it,
// so it is permanent behavior, not a bug to fix.
func SubmissionFromStatus(s domain.RankingStatus, requestVersion int) SubmissionStatus {
	code, ok := submissionTable[s]
	if !ok {
		code = SubmissionPending
	}
	if requestVersion > 2 {
		switch code {
		case SubmissionRanked:
			return SubmissionQualified
		case SubmissionQualified:
			return SubmissionRanked
		}
	}
	return code
}

// LegacyStatus is the coarser status vocabulary spoken by clients that
// predate the request version parameter.
type LegacyStatus int

const (
	LegacyNotSubmitted LegacyStatus = -1
	LegacyPending      LegacyStatus = 0
	// LegacyUnknown is the sentinel one endpoint generation gates its
	// status line on: codes above it are never emitted there.
	LegacyUnknown  LegacyStatus = 1
	LegacyRanked   LegacyStatus = 2
	LegacyApproved LegacyStatus = 3
)

var legacyTable = map[domain.RankingStatus]LegacyStatus{
	domain.StatusGraveyard: LegacyPending,
	domain.StatusWIP:       LegacyPending,
	domain.StatusPending:   LegacyPending,
	domain.StatusQualified: LegacyPending,
	domain.StatusRanked:    LegacyRanked,
	domain.StatusLoved:     LegacyRanked,
	domain.StatusApproved:  LegacyApproved,
}

// LegacyFromStatus coarsens a stored ranking state onto the legacy scale.
func LegacyFromStatus(s domain.RankingStatus) LegacyStatus {
	code, ok := legacyTable[s]
	if !ok {
		return LegacyPending
	}
	return code
}
