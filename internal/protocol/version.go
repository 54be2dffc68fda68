package protocol

// StatusVocabulary selects which status code space a variant speaks. Every
// variant uses exactly one; the two are never mixed in a single response.
type StatusVocabulary int

const (
	// VocabularyNone omits the status line entirely.
	VocabularyNone StatusVocabulary = iota
	// VocabularySubmission is the request-version-aware vocabulary.
	VocabularySubmission
	// VocabularyLegacy is the coarse vocabulary of pre-versioning clients.
	VocabularyLegacy
	// VocabularyLegacyGated emits the legacy code only while it is at or
	// below LegacyUnknown; ranked statuses suppress the line.
	VocabularyLegacyGated
)

// LineFormat selects the score line shape.
type LineFormat int

const (
	LineCurrent LineFormat = iota
	LineLegacy
)

// Variant freezes the response shape of one historical endpoint generation.
// Each shipped combination is permanent: changing any field breaks the real
// clients that generation serves.
type Variant struct {
	Name       string
	Vocabulary StatusVocabulary

	// HeaderCounts extends the status line to the five-field header
	// carrying the osz flag, beatmap id, set id and score count.
	HeaderCounts bool

	OffsetLine   bool
	TitleLine    bool
	DiffLine     bool
	PersonalBest bool

	Format    LineFormat
	Separator string

	// CurrentSentinel switches the not-submitted/update-available
	// responses from "-1"/"1" to "-1|false"/"1|false".
	CurrentSentinel bool

	// ChecksumOnly resolves by checksum alone and skips the staleness
	// check; the oldest client never sends a file name.
	ChecksumOnly bool

	// RankedGate stops the response after the metadata lines when the
	// beatmap is unranked or the client asked to skip scores.
	RankedGate bool

	// SelectsRanking honors the client's ranking type parameter; older
	// generations always get the unfiltered leaderboard.
	SelectsRanking bool
}

var (
	// VariantCurrent serves the newest client generations. The request
	// version parameter further adjusts timestamps, the replay flag and
	// the Ranked/Qualified swap.
	VariantCurrent = Variant{
		Name:            "osz2-getscores",
		Vocabulary:      VocabularySubmission,
		HeaderCounts:    true,
		OffsetLine:      true,
		TitleLine:       true,
		DiffLine:        true,
		PersonalBest:    true,
		Format:          LineCurrent,
		Separator:       "|",
		CurrentSentinel: true,
		RankedGate:      true,
		SelectsRanking:  true,
	}

	VariantGetScores6 = Variant{
		Name:         "getscores6",
		Vocabulary:   VocabularyLegacy,
		OffsetLine:   true,
		TitleLine:    true,
		DiffLine:     true,
		PersonalBest: true,
		Format:       LineCurrent,
		Separator:    "|",
		RankedGate:   true,
	}

	// VariantGetScores5 dropped the trailing rating line.
	VariantGetScores5 = Variant{
		Name:         "getscores5",
		Vocabulary:   VocabularyLegacy,
		OffsetLine:   true,
		TitleLine:    true,
		PersonalBest: true,
		Format:       LineCurrent,
		Separator:    "|",
		RankedGate:   true,
	}

	// VariantGetScores4 dropped the beatmap metadata lines.
	VariantGetScores4 = Variant{
		Name:         "getscores4",
		Vocabulary:   VocabularyLegacy,
		PersonalBest: true,
		Format:       LineCurrent,
		Separator:    "|",
		RankedGate:   true,
	}

	// VariantGetScores3 predates per-player identity on this endpoint:
	// no personal best line.
	VariantGetScores3 = Variant{
		Name:       "getscores3",
		Vocabulary: VocabularyLegacy,
		Format:     LineLegacy,
		Separator:  "|",
		RankedGate: true,
	}

	// VariantGetScores2 response shape differs across undocumented
	// client sub-versions with no reliable signal to tell them apart;
	// this is the shape the majority of surviving clients accept.
	VariantGetScores2 = Variant{
		Name:       "getscores2",
		Vocabulary: VocabularyLegacyGated,
		Format:     LineLegacy,
		Separator:  "|",
		RankedGate: true,
	}

	// VariantGetScores1 is the oldest generation: checksum lookup only,
	// colon-separated score lines and nothing else.
	VariantGetScores1 = Variant{
		Name:         "getscores",
		Vocabulary:   VocabularyNone,
		Format:       LineLegacy,
		Separator:    ":",
		ChecksumOnly: true,
	}
)
