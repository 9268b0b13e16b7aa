package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is the body-composition objective a participant picks at onboarding.
type Goal string

const (
	GoalCut      Goal = "cut"
	GoalMaintain Goal = "maintain"
	GoalBulk     Goal = "bulk"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalCut, GoalMaintain, GoalBulk:
		return true
	}
	return false
}

type ChallengeStatus string

const (
	ChallengeUpcoming  ChallengeStatus = "upcoming"
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
)

// Challenge represents a paid fitness challenge.
type Challenge struct {
	ChallengeID      string
	Name             string
	StartDate        time.Time
	EndDate          time.Time
	EntryFee         decimal.Decimal
	PrizePool        decimal.Decimal
	Status           ChallengeStatus
	ParticipantCount int
}

// Participant is a user enrolled in a challenge.
type Participant struct {
	ChallengeID    string
	UserID         string
	Goal           Goal
	StartingWeight float64
}

// DailyCheckIn is the once-per-day log of a participant.
type DailyCheckIn struct {
	UserID           string
	ChallengeID      string
	Date             time.Time
	Weight           *float64
	WorkoutCompleted bool
	MealsLogged      bool
	Mood             int
	PhotoURL         string
	Notes            string
}

type ExerciseLog struct {
	Name          string
	SetsCompleted int
	Reps          []int
	Weight        *float64
}

// WorkoutLog is a single submitted workout session. Several logs may exist for the same week and day.
type WorkoutLog struct {
	UserID             string
	ChallengeID        string
	Date               time.Time
	Week               int
	Day                int
	ExercisesCompleted []ExerciseLog
	DurationMinutes    int
	PerceivedEffort    int
}

// ScoreRequest holds everything needed to score one participant.
type ScoreRequest struct {
	StartWeight    float64
	CurrentWeight  float64
	Goal           Goal
	WeeksElapsed   int
	WorkoutLogs    []WorkoutLog
	CheckIns       []DailyCheckIn
	PhotosUploaded int
	CommunityPosts int
}

// ScoreSummary is the rounded result of a scoring run.
type ScoreSummary struct {
	Total          float64
	Transformation float64
	Adherence      float64
	Engagement     float64

	WorkoutsCompleted int
	WorkoutsTotal     int
	MealsLogged       int
	CheckIns          int
	PhotosUploaded    int
}

// Score represents a participant's latest score within a challenge.
type Score struct {
	ChallengeID         string
	UserID              string
	Summary             ScoreSummary
	WeightChangePercent float64
	UpdateTime          time.Time
}

func (s Score) LeaderboardEntry() LeaderboardEntry {
	return LeaderboardEntry{
		UserID:              s.UserID,
		TotalScore:          s.Summary.Total,
		TransformationScore: s.Summary.Transformation,
		AdherenceScore:      s.Summary.Adherence,
		EngagementScore:     s.Summary.Engagement,
		WeightChangePercent: s.WeightChangePercent,
	}
}

// SortKey selects the score a leaderboard is ordered by.
type SortKey string

const (
	SortOverall        SortKey = "overall"
	SortTransformation SortKey = "transformation"
	SortAdherence      SortKey = "adherence"
	SortEngagement     SortKey = "engagement"
)

// Leaderboard represents the ranked participants of a challenge.
// Entries are sorted by the sort key in descending order.
type Leaderboard struct {
	ChallengeID string
	SortKey     SortKey
	Entries     []LeaderboardEntry
}

type LeaderboardEntry struct {
	Rank                int
	UserID              string
	TotalScore          float64
	TransformationScore float64
	AdherenceScore      float64
	EngagementScore     float64
	WeightChangePercent float64
}

// PrizeDistribution is the split of a prize pool. Margin is whatever the ratios leave unawarded.
type PrizeDistribution struct {
	Grand           decimal.Decimal
	Second          decimal.Decimal
	Third           decimal.Decimal
	MostImproved    decimal.Decimal
	BestConsistency decimal.Decimal
	Margin          decimal.Decimal
}

type PrizeCategory string

const (
	PrizeGrand           PrizeCategory = "grand"
	PrizeSecond          PrizeCategory = "second"
	PrizeThird           PrizeCategory = "third"
	PrizeMostImproved    PrizeCategory = "most_improved"
	PrizeBestConsistency PrizeCategory = "best_consistency"
)

// Award is a prize category paid to a user. UserID is empty when nobody qualified.
type Award struct {
	Category PrizeCategory
	UserID   string
	Amount   decimal.Decimal
}

// Settlement is the final outcome of a challenge.
type Settlement struct {
	ChallengeID  string
	PrizePool    decimal.Decimal
	Distribution PrizeDistribution
	Standings    []LeaderboardEntry
	Awards       []Award
}
