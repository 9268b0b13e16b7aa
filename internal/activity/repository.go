// Package activity reads participant activity from the challenge database and writes final standings.
package activity

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/victornm/fitscore/internal/domain"
	"github.com/victornm/fitscore/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(c Config) *Repository {
	return &Repository{
		db: c.DB,
	}
}

func (r *Repository) GetChallenge(ctx context.Context, challengeID string) (*domain.Challenge, error) {
	const stmt = `
SELECT id, name, start_date, end_date, entry_fee, prize_pool, status, participant_count
FROM challenges
WHERE id = $1;`

	var c domain.Challenge
	err := r.db.QueryRow(ctx, stmt, challengeID).Scan(
		&c.ChallengeID, &c.Name, &c.StartDate, &c.EndDate,
		&c.EntryFee, &c.PrizePool, &c.Status, &c.ParticipantCount,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound, errors.WithMessagef("challenge not found: challenge=%s", challengeID))
	}
	if err != nil {
		return nil, fmt.Errorf("get challenge: %w", err)
	}

	return &c, nil
}

const selectParticipants = `
SELECT p.challenge_id, p.user_id, up.goal, COALESCE(p.starting_weight, up.starting_weight, 0)
FROM challenge_participants p
JOIN user_profiles up ON up.user_id = p.user_id`

func (r *Repository) GetParticipant(ctx context.Context, challengeID, userID string) (*domain.Participant, error) {
	const stmt = selectParticipants + `
WHERE p.challenge_id = $1 AND p.user_id = $2;`

	rows, err := r.db.Query(ctx, stmt, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanParticipant)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("participant not found: challenge=%s user=%s", challengeID, userID))
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	return &p, nil
}

func (r *Repository) ListParticipants(ctx context.Context, challengeID string) ([]domain.Participant, error) {
	const stmt = selectParticipants + `
WHERE p.challenge_id = $1
ORDER BY p.user_id;`

	rows, err := r.db.Query(ctx, stmt, challengeID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	ps, err := pgx.CollectRows(rows, scanParticipant)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}

	return ps, nil
}

func scanParticipant(r pgx.CollectableRow) (domain.Participant, error) {
	var (
		p    domain.Participant
		goal string
	)
	if err := r.Scan(&p.ChallengeID, &p.UserID, &goal, &p.StartingWeight); err != nil {
		return domain.Participant{}, err
	}
	p.Goal = domain.Goal(goal)
	return p, nil
}

// ListCheckIns returns the check-ins of a participant, oldest first.
func (r *Repository) ListCheckIns(ctx context.Context, challengeID, userID string) ([]domain.DailyCheckIn, error) {
	const stmt = `
SELECT user_id, challenge_id, date, weight, workout_completed, meals_logged, mood,
	COALESCE(photo_url, ''), COALESCE(notes, '')
FROM daily_check_ins
WHERE challenge_id = $1 AND user_id = $2
ORDER BY date ASC;`

	rows, err := r.db.Query(ctx, stmt, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}

	cs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.DailyCheckIn, error) {
		var c domain.DailyCheckIn
		err := r.Scan(&c.UserID, &c.ChallengeID, &c.Date, &c.Weight,
			&c.WorkoutCompleted, &c.MealsLogged, &c.Mood, &c.PhotoURL, &c.Notes)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}

	return cs, nil
}

// exerciseLog is the JSON form of an exercise in workout_logs.exercises_completed.
type exerciseLog struct {
	Name          string   `json:"name"`
	SetsCompleted int      `json:"sets_completed"`
	Reps          []int    `json:"reps"`
	Weight        *float64 `json:"weight,omitempty"`
}

func (r *Repository) ListWorkoutLogs(ctx context.Context, challengeID, userID string) ([]domain.WorkoutLog, error) {
	const stmt = `
SELECT user_id, challenge_id, date, week, day, exercises_completed, duration_minutes, perceived_effort
FROM workout_logs
WHERE challenge_id = $1 AND user_id = $2
ORDER BY date ASC, week ASC, day ASC;`

	rows, err := r.db.Query(ctx, stmt, challengeID, userID)
	if err != nil {
		return nil, fmt.Errorf("list workout logs: %w", err)
	}

	logs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.WorkoutLog, error) {
		var (
			l         domain.WorkoutLog
			exercises []exerciseLog
		)
		if err := r.Scan(&l.UserID, &l.ChallengeID, &l.Date, &l.Week, &l.Day,
			&exercises, &l.DurationMinutes, &l.PerceivedEffort); err != nil {
			return domain.WorkoutLog{}, err
		}

		l.ExercisesCompleted = make([]domain.ExerciseLog, 0, len(exercises))
		for _, e := range exercises {
			l.ExercisesCompleted = append(l.ExercisesCompleted, domain.ExerciseLog(e))
		}
		return l, nil
	})
	if err != nil {
		return nil, fmt.Errorf("list workout logs: %w", err)
	}

	return logs, nil
}

func (r *Repository) CountCommunityPosts(ctx context.Context, challengeID, userID string) (int, error) {
	const stmt = `SELECT COUNT(*) FROM community_posts WHERE challenge_id = $1 AND user_id = $2;`

	var n int
	if err := r.db.QueryRow(ctx, stmt, challengeID, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count community posts: %w", err)
	}

	return n, nil
}

// SaveStandings records the final rank and score of every participant and completes the challenge.
func (r *Repository) SaveStandings(ctx context.Context, challengeID string, standings []domain.LeaderboardEntry) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		updParticipantStmt = `UPDATE challenge_participants SET rank = $3, total_score = $4 WHERE challenge_id = $1 AND user_id = $2;`
		updChallengeStmt   = `UPDATE challenges SET status = $2, updated_at = $3 WHERE id = $1 AND status <> $2;`
	)

	batch := &pgx.Batch{}
	for _, e := range standings {
		batch.Queue(updParticipantStmt, challengeID, e.UserID, e.Rank, decimal.NewFromFloat(e.TotalScore))
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("update participants: %w", err)
	}

	tag, err := tx.Exec(ctx, updChallengeStmt, challengeID, domain.ChallengeCompleted, time.Now())
	if err != nil {
		return fmt.Errorf("complete challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("challenge already completed: challenge=%s", challengeID))
	}

	return tx.Commit(ctx)
}
