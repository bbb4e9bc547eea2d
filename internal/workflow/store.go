package workflow

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/openjournal/editorial-service/internal/database"
	"github.com/openjournal/editorial-service/internal/repository"
)

// Repos bundles the repositories the workflow services operate on. Inside
// InTransaction every repository is bound to the same transaction.
type Repos struct {
	Manuscripts repository.ManuscriptRepository
	Assignments repository.AssignmentRepository
	Reviewers   repository.ReviewerRepository
	Deadlines   repository.DeadlineRepository
	Outbox      repository.OutboxRepository
}

// Store provides repository access, plain for reads and transactional for
// writes that must commit together with their outbox events.
type Store interface {
	// Repos returns repositories bound to the connection pool.
	Repos() Repos

	// InTransaction runs fn against repositories bound to a single
	// transaction. The transaction commits if fn returns nil and rolls
	// back otherwise.
	InTransaction(ctx context.Context, fn func(Repos) error) error
}

type pgStore struct {
	db    *database.DB
	repos Repos
}

// NewStore creates a Store over the given database handle.
func NewStore(db *database.DB) Store {
	return &pgStore{
		db:    db,
		repos: newRepos(db),
	}
}

func newRepos(db repository.DBTX) Repos {
	return Repos{
		Manuscripts: repository.NewPgManuscriptRepository(db),
		Assignments: repository.NewPgAssignmentRepository(db),
		Reviewers:   repository.NewPgReviewerRepository(db),
		Deadlines:   repository.NewPgDeadlineRepository(db),
		Outbox:      repository.NewPgOutboxRepository(db),
	}
}

func (s *pgStore) Repos() Repos {
	return s.repos
}

func (s *pgStore) InTransaction(ctx context.Context, fn func(Repos) error) error {
	return s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		return fn(newRepos(tx))
	})
}
