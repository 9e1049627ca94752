package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	goerrors "github.com/goliatone/go-errors"
)

type Accounts interface {
	repository.Repository[*Account]

	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error)
	Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error)
	DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
	UpdateAvatarTx(ctx context.Context, tx bun.IDB, id uuid.UUID, avatarRef string) (*Account, error)
}

type accounts struct {
	repository.Repository[*Account]
	db        *bun.DB
	useHashid bool
}

var (
	_ Accounts                        = (*accounts)(nil)
	_ repository.Repository[*Account] = (*accounts)(nil)
)

type AccountsOption func(*accounts)

// WithHashidAccountIDs derives account ids from the email address.
func WithHashidAccountIDs(enabled bool) AccountsOption {
	return func(a *accounts) {
		a.useHashid = enabled
	}
}

func NewAccountsRepository(db *bun.DB, opts ...AccountsOption) Accounts {
	repo := repository.NewRepository[*Account](db, repository.ModelHandlers[*Account]{
		NewRecord: func() *Account { return &Account{} },
		GetID: func(a *Account) uuid.UUID {
			if a == nil {
				return uuid.Nil
			}
			return a.ID
		},
		SetID: func(a *Account, id uuid.UUID) {
			if a != nil {
				a.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	repoAccounts := &accounts{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoAccounts)
		}
	}
	return repoAccounts
}

func (a *accounts) GetByEmail(ctx context.Context, email string) (*Account, error) {
	return a.GetByEmailTx(ctx, a.db, email)
}

func (a *accounts) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*Account, error) {
	record := &Account{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", normalizeEmail(email)).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"email": email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) Create(ctx context.Context, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	return a.CreateTx(ctx, a.db, record, criteria...)
}

// CreateTx inserts the account. A duplicate email surfaces as a Conflict
// error so callers do not need to know the storage dialect.
func (a *accounts) CreateTx(ctx context.Context, tx bun.IDB, record *Account, criteria ...repository.InsertCriteria) (*Account, error) {
	a.prepareDefaults(record)

	q := tx.NewInsert().Model(record)
	for _, c := range criteria {
		q.Apply(c)
	}

	if _, err := q.Exec(ctx); err != nil {
		if IsUniqueViolation(err) {
			return nil, withMessage(ErrConflict, MsgEmailAlreadyVerified).
				WithMetadata(map[string]any{
					"email": record.Email,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *accounts) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*Account)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	return nil
}

func (a *accounts) UpdateAvatarTx(ctx context.Context, tx bun.IDB, id uuid.UUID, avatarRef string) (*Account, error) {
	now := time.Now().UTC()
	res, err := tx.NewUpdate().
		Model((*Account)(nil)).
		Set("avatar_ref = ?", avatarRef).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, repository.NewRecordNotFound().
			WithMetadata(map[string]any{
				"id": id.String(),
			})
	}

	record := &Account{}
	if err := tx.NewSelect().Model(record).Where("?TableAlias.id = ?", id).Scan(ctx); err != nil {
		return nil, err
	}
	return record, nil
}

func (a *accounts) prepareDefaults(record *Account) {
	record.Email = normalizeEmail(record.Email)
	record.FullName = strings.TrimSpace(record.FullName)

	if record.ID != uuid.Nil {
		return
	}

	if a.useHashid {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
			return
		}
	}
	record.ID = uuid.New()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// IsUniqueViolation reports whether err is a unique constraint failure from
// postgres or sqlite.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if goerrors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.UniqueViolation
	}

	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
