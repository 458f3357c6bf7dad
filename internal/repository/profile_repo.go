package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"github.com/willjrcristo/storefront-billing/internal/domain"
)

var (
	ErrProfileNotFound = errors.New("perfil não encontrado")
	ErrProfileExists   = errors.New("perfil já existe")
)

// ProfileRepository define as operações de persistência dos perfis.
// O reconciliador de webhooks só usa os métodos de leitura e os Apply*: ele nunca cria perfis.
type ProfileRepository interface {
	Create(ctx context.Context, p domain.Profile) error
	GetByID(ctx context.Context, id string) (domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (domain.Profile, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (domain.Profile, error)

	// ApplyByEmail e ApplyBySubscriptionID gravam a atualização numa única instrução.
	// Retornam ErrProfileNotFound quando nenhuma linha casa com a chave.
	ApplyByEmail(ctx context.Context, email string, u domain.ProfileUpdate) error
	ApplyBySubscriptionID(ctx context.Context, subscriptionID string, u domain.ProfileUpdate) error
}

type profileRepository struct {
	store
}

// NewProfileRepository cria o repositório de perfis sobre o banco já migrado.
func NewProfileRepository(db *sql.DB, driver string) ProfileRepository {
	return &profileRepository{store{db: db, driver: driver}}
}

const profileColumns = `id, email, stripe_customer_id, stripe_subscription_id, subscription_status,
	subscription_plan, subscription_current_period_end, last_event_at, created_at, updated_at`

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (r *profileRepository) Create(ctx context.Context, p domain.Profile) error {
	if p.SubscriptionStatus == "" {
		p.SubscriptionStatus = domain.StatusNone
	}
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	_, err := r.db.ExecContext(ctx, r.q(`INSERT INTO profiles (
		id, email, stripe_customer_id, stripe_subscription_id, subscription_status,
		subscription_plan, subscription_current_period_end, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		p.ID,
		normalizeEmail(p.Email),
		nullString(p.StripeCustomerID),
		nullString(p.StripeSubscriptionID),
		string(p.SubscriptionStatus),
		nullString(string(p.SubscriptionPlan)),
		nullTime(p.SubscriptionCurrentPeriodEnd),
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return ErrProfileExists
	}
	return err
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (domain.Profile, error) {
	return r.getBy(ctx, "id", id)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (domain.Profile, error) {
	return r.getBy(ctx, "email", normalizeEmail(email))
}

func (r *profileRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (domain.Profile, error) {
	return r.getBy(ctx, "stripe_subscription_id", subscriptionID)
}

func (r *profileRepository) ApplyByEmail(ctx context.Context, email string, u domain.ProfileUpdate) error {
	return r.apply(ctx, "email", normalizeEmail(email), u)
}

func (r *profileRepository) ApplyBySubscriptionID(ctx context.Context, subscriptionID string, u domain.ProfileUpdate) error {
	return r.apply(ctx, "stripe_subscription_id", subscriptionID, u)
}

// getBy só é chamado com nomes de coluna fixos deste arquivo.
func (r *profileRepository) getBy(ctx context.Context, column, value string) (domain.Profile, error) {
	if value == "" {
		return domain.Profile{}, ErrProfileNotFound
	}
	row := r.db.QueryRowContext(ctx, r.q("SELECT "+profileColumns+" FROM profiles WHERE "+column+" = ?"), value)

	var (
		p                          domain.Profile
		customerID, subscriptionID sql.NullString
		plan                       sql.NullString
		status                     string
		periodEnd                  sql.NullTime
		lastEventAt                sql.NullInt64
	)
	err := row.Scan(&p.ID, &p.Email, &customerID, &subscriptionID, &status,
		&plan, &periodEnd, &lastEventAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Profile{}, ErrProfileNotFound
		}
		return domain.Profile{}, err
	}

	p.StripeCustomerID = customerID.String
	p.StripeSubscriptionID = subscriptionID.String
	p.SubscriptionStatus = domain.SubscriptionStatus(status)
	p.SubscriptionPlan = domain.Plan(plan.String)
	if periodEnd.Valid {
		t := periodEnd.Time.UTC()
		p.SubscriptionCurrentPeriodEnd = &t
	}
	if lastEventAt.Valid {
		t := time.Unix(lastEventAt.Int64, 0).UTC()
		p.LastEventAt = &t
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

// apply monta um UPDATE onde cada coluna só é sobrescrita se o evento não for
// mais antigo que o último aplicado. Eventos atrasados apenas preenchem campos vazios.
// Todas as expressões CASE enxergam os valores antigos da linha.
func (r *profileRepository) apply(ctx context.Context, keyColumn, keyValue string, u domain.ProfileUpdate) error {
	if keyValue == "" {
		return ErrProfileNotFound
	}

	eventAt := u.EventAt.Unix()
	const fresh = "(last_event_at IS NULL OR last_event_at <= ?)"

	var (
		sets []string
		args []any
	)
	set := func(column, emptyCond string, value any) {
		sets = append(sets, fmt.Sprintf("%s = CASE WHEN %s OR %s THEN ? ELSE %s END", column, fresh, emptyCond, column))
		args = append(args, eventAt, value)
	}

	if u.StripeCustomerID != nil {
		set("stripe_customer_id", "stripe_customer_id IS NULL", nullString(*u.StripeCustomerID))
	}
	if u.StripeSubscriptionID != nil {
		set("stripe_subscription_id", "stripe_subscription_id IS NULL", nullString(*u.StripeSubscriptionID))
	}
	if u.SubscriptionStatus != nil {
		set("subscription_status", "subscription_status = 'none'", string(*u.SubscriptionStatus))
	}
	if u.SubscriptionPlan != nil {
		set("subscription_plan", "subscription_plan IS NULL", string(*u.SubscriptionPlan))
	}
	if u.CurrentPeriodEnd != nil {
		set("subscription_current_period_end", "subscription_current_period_end IS NULL", u.CurrentPeriodEnd.UTC())
	}

	updatedAt := u.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}
	sets = append(sets,
		"last_event_at = CASE WHEN last_event_at IS NULL OR last_event_at < ? THEN ? ELSE last_event_at END",
		"updated_at = ?",
	)
	args = append(args, eventAt, eventAt, updatedAt.UTC(), keyValue)

	query := "UPDATE profiles SET " + strings.Join(sets, ", ") + " WHERE " + keyColumn + " = ?"
	res, err := r.db.ExecContext(ctx, r.q(query), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: stripe_subscription_id já pertence a outro perfil", ErrProfileExists)
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

// isUniqueViolation reconhece a violação de UNIQUE nos dois dialetos.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
