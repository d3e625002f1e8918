package store

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/Alijeyrad/ambulanz_backend/internal/appointment"
	"github.com/Alijeyrad/ambulanz_backend/pkg/database"
)

// insertBatch keeps a single INSERT well below the Postgres bind parameter limit.
const insertBatch = 1000

// Postgres persists the schedule in the appointments table.
type Postgres struct {
	drv dialect.Driver
}

func NewPostgres(drv dialect.Driver) *Postgres {
	return &Postgres{drv: drv}
}

// Migrate creates the appointments table and its indexes.
func (p *Postgres) Migrate(ctx context.Context) error {
	return database.MigrateEnt(ctx, p.drv, Tables...)
}

func (p *Postgres) Load(ctx context.Context) ([]appointment.Record, error) {
	query, args := entsql.Dialect(dialect.Postgres).
		Select(dataColumns...).
		From(entsql.Table(AppointmentsTable)).
		OrderBy("date", "id").
		Query()

	rows := &entsql.Rows{}
	if err := p.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	var out []appointment.Record
	for rows.Next() {
		var (
			r             appointment.Record
			client, kind  sql.NullString
			number, hours sql.NullInt64
		)
		if err := rows.Scan(&r.Date, &client, &r.SessionType, &number, &kind, &hours); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		r.Date = appointment.Day(r.Date)
		if client.Valid {
			r.ClientID = &client.String
		}
		if number.Valid {
			n := int(number.Int64)
			r.SequenceNumber = &n
		}
		if kind.Valid {
			r.SupervisionKind = &kind.String
		}
		if hours.Valid {
			h := int(hours.Int64)
			r.SupervisionHours = &h
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return out, nil
}

// Save rewrites the whole table in one transaction.
func (p *Postgres) Save(ctx context.Context, records []appointment.Record) error {
	return p.withTx(ctx, func(tx dialect.Tx) error {
		query, args := entsql.Dialect(dialect.Postgres).Delete(AppointmentsTable).Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("clear appointments: %w", err)
		}
		return insertRecords(ctx, tx, records)
	})
}

// SaveClients rewrites the rows of the given clients in one transaction.
func (p *Postgres) SaveClients(ctx context.Context, clientIDs []string, records []appointment.Record) error {
	if len(clientIDs) == 0 {
		return nil
	}
	ids := make([]any, len(clientIDs))
	for i, id := range clientIDs {
		ids[i] = id
	}

	return p.withTx(ctx, func(tx dialect.Tx) error {
		query, args := entsql.Dialect(dialect.Postgres).
			Delete(AppointmentsTable).
			Where(entsql.In("client_id", ids...)).
			Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("delete client appointments: %w", err)
		}
		return insertRecords(ctx, tx, records)
	})
}

func (p *Postgres) withTx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := p.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: rolling back transaction: %v", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertRecords(ctx context.Context, tx dialect.Tx, records []appointment.Record) error {
	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))

		insert := entsql.Dialect(dialect.Postgres).
			Insert(AppointmentsTable).
			Columns(dataColumns...)
		for _, r := range records[start:end] {
			insert.Values(
				appointment.Day(r.Date),
				nullString(r.ClientID),
				r.SessionType,
				nullInt(r.SequenceNumber),
				nullString(r.SupervisionKind),
				nullInt(r.SupervisionHours),
			)
		}
		query, args := insert.Query()
		if err := tx.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("insert appointments: %w", err)
		}
	}
	return nil
}

func nullString(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return int64(*p)
}
