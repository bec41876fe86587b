package book

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderColumns = map[string]string{
	"price":  "b.price",
	"author": "b.author",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type PostgresRepo struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresRepo(db *pgxpool.Pool, timeout time.Duration) *PostgresRepo {
	return &PostgresRepo{db: db, timeout: timeout}
}

func (r *PostgresRepo) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// selectBooks selects books with their owner name and the number of
// relations that like them.
func selectBooks() sq.SelectBuilder {
	return psql.
		Select(
			"b.id", "b.name", "b.price", "b.author", "b.owner_id", "b.rating",
			"COALESCE(u.username, '') AS owner_name",
			"COUNT(r.id) FILTER (WHERE r.liked) AS annotated_likes",
		).
		From("books b").
		LeftJoin("users u ON u.id = b.owner_id").
		LeftJoin("user_book_relations r ON r.book_id = b.id").
		GroupBy("b.id", "u.username")
}

func buildListQuery(q Query) sq.SelectBuilder {
	query := selectBooks()

	if q.Price != nil {
		query = query.Where(sq.Eq{"b.price": *q.Price})
	}

	if q.Search != "" {
		pattern := "%" + likeEscaper.Replace(q.Search) + "%"
		query = query.Where(sq.Or{
			sq.ILike{"b.name": pattern},
			sq.ILike{"b.author": pattern},
		})
	}

	orderBy := make([]string, 0, len(q.Ordering)+1)
	for _, o := range q.Ordering {
		col, ok := orderColumns[o.Field]
		if !ok {
			continue
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		orderBy = append(orderBy, col+" "+dir)
	}
	orderBy = append(orderBy, "b.id ASC")
	return query.OrderBy(orderBy...)
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Book, error) {
	sqlStr, args, err := buildListQuery(q).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	books, err := r.queryBooks(timeoutCtx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if err := r.attachReaders(timeoutCtx, books); err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	return books, nil
}

func (r *PostgresRepo) GetByID(ctx context.Context, id int64) (Book, error) {
	sqlStr, args, err := selectBooks().Where(sq.Eq{"b.id": id}).ToSql()
	if err != nil {
		return Book{}, fmt.Errorf("build get query: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	books, err := r.queryBooks(timeoutCtx, sqlStr, args...)
	if err != nil {
		return Book{}, fmt.Errorf("get book %d: %w", id, err)
	}
	if len(books) == 0 {
		return Book{}, ErrNotFound
	}
	if err := r.attachReaders(timeoutCtx, books); err != nil {
		return Book{}, fmt.Errorf("get readers of book %d: %w", id, err)
	}
	return books[0], nil
}

func (r *PostgresRepo) queryBooks(ctx context.Context, sqlStr string, args ...any) ([]Book, error) {
	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Book{}
	for rows.Next() {
		var b Book
		if err := rows.Scan(
			&b.ID, &b.Name, &b.Price, &b.Author, &b.OwnerID, &b.Rating,
			&b.OwnerName, &b.AnnotatedLikes,
		); err != nil {
			return nil, err
		}
		b.Readers = []Reader{}
		out = append(out, b)
	}
	return out, rows.Err()
}

type readerRow struct {
	BookID    int64
	FirstName string
	LastName  string
}

func (r *PostgresRepo) attachReaders(ctx context.Context, books []Book) error {
	if len(books) == 0 {
		return nil
	}
	ids := lo.Map(books, func(b Book, _ int) int64 { return b.ID })

	sqlStr, args, err := psql.
		Select("r.book_id", "u.first_name", "u.last_name").
		From("user_book_relations r").
		Join("users u ON u.id = r.user_id").
		Where(sq.Eq{"r.book_id": ids}).
		OrderBy("r.id").
		ToSql()
	if err != nil {
		return err
	}

	rows, err := r.db.Query(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	readers, err := pgx.CollectRows(rows, pgx.RowToStructByPos[readerRow])
	if err != nil {
		return err
	}

	byBook := lo.GroupBy(readers, func(rr readerRow) int64 { return rr.BookID })
	for i := range books {
		books[i].Readers = lo.Map(byBook[books[i].ID], func(rr readerRow, _ int) Reader {
			return Reader{FirstName: rr.FirstName, LastName: rr.LastName}
		})
	}
	return nil
}

func (r *PostgresRepo) Create(ctx context.Context, in Input, ownerID string) (int64, error) {
	sqlStr, args, err := psql.
		Insert("books").
		Columns("name", "price", "author", "owner_id").
		Values(in.Name, in.Price, in.Author, ownerID).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	var id int64
	if err := r.db.QueryRow(timeoutCtx, sqlStr, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return id, nil
}

func (r *PostgresRepo) Update(ctx context.Context, id int64, in Input) error {
	sqlStr, args, err := psql.
		Update("books").
		Set("name", in.Name).
		Set("price", in.Price).
		Set("author", in.Author).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("update book %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id int64) error {
	sqlStr, args, err := psql.Delete("books").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	timeoutCtx, cancel := r.withTimeout(ctx)
	defer cancel()
	tag, err := r.db.Exec(timeoutCtx, sqlStr, args...)
	if err != nil {
		return fmt.Errorf("delete book %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Repository = (*PostgresRepo)(nil)
