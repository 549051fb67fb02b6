package gridquery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"iter"
	"reflect"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	_ "github.com/mattn/go-sqlite3"
)

var validTableNameRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// StoreOption configures a Store.
type StoreOption func(*storeOptions)

type storeOptions struct {
	indexes         []string
	schema          *Schema
	compilerOptions []Option
}

// WithIndex creates an expression index on the JSON value of a property path, e.g. "Address.City".
// The path is resolved like a sort selector; "key" is ignored. The index expression is the one
// Find compares the property by, so time and decimal properties are indexed as such.
func WithIndex(column string) StoreOption {
	return func(o *storeOptions) {
		o.indexes = append(o.indexes, column)
	}
}

// WithSchema sets the schema descriptors are resolved against. Property columns must
// match the JSON keys entities are stored with. By default the schema is SchemaFor[T].
func WithSchema(schema *Schema) StoreOption {
	return func(o *storeOptions) {
		o.schema = schema
	}
}

// WithCompilerOptions passes options to the store's Compiler.
func WithCompilerOptions(opts ...Option) StoreOption {
	return func(o *storeOptions) {
		o.compilerOptions = append(o.compilerOptions, opts...)
	}
}

// Store keeps entities of type T as JSON documents in an SQLite table and answers
// grid filter and sort descriptors with SQL.
// `T` must be a struct. If it has a string field tagged with `gridquery:"key"`,
// that field is used as the primary key.
type Store[T any] struct {
	db        *sql.DB
	tableName string
	compiler  *Compiler[T]

	// keyField holds information about the `gridquery:"key"` tagged field.
	// It is nil if no such field is present.
	keyField *reflect.StructField

	// Prepared statements
	saveStmt   *sql.Stmt
	deleteStmt *sql.Stmt
}

// NewStore creates a new Store instance for a given table name.
// If T has no `gridquery:"key"` field, keys are generated on every Save.
func NewStore[T any](ctx context.Context, db *sql.DB, tableName string, opts ...StoreOption) (*Store[T], error) {
	if !validTableNameRe.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name: %s", tableName)
	}

	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type T must be a struct, but got %s", typ.Kind())
	}

	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}

	var keyField *reflect.StructField
	for i := range typ.NumField() {
		field := typ.Field(i)
		if tag := field.Tag.Get("gridquery"); tag == "key" {
			if field.Type.Kind() != reflect.String {
				return nil, fmt.Errorf("field with gridquery:\"key\" tag must be a string, but field %s is %s", field.Name, field.Type.Kind())
			}
			f := field
			keyField = &f
		}
	}

	compiler, err := NewCompiler[T](o.schema, o.compilerOptions...)
	if err != nil {
		return nil, fmt.Errorf("creating compiler for %s: %w", tableName, err)
	}

	store := &Store[T]{
		db:        db,
		tableName: tableName,
		compiler:  compiler,
		keyField:  keyField,
	}

	if err := store.init(ctx, o.indexes); err != nil {
		return nil, err
	}
	if err := store.prepareStatements(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("preparing statements for %s: %w", tableName, err)
	}
	return store, nil
}

// Compiler returns the compiler the store resolves descriptors with.
func (s *Store[T]) Compiler() *Compiler[T] {
	return s.compiler
}

// Close releases the prepared statements. It should be called when the store is no longer needed.
func (s *Store[T]) Close() error {
	var result *multierror.Error
	for _, stmt := range []*sql.Stmt{s.saveStmt, s.deleteStmt} {
		if stmt != nil {
			if err := stmt.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
	}
	return result.ErrorOrNil()
}

// Save stores an entity and returns its key.
// If the entity has a `gridquery:"key"` field, Save acts as an "upsert": an empty key is
// filled with a new UUID, and the entity is saved under the key field's value.
// Without a key field a new UUID is generated for each Save call.
func (s *Store[T]) Save(ctx context.Context, entity *T) (string, error) {
	stmt := s.saveStmt
	if tx, ok := GetTx(ctx); ok {
		stmt = tx.StmtContext(ctx, stmt)
	}

	key := uuid.NewString()
	if s.keyField != nil {
		keyValue := reflect.ValueOf(entity).Elem().FieldByIndex(s.keyField.Index)
		if existing := keyValue.String(); existing != "" {
			key = existing
		} else {
			if !keyValue.CanSet() {
				return "", fmt.Errorf("cannot set key on unexported field %s", s.keyField.Name)
			}
			keyValue.SetString(key)
		}
	}

	dataBytes, err := json.Marshal(entity)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entity: %w", err)
	}

	if _, err := stmt.ExecContext(ctx, key, dataBytes); err != nil {
		return "", fmt.Errorf("saving entity with key %s: %w", key, err)
	}
	return key, nil
}

// Delete removes an entity from the store by its key.
func (s *Store[T]) Delete(ctx context.Context, key string) error {
	stmt := s.deleteStmt
	if tx, ok := GetTx(ctx); ok {
		stmt = tx.StmtContext(ctx, stmt)
	}

	if _, err := stmt.ExecContext(ctx, key); err != nil {
		return fmt.Errorf("deleting entity with key %s: %w", key, err)
	}
	return nil
}

// Find answers grid descriptors: filters are compiled against the store schema, lowered
// to SQL together with the sort keys, and at most limit entities are returned (0 means no limit).
func (s *Store[T]) Find(ctx context.Context, filters []FilterDescriptor, sorts []SortDescriptor, limit int) ([]T, error) {
	f, err := s.compiler.Where(filters)
	if err != nil {
		return nil, err
	}
	q := &Query{Where: f.Expr(), OrderBy: s.compiler.OrderBy(sorts).Keys(), Limit: limit}

	seq, err := s.Iter(ctx, q)
	if err != nil {
		return nil, err
	}
	var results []T
	for entity, err := range seq {
		if err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, nil
}

// GetOne retrieves a single entity that matches the given expression.
// It returns sql.ErrNoRows if no entity is found, or an error if more than one is found.
func (s *Store[T]) GetOne(ctx context.Context, where Expr) (T, error) {
	var zero T
	// We only need to know if there is 0, 1, or >1 result.
	seq, err := s.Iter(ctx, &Query{Where: where, Limit: 2})
	if err != nil {
		return zero, err
	}

	var result T
	count := 0
	for entity, err := range seq {
		if err != nil {
			return zero, fmt.Errorf("iteration failed while getting one: %w", err)
		}
		if count == 0 {
			result = entity
		}
		count++
	}

	switch count {
	case 0:
		return zero, fmt.Errorf("no entity found matching expression: %w", sql.ErrNoRows)
	case 1:
		return result, nil
	default:
		return zero, fmt.Errorf("expected one result, but found multiple")
	}
}

// Iter returns an iterator over entities that match a given query.
// If the query is nil, it iterates over all entities.
// The iterator yields an entity and an error for each item.
func (s *Store[T]) Iter(ctx context.Context, q *Query) (iter.Seq2[T, error], error) {
	if q == nil {
		q = &Query{}
	}

	querySQL, args, err := q.build(s.tableName)
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}

	var rows *sql.Rows
	if tx, ok := GetTx(ctx); ok {
		rows, err = tx.QueryContext(ctx, querySQL, args...)
	} else {
		rows, err = s.db.QueryContext(ctx, querySQL, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("querying entities: %w", err)
	}

	seq := func(yield func(T, error) bool) {
		defer func() {
			_ = rows.Close()
		}()
		var zero T

		for rows.Next() {
			if err := ctx.Err(); err != nil {
				yield(zero, err)
				return
			}
			var key, jsonData string
			if err := rows.Scan(&key, &jsonData); err != nil {
				yield(zero, fmt.Errorf("scanning entity data row: %w", err))
				return
			}

			var t T
			if err := json.Unmarshal([]byte(jsonData), &t); err != nil {
				yield(zero, fmt.Errorf("unmarshaling entity %q: %w", key, err))
				return
			}

			if !yield(t, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(zero, fmt.Errorf("during row iteration: %w", err))
		}
	}

	return seq, nil
}

func (s *Store[T]) init(ctx context.Context, indexes []string) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key TEXT PRIMARY KEY,
			json TEXT NOT NULL
		)`, s.tableName)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("creating table %s: %w", s.tableName, err)
	}

	for _, field := range indexes {
		// The primary key is indexed already.
		if field == "key" {
			continue
		}
		path, ok := s.compiler.Resolve(field)
		if !ok {
			return fmt.Errorf("creating indexes for %s: invalid index field: '%s' is not a property of %s",
				s.tableName, field, s.compiler.Schema().Name())
		}
		columns := path.Columns()
		indexName := fmt.Sprintf("idx_%s_%s", s.tableName,
			indexNameRe.ReplaceAllString(strings.ToLower(strings.Join(columns, "_")), "_"))
		query := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", indexName, s.tableName, leafExpr(columns, path.Type()))
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("creating index %s: %w", indexName, err)
		}
	}
	return nil
}

var indexNameRe = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

func (s *Store[T]) prepareStatements(ctx context.Context) (err error) {
	querySave := fmt.Sprintf(`
		INSERT INTO %s (key, json)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			json = excluded.json
	`, s.tableName)
	if s.saveStmt, err = s.db.PrepareContext(ctx, querySave); err != nil {
		return fmt.Errorf("preparing save statement: %w", err)
	}

	queryDelete := fmt.Sprintf("DELETE FROM %s WHERE key = ?", s.tableName)
	if s.deleteStmt, err = s.db.PrepareContext(ctx, queryDelete); err != nil {
		return fmt.Errorf("preparing delete statement: %w", err)
	}

	return nil
}
