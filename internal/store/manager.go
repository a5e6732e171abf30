package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("database handle is required")
	noOpLogger         = zap.NewNop()

	// ErrMissingIdentifier is returned when an identifier-scoped operation is
	// called on an entity that was never saved.
	ErrMissingIdentifier = errors.New("store: entity has no identifier")
	// ErrNoSuchRow is returned when an identifier matches no stored row.
	ErrNoSuchRow = errors.New("store: no row matches identifier")
)

// StoreError is the typed failure produced by every manager operation. Code
// is "<operation>.<reason>" and the cause is preserved for errors.Is/As.
type StoreError struct {
	code string
	err  error
}

func (e *StoreError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}

func (e *StoreError) Code() string {
	return e.code
}

const (
	opManagerNew  = "store.manager.new"
	opSave        = "store.save"
	opSaveGroup   = "store.save_group_with_members"
	opUpdate      = "store.update"
	opDelete      = "store.delete"
	opDeleteWhere = "store.delete_where"
	opUpdateWhere = "store.update_where"
	opFetch       = "store.fetch"
	opFetchByID   = "store.fetch_by_id"
	opObserve     = "store.observe"

	reasonMissingDatabase   = "missing_database"
	reasonMissingIdentifier = "missing_identifier"
	reasonRowNotFound       = "row_not_found"
	reasonWriteFailed       = "write_failed"
	reasonQueryFailed       = "query_failed"
)

func newStoreError(operation, reason string, cause error) error {
	return &StoreError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// ManagerConfig describes the dependencies of a Manager.
type ManagerConfig struct {
	Database *gorm.DB
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Manager is the façade over the store: identifier-scoped and request-scoped
// writes, one-shot reads and live observation, generically over every entity.
// All mutations run one at a time on the single logical writer.
type Manager struct {
	db        *gorm.DB
	clock     func() time.Time
	logger    *zap.Logger
	writeMu   sync.Mutex
	observers *observerRegistry
}

// NewManager validates the configuration and returns a ready manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Database == nil {
		return nil, newStoreError(opManagerNew, reasonMissingDatabase, errMissingDatabase)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Manager{
		db:        cfg.Database,
		clock:     clock,
		logger:    logger,
		observers: newObserverRegistry(),
	}, nil
}

// Save inserts the entity when it has no identifier, assigning one, and
// otherwise updates the stored row in full. The returned entity carries the
// assigned identifier.
func Save[E Entity](ctx context.Context, m *Manager, entity E) (E, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if stamped, ok := any(&entity).(createdStamped); ok && entity.primaryKey() == 0 {
		stamped.stampCreatedAt(m.clock().UTC().Unix())
	}

	err := m.writeTx(ctx, func(tx *gorm.DB) error {
		if entity.primaryKey() == 0 {
			return tx.Create(&entity).Error
		}
		return tx.Save(&entity).Error
	})
	if err != nil {
		m.logError(opSave, reasonWriteFailed, err, zap.String("table", entity.TableName()))
		return entity, newStoreError(opSave, reasonWriteFailed, err)
	}

	m.publishWrite(entity)
	return entity, nil
}

// SaveGroupWithMembers persists a group and its member list in one
// transaction. The members are bound to the group's identifier and inserted
// first; the deferred foreign key resolves at commit, so the insert order
// never matters. On any failure the whole batch rolls back.
func (m *Manager) SaveGroupWithMembers(ctx context.Context, group Group, members []GroupMember) (Group, []GroupMember, error) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	err := m.writeTx(ctx, func(tx *gorm.DB) error {
		for i := range members {
			members[i].GroupID = group.GroupID
			if members[i].Id == 0 {
				if err := tx.Create(&members[i]).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Save(&members[i]).Error; err != nil {
				return err
			}
		}
		if group.Id == 0 {
			return tx.Create(&group).Error
		}
		return tx.Save(&group).Error
	})
	if err != nil {
		m.logError(opSaveGroup, reasonWriteFailed, err, zap.String("table", group.TableName()))
		return group, members, newStoreError(opSaveGroup, reasonWriteFailed, err)
	}

	m.observers.publish(Group{}.TableName(), GroupMember{}.TableName())
	return group, members, nil
}

// Update overwrites the stored row matching the entity's identifier. Calling
// it on an unsaved entity, or on an identifier with no row, is a caller error
// and never turns into an insert.
func Update[E Entity](ctx context.Context, m *Manager, entity E) error {
	if entity.primaryKey() == 0 {
		return newStoreError(opUpdate, reasonMissingIdentifier, ErrMissingIdentifier)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	err := m.writeTx(ctx, func(tx *gorm.DB) error {
		result := tx.Model(&entity).Select("*").Updates(&entity)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNoSuchRow
		}
		return nil
	})
	if errors.Is(err, ErrNoSuchRow) {
		return newStoreError(opUpdate, reasonRowNotFound, err)
	}
	if err != nil {
		m.logError(opUpdate, reasonWriteFailed, err, zap.String("table", entity.TableName()))
		return newStoreError(opUpdate, reasonWriteFailed, err)
	}

	m.publishWrite(entity)
	return nil
}

// Delete removes the row matching the entity's identifier. Schema-level
// cascades apply, so deleting a group also removes its members.
func Delete[E Entity](ctx context.Context, m *Manager, entity E) error {
	if entity.primaryKey() == 0 {
		return newStoreError(opDelete, reasonMissingIdentifier, ErrMissingIdentifier)
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	err := m.writeTx(ctx, func(tx *gorm.DB) error {
		return tx.Delete(&entity).Error
	})
	if err != nil {
		m.logError(opDelete, reasonWriteFailed, err, zap.String("table", entity.TableName()))
		return newStoreError(opDelete, reasonWriteFailed, err)
	}

	m.publishWrite(entity)
	return nil
}

// DeleteWhere removes every row matched by the request and reports how many
// rows went away.
func DeleteWhere[E Model[R], R any](ctx context.Context, m *Manager, request R) (int64, error) {
	var entity E
	compiled := entity.compileRequest(request)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var affected int64
	err := m.writeTx(ctx, func(tx *gorm.DB) error {
		result := compiled.applyWrite(tx).Delete(&entity)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		m.logError(opDeleteWhere, reasonWriteFailed, err, zap.String("table", entity.TableName()))
		return 0, newStoreError(opDeleteWhere, reasonWriteFailed, err)
	}

	m.publishWrite(entity)
	return affected, nil
}

// UpdateWhere applies the column assignments to every row matched by the
// request, e.g. failing all still-sending messages after a crash.
func UpdateWhere[E Model[R], R any](ctx context.Context, m *Manager, request R, assignments map[string]any) (int64, error) {
	var entity E
	compiled := entity.compileRequest(request)

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	var affected int64
	err := m.writeTx(ctx, func(tx *gorm.DB) error {
		result := compiled.applyWrite(tx.Model(&entity)).Updates(assignments)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		m.logError(opUpdateWhere, reasonWriteFailed, err, zap.String("table", entity.TableName()))
		return 0, newStoreError(opUpdateWhere, reasonWriteFailed, err)
	}

	m.publishWrite(entity)
	return affected, nil
}

// Fetch runs the request once and returns the matching rows.
func Fetch[E Model[R], R any](ctx context.Context, m *Manager, request R) ([]E, error) {
	var entity E
	compiled := entity.compileRequest(request)

	var results []E
	if err := compiled.apply(m.db.WithContext(ctx)).Find(&results).Error; err != nil {
		m.logError(opFetch, reasonQueryFailed, err, zap.String("table", entity.TableName()))
		return nil, newStoreError(opFetch, reasonQueryFailed, err)
	}
	return results, nil
}

// FetchByID returns the entity with the given identifier, or nil when no row
// matches.
func FetchByID[E Entity](ctx context.Context, m *Manager, id int64) (*E, error) {
	var entity E
	err := m.db.WithContext(ctx).Where("id = ?", id).Take(&entity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		m.logError(opFetchByID, reasonQueryFailed, err, zap.String("table", entity.TableName()))
		return nil, newStoreError(opFetchByID, reasonQueryFailed, err)
	}
	return &entity, nil
}

// Observe returns a live stream of the request's result set. The initial
// result is computed before Observe returns; afterwards every committed write
// that touches the entity's table re-runs the query and delivers the new
// result set in order. Cancelling the context or calling the returned release
// function stops re-evaluation and closes the stream.
func Observe[E Model[R], R any](ctx context.Context, m *Manager, request R) (<-chan []E, context.CancelFunc, error) {
	var entity E
	compiled := entity.compileRequest(request)

	run := func(runCtx context.Context) ([]E, error) {
		var results []E
		if err := compiled.apply(m.db.WithContext(runCtx)).Find(&results).Error; err != nil {
			return nil, err
		}
		return results, nil
	}

	tables := []string{entity.TableName()}
	if c, ok := any(entity).(cascading); ok {
		tables = append(tables, c.cascadeTables()...)
	}

	return observeQuery(ctx, m, opObserve, tables, run)
}

// writeTx wraps a mutating transaction. Foreign-key resolution is deferred
// to commit on every transaction because SQLite switches defer_foreign_keys
// back off at each commit; setting it once per connection is not enough.
func (m *Manager) writeTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("PRAGMA defer_foreign_keys = ON").Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

// publishWrite wakes every subscription whose table set intersects the
// written entity's table, including cascade targets.
func (m *Manager) publishWrite(entity Entity) {
	tables := []string{entity.TableName()}
	if c, ok := entity.(cascading); ok {
		tables = append(tables, c.cascadeTables()...)
	}
	m.observers.publish(tables...)
}

func (m *Manager) loggerOrDefault() *zap.Logger {
	if m == nil || m.logger == nil {
		return noOpLogger
	}
	return m.logger
}

func (m *Manager) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	m.loggerOrDefault().Error("store error", attrs...)
}
