package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidQuery = errors.New("invalid query")
)

var schemaCache sync.Map

// ListQuery is a page of rows filtered by column equality.
type ListQuery struct {
	Page    int
	Limit   int
	Filters map[string]interface{}
	Sort    string
	Desc    bool
}

// BaseService interface defines common read and update operations
type BaseService[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	List(ctx context.Context, q ListQuery) ([]T, int64, error)
	Create(ctx context.Context, entity *T) error
	Update(ctx context.Context, id string, entity *T) error
}

// BaseServiceImpl implements BaseService
type BaseServiceImpl[T any] struct {
	db        *gorm.DB
	modelType T
}

func GormTableName(db *gorm.DB, v any) string {
	structName := reflect.TypeOf(v).Name()
	return db.NamingStrategy.TableName(structName)
}

// NewBaseService creates a new base service
func NewBaseService[T any](db *gorm.DB, modelType T) *BaseServiceImpl[T] {
	return &BaseServiceImpl[T]{
		db:        db,
		modelType: modelType,
	}
}

func (s *BaseServiceImpl[T]) Create(ctx context.Context, entity *T) error {
	return s.db.WithContext(ctx).Create(entity).Error
}

func (s *BaseServiceImpl[T]) Get(ctx context.Context, id string) (*T, error) {
	var entity T
	if err := s.db.WithContext(ctx).First(&entity, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// columns maps accepted filter and sort keys to column names. Keys may be given
// as Go field names, json names or column names.
func (s *BaseServiceImpl[T]) columns() map[string]string {
	sch, err := schema.Parse(&s.modelType, &schemaCache, s.db.NamingStrategy)
	if err != nil {
		return nil
	}
	out := make(map[string]string, len(sch.Fields)*3)
	for _, f := range sch.Fields {
		if f.DBName == "" {
			continue
		}
		out[f.DBName] = f.DBName
		out[f.Name] = f.DBName
		if name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]; name != "" && name != "-" {
			out[name] = f.DBName
		}
	}
	return out
}

func (s *BaseServiceImpl[T]) List(ctx context.Context, q ListQuery) ([]T, int64, error) {
	var entities []T
	var total int64

	cols := s.columns()
	query := s.db.WithContext(ctx).Model(&s.modelType)

	for key, value := range q.Filters {
		col, ok := cols[key]
		if !ok {
			return nil, 0, fmt.Errorf("%w: unknown filter %q", ErrInvalidQuery, key)
		}
		query = query.Where(col+" = ?", value)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if col, ok := cols[q.Sort]; ok {
		dir := "ASC"
		if q.Desc {
			dir = "DESC"
		}
		query = query.Order(col + " " + dir)
	} else {
		query = query.Order("created_at DESC")
	}

	if q.Page > 0 && q.Limit > 0 {
		query = query.Offset((q.Page - 1) * q.Limit).Limit(q.Limit)
	}

	if err := query.Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

func (s *BaseServiceImpl[T]) Update(ctx context.Context, id string, entity *T) error {
	res := s.db.WithContext(ctx).Model(entity).Where("id = ?", id).Omit("id", "created_at").Updates(entity)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return s.db.WithContext(ctx).First(entity, "id = ?", id).Error
}
