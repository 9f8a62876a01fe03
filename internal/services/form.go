package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"smooth/internal/format"
	"smooth/internal/models"
	"smooth/internal/repositories"
	"smooth/internal/validation"

	"go.uber.org/zap"
)

var (
	ErrUnknownField       = errors.New("unknown field")
	ErrReadOnlyField      = errors.New("field is read-only")
	ErrNotInList          = errors.New("record is not in the list")
	ErrDeleteNotConfirmed = errors.New("deletion was not confirmed")
)

// EventPublisher announces mutations the backend confirmed.
type EventPublisher interface {
	PublishRecordEvent(event models.RecordEvent) error
}

// FormService holds what every form of one entity shares: the repository,
// the list it keeps in sync and the validation rules.
type FormService[T any] struct {
	schema   *Schema[T]
	repo     repositories.RecordRepository[T]
	list     *ListBinder[T]
	validate *validation.Validator
	events   EventPublisher
	logger   *zap.Logger
	now      func() time.Time
}

// NewFormService creates a FormService. events may be nil.
func NewFormService[T any](
	schema *Schema[T],
	repo repositories.RecordRepository[T],
	list *ListBinder[T],
	validate *validation.Validator,
	events EventPublisher,
	logger *zap.Logger,
) *FormService[T] {
	return &FormService[T]{
		schema:   schema,
		repo:     repo,
		list:     list,
		validate: validate,
		events:   events,
		logger:   logger.With(zap.String("entity", schema.Entity)),
		now:      time.Now,
	}
}

// SetClock replaces the clock used to stamp records.
func (s *FormService[T]) SetClock(now func() time.Time) {
	s.now = now
}

// Schema returns the form definition.
func (s *FormService[T]) Schema() *Schema[T] {
	return s.schema
}

// List returns the list view bound to the repository.
func (s *FormService[T]) List() *ListBinder[T] {
	return s.list
}

// NewForm returns a fresh, empty form.
func (s *FormService[T]) NewForm() *Form[T] {
	return &Form[T]{
		service: s,
		fields:  s.schema.defaults(),
		errors:  validation.Errors{},
	}
}

// Delete removes a listed record once the user confirmed it. The entry stays
// in the list until the repository reports the new list.
func (s *FormService[T]) Delete(ctx context.Context, key string, confirmed bool) error {
	if !confirmed {
		return ErrDeleteNotConfirmed
	}
	if err := s.repo.Delete(ctx, key); err != nil {
		s.logger.Warn("delete failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("failed to delete %s %s: %w", s.schema.Entity, key, err)
	}
	s.afterMutation(ctx, models.ActionDeleted, key, nil)
	return nil
}

func (s *FormService[T]) afterMutation(ctx context.Context, action, key string, fields map[string]string) {
	if s.repo.UpdateMode() == repositories.Refetch {
		if err := s.repo.Refresh(ctx); err != nil {
			s.logger.Warn("list refresh failed", zap.String("action", action), zap.Error(err))
		}
	}

	if s.events == nil {
		return
	}
	event := models.RecordEvent{
		Entity:     s.schema.Entity,
		Action:     action,
		Key:        key,
		Fields:     fields,
		OccurredAt: s.now(),
	}
	if err := s.events.PublishRecordEvent(event); err != nil {
		s.logger.Warn("failed to publish record event", zap.String("event", event.RoutingKey()), zap.Error(err))
	}
}

// FormState is a snapshot of a form.
type FormState struct {
	Fields  map[string]string `json:"fields"`
	Errors  validation.Errors `json:"errors"`
	EditKey string            `json:"edit_key,omitempty"`
}

// Form is the state of one form screen: its field values, the errors of the
// last submit and the key of the record being edited, if any.
type Form[T any] struct {
	mu      sync.Mutex
	service *FormService[T]
	fields  map[string]string
	errors  validation.Errors
	editKey string
}

// Set masks raw and stores it as the value of field name.
func (f *Form[T]) Set(name, raw string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.set(name, raw)
}

// SetAll applies several inputs. Nothing is changed when any name is invalid.
func (f *Form[T]) SetAll(values map[string]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for name := range values {
		if err := f.checkInput(name); err != nil {
			return err
		}
	}
	for name, raw := range values {
		if _, err := f.set(name, raw); err != nil {
			return err
		}
	}
	return nil
}

// State returns a copy of the form's state.
func (f *Form[T]) State() FormState {
	f.mu.Lock()
	defer f.mu.Unlock()

	fields := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		fields[k] = v
	}
	errs := make(validation.Errors, len(f.errors))
	for k, v := range f.errors {
		errs[k] = v
	}
	return FormState{Fields: fields, Errors: errs, EditKey: f.editKey}
}

// Edit loads a listed record into the form; the next Submit updates it.
func (f *Form[T]) Edit(key string) error {
	entry, ok := f.service.list.Find(key)
	if !ok {
		return fmt.Errorf("%s %s: %w", f.service.schema.Entity, key, ErrNotInList)
	}
	values, err := models.ToFields(entry.Record)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.fields = f.service.schema.defaults()
	for k, v := range values {
		if _, ok := f.fields[k]; ok {
			f.fields[k] = v
		}
	}
	f.errors = validation.Errors{}
	f.editKey = key
	return nil
}

// Submit validates the form and creates or updates the record. Validation
// failures return validation.Errors without contacting the backend. On
// success the form is cleared and the record's key returned.
func (f *Form[T]) Submit(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.service

	record, err := models.FromStrings[T](f.fields)
	if err != nil {
		return "", err
	}
	editing := f.editKey != ""
	if s.schema.Stamp != nil {
		s.schema.Stamp(&record, s.now(), editing)
	}

	f.errors = s.validate.Struct(record, s.schema.Messages)
	if !f.errors.Valid() {
		return "", f.errors
	}

	key, action := f.editKey, models.ActionUpdated
	if editing {
		err = s.repo.Update(ctx, key, record)
	} else {
		action = models.ActionCreated
		key, err = s.repo.Create(ctx, record)
	}
	if err != nil {
		s.logger.Warn("save failed", zap.String("action", action), zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to save %s: %w", s.schema.Entity, err)
	}

	saved, err := models.ToFields(record)
	if err != nil {
		s.logger.Warn("failed to flatten saved record", zap.Error(err))
	}
	f.reset()
	s.afterMutation(ctx, action, key, saved)
	return key, nil
}

// Clear empties the form and leaves edit mode.
func (f *Form[T]) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reset()
}

func (f *Form[T]) reset() {
	f.fields = f.service.schema.defaults()
	f.errors = validation.Errors{}
	f.editKey = ""
}

func (f *Form[T]) checkInput(name string) error {
	field, ok := f.service.schema.field(name)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrUnknownField)
	}
	if field.ReadOnly {
		return fmt.Errorf("%q: %w", name, ErrReadOnlyField)
	}
	return nil
}

func (f *Form[T]) set(name, raw string) (string, error) {
	if err := f.checkInput(name); err != nil {
		return "", err
	}
	field, _ := f.service.schema.field(name)
	value, err := format.Apply(field.Mask, raw)
	if err != nil {
		return "", err
	}
	f.fields[name] = value
	return value, nil
}
