// Package registry orchestrates writes to the employee collection: input
// checks, normalization, the store call, cache invalidation and change
// notification.
package registry

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"go-rail-employee-registry/internal/apperr"
	"go-rail-employee-registry/internal/dto"
	"go-rail-employee-registry/internal/metrics"
	"go-rail-employee-registry/internal/normalize"
	"go-rail-employee-registry/internal/session"
	"go-rail-employee-registry/internal/store"
)

var validate = validator.New()

// Cache is the record snapshot the service checks duplicates against and
// drops after every successful write.
type Cache interface {
	Load(ctx context.Context) ([]dto.Record, error)
	Invalidate(reason string)
}

type DeleteOutcome int

const (
	DeletePending DeleteOutcome = iota + 1
	DeleteCompleted
)

func (o DeleteOutcome) String() string {
	switch o {
	case DeletePending:
		return "pending_confirmation"
	case DeleteCompleted:
		return "deleted"
	default:
		return "unknown"
	}
}

type AddInput struct {
	Name   string         `json:"name" validate:"required"`
	HRMSID string         `json:"hrms_id" validate:"required"`
	Fields map[string]any `json:"fields"`
}

func (in *AddInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.HRMSID = strings.TrimSpace(in.HRMSID)
}

func (in *AddInput) Validate() error {
	in.Normalize()
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	out := &apperr.ValidationError{Fields: map[string]string{}}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Name":
			out.Fields[dto.FieldEmployeeName] = "is required"
		case "HRMSID":
			out.Fields[dto.FieldHRMSID] = "is required"
		default:
			out.Fields[fe.Field()] = fe.Tag()
		}
	}
	return out
}

type Service struct {
	store       store.Store
	cache       Cache
	notifier    Notifier
	logger      logrus.FieldLogger
	origin      string
	now         func() time.Time
	unavailable error
}

type Option func(*Service)

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Service) { s.logger = l }
}

// WithOrigin names this instance in outgoing change messages.
func WithOrigin(origin string) Option {
	return func(s *Service) { s.origin = origin }
}

func New(st store.Store, cache Cache, opts ...Option) *Service {
	s := &Service{
		store:  st,
		cache:  cache,
		logger: logrus.StandardLogger(),
		origin: "registry",
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Unavailable returns a service that fails every operation because the
// store could not be opened.
func Unavailable(cause error, opts ...Option) *Service {
	s := New(nil, nil, opts...)
	s.unavailable = apperr.Unavailable("open store", cause)
	return s
}

// Available returns the startup failure, if any.
func (s *Service) Available() error {
	return s.unavailable
}

// Records returns the current snapshot of the collection.
func (s *Service) Records(ctx context.Context) ([]dto.Record, error) {
	if s.unavailable != nil {
		return nil, s.unavailable
	}
	return s.cache.Load(ctx)
}

// Add creates a record and returns its document id.
func (s *Service) Add(ctx context.Context, in AddInput) (string, error) {
	if s.unavailable != nil {
		return "", s.unavailable
	}
	if err := in.Validate(); err != nil {
		return "", err
	}

	recs, err := s.cache.Load(ctx)
	if err != nil {
		return "", err
	}
	if owner, ok := findHRMSID(recs, in.HRMSID); ok {
		s.logger.WithFields(logrus.Fields{"hrms_id": in.HRMSID, "owner": owner}).Info("[registry] duplicate HRMS ID rejected")
		return "", apperr.Invalid(dto.FieldHRMSID, "already exists")
	}

	payload := normalize.ForCreate(in.Fields)
	payload[dto.FieldEmployeeName] = in.Name
	payload[dto.FieldHRMSID] = in.HRMSID

	id, err := s.store.Create(ctx, payload)
	metrics.RecordStoreOp("create", err)
	if err != nil {
		s.logger.WithError(err).WithField("hrms_id", in.HRMSID).Error("[registry] create failed")
		return "", apperr.Rejected("add record", err)
	}

	s.cache.Invalidate("create")
	s.notify(ctx, dto.ChangeCreated, id, in.HRMSID)
	s.logger.WithFields(logrus.Fields{"id": id, "hrms_id": in.HRMSID}).Info("[registry] record added")
	return id, nil
}

// Update applies a partial update to the record with the given document id.
// Keys missing from fields are left untouched; blank values remove the key,
// except "Employee Name" and "HRMS ID", which cannot be cleared and fail
// with ValidationFailed.
func (s *Service) Update(ctx context.Context, id string, fields map[string]any) error {
	if s.unavailable != nil {
		return s.unavailable
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return apperr.Invalid("id", "is required")
	}

	patch := normalize.ForUpdate(fields)
	for _, k := range patch.Delete {
		if k == dto.FieldEmployeeName || k == dto.FieldHRMSID {
			return apperr.Invalid(k, "cannot be cleared")
		}
	}
	if patch.Empty() {
		return nil
	}

	hrmsID := ""
	if v, ok := patch.Set[dto.FieldHRMSID]; ok {
		hrmsID = strings.TrimSpace(dto.FormatValue(v))
		recs, err := s.cache.Load(ctx)
		if err != nil {
			return err
		}
		if owner, ok := findHRMSID(recs, hrmsID); ok && owner != id {
			return apperr.Invalid(dto.FieldHRMSID, "already exists")
		}
	}

	err := s.store.Update(ctx, id, patch)
	metrics.RecordStoreOp("update", err)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("[registry] update failed")
		return apperr.Rejected("update record", err)
	}

	s.cache.Invalidate("update")
	s.notify(ctx, dto.ChangeUpdated, id, hrmsID)
	s.logger.WithFields(logrus.Fields{"id": id, "set": len(patch.Set), "removed": len(patch.Delete)}).Info("[registry] record updated")
	return nil
}

// RequestDelete removes the record only when the same session asks twice in
// a row for the same id. The first request reports DeletePending.
func (s *Service) RequestDelete(ctx context.Context, sess *session.Session, id string) (DeleteOutcome, error) {
	if s.unavailable != nil {
		return 0, s.unavailable
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return 0, apperr.Invalid("id", "is required")
	}
	if !sess.ConfirmDelete(id) {
		return DeletePending, nil
	}

	err := s.store.Delete(ctx, id)
	metrics.RecordStoreOp("delete", err)
	if err != nil {
		s.logger.WithError(err).WithField("id", id).Error("[registry] delete failed")
		return 0, apperr.Rejected("delete record", err)
	}

	s.cache.Invalidate("delete")
	s.notify(ctx, dto.ChangeDeleted, id, "")
	s.logger.WithField("id", id).Info("[registry] record deleted")
	return DeleteCompleted, nil
}

func (s *Service) notify(ctx context.Context, action dto.ChangeAction, id, hrmsID string) {
	if s.notifier == nil {
		return
	}
	msg := dto.ChangeMessage{
		Action:     action,
		DocumentID: id,
		HRMSID:     hrmsID,
		Origin:     s.origin,
		OccurredAt: s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, msg); err != nil {
		s.logger.WithError(err).WithField("id", id).Warn("[registry] change notification failed")
	}
}

func findHRMSID(recs []dto.Record, hrmsID string) (string, bool) {
	for _, r := range recs {
		if strings.TrimSpace(r.Text(dto.FieldHRMSID)) == hrmsID {
			return r.ID, true
		}
	}
	return "", false
}
