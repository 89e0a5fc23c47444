// Package person holds the use cases behind the Person pages: listing,
// editing, deleting and exporting records kept by the remote Person API.
package person

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/erp/personportal/internal/domain/person"
	"github.com/erp/personportal/internal/domain/shared"
	"github.com/erp/personportal/internal/infrastructure/logger"
	"github.com/erp/personportal/internal/infrastructure/telemetry"
)

// XLSXContentType is the media type of generated workbooks
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const exportTimeLayout = "2006-01-02_150405"

// ErrNoSelection is returned by DeleteSelected for an empty selection.
var ErrNoSelection = shared.NewDomainError(shared.CodeNoSelection, "Please select at least one person for deletion.")

// WorkbookBuilder renders records into a spreadsheet.
type WorkbookBuilder interface {
	Build(people []person.Person) ([]byte, error)
}

// ExportArchive keeps a copy of every generated workbook.
type ExportArchive interface {
	Store(ctx context.Context, fileName string, content []byte) (string, error)
}

// Service runs the Person use cases
type Service struct {
	repo    person.Repository
	builder WorkbookBuilder
	archive ExportArchive
	logger  *zap.Logger
	now     func() time.Time
}

// ServiceOption customizes a Service
type ServiceOption func(*Service)

// WithArchive enables archiving of exported workbooks.
func WithArchive(a ExportArchive) ServiceOption {
	return func(s *Service) { s.archive = a }
}

// WithClock overrides time.Now, used for export file names.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the fallback logger used when a request carries none
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// NewService creates a new Service
func NewService(repo person.Repository, builder WorkbookBuilder, opts ...ServiceOption) *Service {
	s := &Service{
		repo:    repo,
		builder: builder,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every record in upstream order.
func (s *Service) List(ctx context.Context) ([]person.Person, error) {
	people, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if people == nil {
		people = []person.Person{}
	}
	return people, nil
}

// Get returns the record to edit. Identifier zero means a blank form and
// skips the remote call.
func (s *Service) Get(ctx context.Context, id int) (person.Person, error) {
	if id <= 0 {
		return person.Person{}, nil
	}
	return s.repo.FindByID(ctx, id)
}

// Save creates the record when it has no identifier, otherwise updates it.
// A rejection by the remote API is reported as SaveRejected with a nil error.
func (s *Service) Save(ctx context.Context, req SavePersonRequest) (SaveOutcome, error) {
	p := req.ToPerson()
	if err := p.Validate(); err != nil {
		return SaveRejected, err
	}

	outcome := SaveUpdated
	var err error
	if p.IsNew() {
		outcome = SaveCreated
		err = s.repo.Create(ctx, p)
	} else {
		err = s.repo.Update(ctx, p)
	}

	switch {
	case err == nil:
		return outcome, nil
	case errors.Is(err, person.ErrRejected):
		logger.LOr(ctx, s.logger).Warn("save rejected", zap.Int("person_id", p.PersonID), zap.Error(err))
		return SaveRejected, nil
	default:
		return SaveRejected, err
	}
}

// Delete removes one record. It reports false with a nil error when the
// remote API rejected the call.
func (s *Service) Delete(ctx context.Context, id int) (bool, error) {
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, person.ErrRejected):
		logger.LOr(ctx, s.logger).Warn("delete rejected", zap.Int("person_id", id), zap.Error(err))
		return false, nil
	default:
		return false, err
	}
}

// DeleteSelected issues one delete per identifier, in order, each awaited
// before the next. Individual failures are logged and do not stop the loop.
// It returns the number of delete calls made.
func (s *Service) DeleteSelected(ctx context.Context, ids []int) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoSelection
	}

	ctx, span := telemetry.StartSpan(ctx, "person.delete_selected", attribute.Int("person.count", len(ids)))
	defer span.End()

	log := logger.LOr(ctx, s.logger)
	failed := 0
	for _, id := range ids {
		if err := s.repo.Delete(ctx, id); err != nil {
			failed++
			log.Warn("batch delete item failed", zap.Int("person_id", id), zap.Error(err))
		}
	}
	span.SetAttributes(attribute.Int("person.failed", failed))
	if failed > 0 {
		log.Info("batch delete finished with failures",
			zap.Int("requested", len(ids)),
			zap.Int("failed", failed),
		)
	}
	telemetry.SetOK(span)
	return len(ids), nil
}

// Export builds a workbook of every record. Archiving is best effort: an
// upload failure is logged and the workbook is still returned.
func (s *Service) Export(ctx context.Context) (*ExportFile, error) {
	ctx, span := telemetry.StartSpan(ctx, "person.export")
	defer span.End()

	people, err := s.List(ctx)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("person.count", len(people)))

	content, err := s.builder.Build(people)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("build workbook: %w", err)
	}

	file := &ExportFile{
		FileName:    ExportFileName(s.now()),
		ContentType: XLSXContentType,
		Content:     content,
	}

	if s.archive != nil {
		key, err := s.archive.Store(ctx, file.FileName, content)
		if err != nil {
			logger.LOr(ctx, s.logger).Error("archive export failed",
				zap.String("file_name", file.FileName),
				zap.Error(err),
			)
		} else {
			file.ArchiveKey = key
		}
	}

	telemetry.SetOK(span)
	return file, nil
}

// ExportFileName returns "<timestamp>_Persons.xlsx" for t.
func ExportFileName(t time.Time) string {
	return t.Format(exportTimeLayout) + "_Persons.xlsx"
}
