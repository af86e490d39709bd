package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tutorlane/scheduling-api/internal/models"
	appErrors "github.com/tutorlane/scheduling-api/pkg/errors"
	"github.com/tutorlane/scheduling-api/pkg/export"
	"github.com/tutorlane/scheduling-api/pkg/tz"
)

// ExportFormat enumerates the supported schedule export encodings.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ParseExportFormat normalizes a raw format string.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case ExportFormatCSV, "":
		return ExportFormatCSV, nil
	case ExportFormatPDF:
		return ExportFormatPDF, nil
	default:
		return "", fmt.Errorf("unknown export format %q", raw)
	}
}

// ExportResult is a rendered schedule document.
type ExportResult struct {
	Content     []byte
	Filename    string
	ContentType string
}

type exportTutorFinder interface {
	FindByID(ctx context.Context, id string) (*models.Tutor, error)
}

type upcomingLessonReader interface {
	ListUpcomingByTutor(ctx context.Context, tutorID string, from time.Time) ([]models.Lesson, error)
}

// ExportService renders a tutor's upcoming schedule as CSV or PDF.
type ExportService struct {
	tutors  exportTutorFinder
	lessons upcomingLessonReader
	norm    *tz.Normalizer
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(
	tutors exportTutorFinder,
	lessons upcomingLessonReader,
	norm *tz.Normalizer,
	csvExporter *export.CSVExporter,
	pdfExporter *export.PDFExporter,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		tutors:  tutors,
		lessons: lessons,
		norm:    norm,
		csv:     csvExporter,
		pdf:     pdfExporter,
		logger:  logger,
		now:     time.Now,
	}
}

// ExportSchedule renders the tutor's scheduled lessons from now onward.
func (s *ExportService) ExportSchedule(ctx context.Context, tutorID string, formatRaw string) (*ExportResult, error) {
	format, err := ParseExportFormat(formatRaw)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export format")
	}

	tutor, err := s.tutors.FindByID(ctx, tutorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "tutor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tutor")
	}

	lessons, err := s.lessons.ListUpcomingByTutor(ctx, tutor.ID, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upcoming lessons")
	}

	loc := s.norm.Location()
	table := export.Table{
		Columns: []string{"Date", "Start", "End", "Subject", "Students", "Recurring"},
	}
	for _, lesson := range lessons {
		start := lesson.StartAt.In(loc)
		end := lesson.EndAt.In(loc)
		recurring := "no"
		if lesson.IsRecurringInstance {
			recurring = "yes"
		}
		table.Rows = append(table.Rows, []string{
			start.Format("2006-01-02"),
			start.Format("15:04"),
			end.Format("15:04"),
			lesson.SubjectID,
			strings.Join(lesson.StudentIDs, ", "),
			recurring,
		})
	}

	stamp := s.now().Format("20060102")
	switch format {
	case ExportFormatPDF:
		content, err := s.pdf.Render(table, fmt.Sprintf("Schedule for %s", tutor.FullName))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{
			Content:     content,
			Filename:    fmt.Sprintf("schedule-%s-%s.pdf", tutor.ID, stamp),
			ContentType: "application/pdf",
		}, nil
	default:
		content, err := s.csv.Render(table)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{
			Content:     content,
			Filename:    fmt.Sprintf("schedule-%s-%s.csv", tutor.ID, stamp),
			ContentType: "text/csv",
		}, nil
	}
}
