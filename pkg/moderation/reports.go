package moderation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/naughtyden-us/naughty-den/pkg/apperr"
	"github.com/naughtyden-us/naughty-den/pkg/models"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
	"github.com/naughtyden-us/naughty-den/pkg/store/storedb"
	"github.com/naughtyden-us/naughty-den/pkg/timeutil"
)

const reportPrefix = "reports/"

// KV is the slice of the store the report queue needs.
type KV interface {
	GetJSON(key string, v any) error
	SaveJSON(key string, v any) error
	ScanPrefix(prefix string, fn func(key string, value []byte) error) error
	Update(key string, fn func(old []byte, exists bool) ([]byte, error)) error
}

// Reports persists content reports.
type Reports struct {
	kv KV
}

func NewReports(kv KV) *Reports {
	return &Reports{kv: kv}
}

type ReportInput struct {
	ReporterID  string             `json:"reporterId"`
	ContentID   string             `json:"contentId"`
	ContentType models.ContentType `json:"contentType"`
	Reason      string             `json:"reason"`
	Description string             `json:"description"`
}

func reportKey(id string) string { return reportPrefix + id }

// Submit stores a new pending report.
func (r *Reports) Submit(ctx context.Context, in ReportInput) (models.ContentReport, error) {
	if err := ctx.Err(); err != nil {
		return models.ContentReport{}, err
	}
	details := map[string]any{}
	if isBlank(in.ContentID) {
		details["contentId"] = "Content id is required"
	}
	if !in.ContentType.Valid() {
		details["contentType"] = "Content type must be post, comment or profile"
	}
	if isBlank(in.Reason) {
		details["reason"] = "Reason is required"
	}
	if len(details) > 0 {
		return models.ContentReport{}, apperr.Newf(apperr.ValidationRequiredField, "Validation failed").WithDetails(details)
	}

	rep := models.ContentReport{
		ID:          uuid.NewString(),
		ReporterID:  in.ReporterID,
		ContentID:   in.ContentID,
		ContentType: in.ContentType,
		Reason:      in.Reason,
		Description: in.Description,
		Status:      models.ReportPending,
		CreatedAt:   timeutil.Now().UTC(),
	}
	if err := r.kv.SaveJSON(reportKey(rep.ID), rep); err != nil {
		return models.ContentReport{}, apperr.Wrap(apperr.StorageError, err)
	}
	logger.Info("content_reported", "report_id", rep.ID, "content_id", rep.ContentID, "content_type", rep.ContentType)
	return rep, nil
}

// Resolve moves a report to status. Resolving stamps ResolvedAt.
func (r *Reports) Resolve(ctx context.Context, id string, status models.ReportStatus) (models.ContentReport, error) {
	if err := ctx.Err(); err != nil {
		return models.ContentReport{}, err
	}
	var out models.ContentReport
	err := r.kv.Update(reportKey(id), func(old []byte, exists bool) ([]byte, error) {
		if !exists {
			return nil, apperr.New(apperr.ContentNotFound)
		}
		if err := json.Unmarshal(old, &out); err != nil {
			return nil, err
		}
		out.Status = status
		if status == models.ReportResolved && out.ResolvedAt == nil {
			now := timeutil.Now().UTC()
			out.ResolvedAt = &now
		}
		return json.Marshal(out)
	})
	if err != nil {
		return models.ContentReport{}, err
	}
	return out, nil
}

// Get loads one report.
func (r *Reports) Get(ctx context.Context, id string) (models.ContentReport, error) {
	var rep models.ContentReport
	if err := r.kv.GetJSON(reportKey(id), &rep); err != nil {
		if storedb.IsNotFound(err) {
			return rep, apperr.New(apperr.ContentNotFound)
		}
		return rep, apperr.Wrap(apperr.StorageError, err)
	}
	return rep, nil
}

// Stats summarises the queue.
type Stats struct {
	TotalReports          int     `json:"totalReports"`
	PendingReports        int     `json:"pendingReports"`
	ResolvedReports       int     `json:"resolvedReports"`
	AverageResolutionTime float64 `json:"averageResolutionTime"`
}

// Stats scans every report. AverageResolutionTime is in seconds.
func (r *Reports) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var total time.Duration
	err := r.kv.ScanPrefix(reportPrefix, func(key string, value []byte) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var rep models.ContentReport
		if err := json.Unmarshal(value, &rep); err != nil {
			return fmt.Errorf("report %s: %w", key, err)
		}
		st.TotalReports++
		switch rep.Status {
		case models.ReportPending:
			st.PendingReports++
		case models.ReportResolved:
			st.ResolvedReports++
			if rep.ResolvedAt != nil {
				total += rep.ResolvedAt.Sub(rep.CreatedAt)
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	if st.ResolvedReports > 0 {
		st.AverageResolutionTime = total.Seconds() / float64(st.ResolvedReports)
	}
	return st, nil
}
