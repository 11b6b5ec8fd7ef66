package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/lukasalvarezdev/villing-api/internal/authz"
	"github.com/lukasalvarezdev/villing-api/internal/database"
	"github.com/lukasalvarezdev/villing-api/internal/enum"
	"github.com/lukasalvarezdev/villing-api/internal/middleware"
	"github.com/lukasalvarezdev/villing-api/internal/report"
	"github.com/xuri/excelize/v2"
)

// ReportStore defines the database methods needed by report handlers.
type ReportStore interface {
	ListDocuments(ctx context.Context, arg database.ListDocumentsParams) ([]database.Document, error)
}

// ReportHandler exports document data as spreadsheets.
type ReportHandler struct {
	store    ReportStore
	reporter *report.Reporter
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(store ReportStore, reporter *report.Reporter) *ReportHandler {
	return &ReportHandler{store: store, reporter: reporter}
}

// RegisterRoutes registers report endpoints on the given Chi router.
// Expected to be mounted at /orgs/{oid}/reports
func (h *ReportHandler) RegisterRoutes(r chi.Router) {
	r.Get("/documents.xlsx", h.ExportDocuments)
}

const exportLimit = 10000

// ExportDocuments handles GET /orgs/{oid}/reports/documents.xlsx.
// Canceled documents are included so the export reconciles against the
// full ledger history.
func (h *ReportHandler) ExportDocuments(w http.ResponseWriter, r *http.Request) {
	orgID, err := uuid.Parse(chi.URLParam(r, "oid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid org ID"})
		return
	}
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}
	if err := authz.Validate(claims.Role, enum.ActionReportExport); err != nil {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		return
	}

	docs, err := h.store.ListDocuments(r.Context(), database.ListDocumentsParams{
		OrgID:           orgID,
		IncludeCanceled: true,
		Limit:           exportLimit,
	})
	if err != nil {
		refID := h.reporter.Error("reports.export", err, map[string]any{"org_id": orgID.String()})
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":        "internal server error",
			"reference_id": refID,
		})
		return
	}

	f := excelize.NewFile()
	sheet := "Sheet1"

	headers := []string{"Number", "Kind", "Counterparty", "Subtotal", "Tax", "Discount", "Total", "Pending", "Status", "Created At"}
	for i, hd := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, hd)
	}

	for i, d := range docs {
		row := i + 2
		status := "LIVE"
		if d.CanceledAt.Valid {
			status = "CANCELED"
		}
		counterparty := ""
		if d.CounterpartyName.Valid {
			counterparty = d.CounterpartyName.String
		} else if d.SupplierID.Valid {
			counterparty = uuid.UUID(d.SupplierID.Bytes).String()
		}
		values := []interface{}{
			d.DocumentNumber,
			d.Kind,
			counterparty,
			numericToString(d.Subtotal),
			numericToString(d.TaxAmount),
			numericToString(d.DiscountAmount),
			numericToString(d.Total),
			numericToString(d.Pending),
			status,
			d.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		for j, v := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, row)
			f.SetCellValue(sheet, cell, v)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=documents-%s.xlsx", orgID))
	if err := f.Write(w); err != nil {
		h.reporter.Error("reports.export", err, map[string]any{"org_id": orgID.String()})
	}
}
