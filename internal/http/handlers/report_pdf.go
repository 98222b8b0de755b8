package handlers

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"courier-reconciliation-service/internal/reconcile"
	"courier-reconciliation-service/internal/utils"
	"courier-reconciliation-service/pkg/response"

	"github.com/phpdave11/gofpdf"
)

type reportData struct {
	Title       string
	CourierName string
	From        string
	To          string
	GeneratedAt string
	Metrics     reconcile.Metrics
	CourierFee  *float64
}

func (h *Handler) ReconciliationReportPDF(w http.ResponseWriter, r *http.Request) {
	q, ok := h.readReconciliationQuery(w, r)
	if !ok {
		return
	}
	_, metrics, err := h.computeReconciliation(r, q)
	if err != nil {
		h.writeStoreError(w, err, "Failed to compute reconciliation")
		return
	}

	data := reportData{
		Title:       "Courier reconciliation",
		CourierName: "All couriers",
		From:        strings.TrimSpace(r.URL.Query().Get("from")),
		To:          strings.TrimSpace(r.URL.Query().Get("to")),
		GeneratedAt: h.now().In(h.loc()).Format("2006-01-02 15:04"),
		Metrics:     metrics,
	}
	if q.CourierID != nil {
		data.CourierName = *q.CourierID
		if couriers, err := h.Orders.ListCouriers(r.Context()); err == nil {
			for _, c := range couriers {
				if c.ID == *q.CourierID {
					data.CourierName = c.Name
				}
			}
		}
		if h.CourierFees != nil && data.From != "" {
			if fee, found := h.CourierFees.Get(*q.CourierID, data.From); found {
				data.CourierFee = &fee
			}
		}
	}

	buf, err := renderReconciliationPDF(data)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to generate report")
		return
	}

	filename := fmt.Sprintf("reconciliation_%s_%s.pdf", sanitizeFilename(data.CourierName), sanitizeFilename(data.From))
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s\"", filename))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

func sanitizeFilename(value string) string {
	cleaned := unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(value), "_")
	if cleaned == "" {
		return "all"
	}
	return cleaned
}

func money(v float64) string {
	return fmt.Sprintf("%.2f", utils.Round2(v))
}

func renderReconciliationPDF(data reportData) (*bytes.Buffer, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, data.Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 5, data.CourierName, "", 1, "C", false, 0, "")
	period := "All dates"
	if data.From != "" || data.To != "" {
		period = fmt.Sprintf("%s to %s", orDash(data.From), orDash(data.To))
	}
	pdf.CellFormat(0, 5, period, "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 5, "Generated "+data.GeneratedAt, "", 1, "C", false, 0, "")

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "By status", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(60, 5, "Status", "", 0, "L", false, 0, "")
	pdf.CellFormat(25, 5, "Orders", "", 0, "R", false, 0, "")
	pdf.CellFormat(45, 5, "Original", "", 0, "R", false, 0, "")
	pdf.CellFormat(45, 5, "Collected", "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, status := range reconcile.AllStatuses() {
		sm := data.Metrics.ByStatus[status]
		pdf.CellFormat(60, 5, string(status), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 5, fmt.Sprint(sm.Count), "", 0, "R", false, 0, "")
		pdf.CellFormat(45, 5, money(sm.OriginalValue), "", 0, "R", false, 0, "")
		pdf.CellFormat(45, 5, money(sm.CourierCollected), "", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "By payment channel", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	for _, channel := range reconcile.AllChannels() {
		cm := data.Metrics.ByChannel[channel]
		if cm.Count == 0 {
			continue
		}
		pdf.CellFormat(60, 5, string(channel), "", 0, "L", false, 0, "")
		pdf.CellFormat(25, 5, fmt.Sprint(cm.Count), "", 0, "R", false, 0, "")
		pdf.CellFormat(45, 5, money(cm.Amount), "", 1, "R", false, 0, "")
	}

	pdf.Ln(3)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	totals := []struct {
		label string
		value float64
	}{
		{"Cash-like orders", data.Metrics.TotalCODOrders.Amount},
		{"Handed to accounting", data.Metrics.TotalHandToAccounting},
		{"Collected overall", data.Metrics.TotalCollectedOverall},
		{"Not delivered", data.Metrics.TotalNotDelivered},
	}
	for _, t := range totals {
		pdf.CellFormat(85, 5, t.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(45, 5, money(t.value), "", 1, "R", false, 0, "")
	}
	if data.CourierFee != nil {
		pdf.CellFormat(85, 5, "Courier fee", "", 0, "L", false, 0, "")
		pdf.CellFormat(45, 5, money(*data.CourierFee), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(85, 6, "Accounting difference", "", 0, "L", false, 0, "")
	pdf.CellFormat(45, 6, money(data.Metrics.AccountingDifference), "", 1, "R", false, 0, "")

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
