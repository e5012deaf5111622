package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"work_orders/report"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type reportComposer interface {
	ComposeDocument(ctx context.Context, workOrderID int64) (*report.Document, error)
}

func reportFilename(number string, at time.Time) string {
	number = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r < ' ' {
			return '-'
		}
		return r
	}, strings.TrimSpace(number))
	return fmt.Sprintf("WorkOrderReport_%s_%d.xlsx", number, at.UnixMilli())
}

func workOrderSheetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := report.ParseWorkOrderID(r.URL.Query().Get("workOrderId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Work order ID is required")
		return
	}

	doc, err := composer.ComposeDocument(r.Context(), id)
	switch {
	case errors.Is(err, report.ErrNotFound):
		writeError(w, http.StatusNotFound, "Work order not found")
		return
	case errors.Is(err, report.ErrMalformedInput):
		writeError(w, http.StatusBadRequest, "Work order ID is required")
		return
	case err != nil:
		internalError(w, r, "Failed to generate Excel report", err)
		return
	}

	filename := reportFilename(doc.WorkOrderNumber, time.Now())
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Data); err != nil {
		requestLogger(r).Warn("report write interrupted", zap.Int64("work_order_id", id), zap.Error(err))
	}
}
