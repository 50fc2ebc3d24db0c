package handler

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fadhilmayati/dompet-platform/internal/domain"
	"github.com/fadhilmayati/dompet-platform/internal/governor"
	"github.com/fadhilmayati/dompet-platform/internal/middleware"
	"github.com/fadhilmayati/dompet-platform/internal/tool"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

const (
	maxCSVRows   = 2000
	csvBatchSize = 500
)

// UploadCSVRequest is the body of POST /v1/upload-csv (spec.md §6). CSV rows
// use the fixed column order date,description,amount,type,category.
type UploadCSVRequest struct {
	Month string `json:"month"`
	CSV   string `json:"csv"`
}

// BatchResult describes one processed chunk of up to csvBatchSize rows.
type BatchResult struct {
	Batch     int    `json:"batch"`
	RowCount  int    `json:"rowCount"`
	Month     string `json:"month"`
}

// UploadCSVResponse is the body of POST /v1/upload-csv.
type UploadCSVResponse struct {
	IngestedCount int           `json:"ingestedCount"`
	Batches       []BatchResult `json:"batches"`
}

// UploadCSV serves POST /v1/upload-csv: parses the fixed-column CSV,
// enforces the 2000-row cap, and persists each row as a transaction via the
// tool registry's idempotent transactions.create path, in chunks of 500
// (spec.md §6).
func (a *App) UploadCSV(c echo.Context) error {
	identity := middleware.IdentityFromContext(c)
	if identity == nil {
		return domain.NewCodedError(domain.ErrCodeAuthRequired, "authentication required", domain.ErrAuthRequired)
	}

	var req UploadCSVRequest
	if err := c.Bind(&req); err != nil {
		return domain.NewCodedError(domain.ErrCodeValidation, "invalid request body", domain.ErrValidation)
	}

	rows, err := parseTransactionCSV(req.CSV)
	if err != nil {
		return domain.NewCodedError(domain.ErrCodeValidation, err.Error(), domain.ErrValidation)
	}
	if len(rows) > maxCSVRows {
		return domain.NewCodedError(domain.ErrCodeValidation, fmt.Sprintf("csv exceeds the %d row cap", maxCSVRows), domain.ErrValidation)
	}

	ctx, cancel := governor.WithDeadline(c.Request().Context(), a.deps.RequestTimeout)
	defer cancel()

	createTool, ok := a.deps.Tools.Get(tool.ToolTransactionsCreate)
	if !ok {
		return domain.NewCodedError(domain.ErrCodeInternal, "transactions.create is not registered", domain.ErrNotFound)
	}

	ingested := 0
	var batches []BatchResult
	for start := 0; start < len(rows); start += csvBatchSize {
		end := start + csvBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		batch := rows[start:end]

		for _, row := range batch {
			input := map[string]any{
				"customerId":  identity.CustomerID,
				"type":        row.Type,
				"amount":      row.Amount,
				"occurredAt":  row.OccurredAt,
				"description": row.Description,
				"category":    row.Category,
			}
			result, err := a.deps.Tools.Invoke(ctx, identity.TenantID, createTool, input, "")
			if err != nil {
				return err
			}
			if result.Status == "ok" {
				ingested++
			}
		}

		batches = append(batches, BatchResult{
			Batch:    start/csvBatchSize + 1,
			RowCount: len(batch),
			Month:    req.Month,
		})
	}

	return c.JSON(200, UploadCSVResponse{IngestedCount: ingested, Batches: batches})
}

type csvRow struct {
	OccurredAt  string
	Description string
	Amount      string
	Type        string
	Category    string
}

// parseTransactionCSV parses the fixed date,description,amount,type,category
// header and rows, validating the amount and date on each row.
func parseTransactionCSV(raw string) ([]csvRow, error) {
	reader := csv.NewReader(strings.NewReader(raw))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if err := validateCSVHeader(header); err != nil {
		return nil, err
	}

	var rows []csvRow
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to read csv row %d: %w", len(rows)+2, err)
		}
		if len(record) != 5 {
			return nil, fmt.Errorf("row %d: expected 5 columns, got %d", len(rows)+2, len(record))
		}

		date, description, amountStr, txType, category := record[0], record[1], record[2], record[3], record[4]
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, fmt.Errorf("row %d: invalid date %q", len(rows)+2, date)
		}
		if _, err := decimal.NewFromString(amountStr); err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", len(rows)+2, amountStr)
		}
		if !domain.TransactionType(txType).Valid() {
			return nil, fmt.Errorf("row %d: invalid transaction type %q", len(rows)+2, txType)
		}

		rows = append(rows, csvRow{
			OccurredAt:  date + "T00:00:00Z",
			Description: description,
			Amount:      amountStr,
			Type:        txType,
			Category:    category,
		})
	}
	return rows, nil
}

func validateCSVHeader(header []string) error {
	expected := []string{"date", "description", "amount", "type", "category"}
	if len(header) != len(expected) {
		return fmt.Errorf("expected columns %v, got %v", expected, header)
	}
	for i, col := range expected {
		if !strings.EqualFold(strings.TrimSpace(header[i]), col) {
			return fmt.Errorf("expected column %d to be %q, got %q", i, col, header[i])
		}
	}
	return nil
}
