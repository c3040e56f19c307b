package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// exportCSV renders the lead rows as a CSV file.
func exportCSV(title string, leads []LeadRow) (*Result, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"name", "company", "pipeline_stage", "estimated_value", "probability", "created_at"}
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	for _, lead := range leads {
		row := []string{
			lead.Name,
			lead.Company,
			lead.PipelineStage,
			strconv.FormatFloat(lead.EstimatedValue, 'f', 2, 64),
			strconv.Itoa(lead.Probability),
			lead.CreatedAt.Format("2006-01-02"),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}

	return &Result{
		Data:     buf.Bytes(),
		Filename: sanitizeFilename(title) + ".csv",
		MimeType: "text/csv",
	}, nil
}
