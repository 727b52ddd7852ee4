package bulkimport

import (
	"strings"
)

// Column names recognized in the header row, after lowercasing and trimming.
var headerAliases = map[string]string{
	"title":           "title",
	"summary":         "summary",
	"notes":           "notes",
	"recipient":       "recipient",
	"requested token": "token",
	"token":           "token",
	"funding ask":     "amount",
	"amount":          "amount",
}

// ParseRows converts pasted tabular text into recipient rows. The first
// line is a header naming the columns; data rows are tab-separated. Rows
// with fewer fields than the header keep empty strings for the missing
// columns so the validator can flag them instead of silently dropping them.
func ParseRows(raw string) []*RecipientRow {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return nil
	}

	columns := parseHeader(lines[0])
	if len(columns) == 0 {
		return nil
	}

	var rows []*RecipientRow
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		row := &RecipientRow{Registration: RegistrationUnknown}
		empty := true
		for i, col := range columns {
			var value string
			if i < len(fields) {
				value = strings.TrimSpace(fields[i])
			}
			if value != "" {
				empty = false
			}
			switch col {
			case "title":
				row.Title = value
			case "summary":
				row.Summary = value
			case "notes":
				row.Notes = value
			case "recipient":
				row.Recipient = value
			case "token":
				row.RequestedToken = value
			case "amount":
				row.FundingAsk = value
			}
		}
		if empty {
			continue
		}
		rows = append(rows, row)
	}
	return rows
}

// parseHeader maps header cells to canonical column names. Unrecognized
// cells keep their position but contribute nothing to the row.
func parseHeader(line string) []string {
	cells := strings.Split(line, "\t")
	columns := make([]string, len(cells))
	known := 0
	for i, cell := range cells {
		name, ok := headerAliases[strings.ToLower(strings.TrimSpace(cell))]
		if ok {
			columns[i] = name
			known++
		}
	}
	if known == 0 {
		return nil
	}
	return columns
}
