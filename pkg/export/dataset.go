// Package export renders tabular datasets to CSV and PDF.
package export

// Dataset defines tabular export content. Rows are keyed by header.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
	// Summary lines are printed under the PDF title.
	Summary []string
	// Widths weights columns in the PDF. Missing headers weigh 1.
	Widths map[string]float64
}

func (d Dataset) records() [][]string {
	out := make([][]string, 0, len(d.Rows))
	for _, row := range d.Rows {
		record := make([]string, len(d.Headers))
		for i, header := range d.Headers {
			record[i] = row[header]
		}
		out = append(out, record)
	}
	return out
}

// columnWidths splits total across the headers by weight.
func (d Dataset) columnWidths(total float64) []float64 {
	weights := make([]float64, len(d.Headers))
	sum := 0.0
	for i, header := range d.Headers {
		w, ok := d.Widths[header]
		if !ok || w <= 0 {
			w = 1
		}
		weights[i] = w
		sum += w
	}
	for i := range weights {
		weights[i] = total * weights[i] / sum
	}
	return weights
}
