package analyzer

import (
	"encoding/csv"
	"io"
	"strconv"
)

// CSVHeader is the first record written by CSVWriter.
var CSVHeader = []string{"frame", "ratio", "%0xff", "%0x00", "min", "max", "avg"}

// CSVWriter writes one record per frame. Frames whose runs are all 0 or 255
// have no defined min/max and get empty cells.
type CSVWriter struct {
	w      *csv.Writer
	header bool
}

// NewCSVWriter creates a writer; the header is written with the first record.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// Write appends the record for one frame.
func (c *CSVWriter) Write(fs FrameStats) error {
	if !c.header {
		if err := c.w.Write(CSVHeader); err != nil {
			return err
		}
		c.header = true
	}

	lo, hi := "", ""
	if fs.HasRange {
		lo, hi = strconv.Itoa(fs.Min), strconv.Itoa(fs.Max)
	}

	return c.w.Write([]string{
		strconv.Itoa(fs.Index),
		formatFloat(fs.Ratio),
		formatFloat(fs.High),
		formatFloat(fs.Low),
		lo,
		hi,
		formatFloat(fs.Avg),
	})
}

// Flush writes the header if nothing was written yet and flushes buffered
// records.
func (c *CSVWriter) Flush() error {
	if !c.header {
		if err := c.w.Write(CSVHeader); err != nil {
			return err
		}
		c.header = true
	}
	c.w.Flush()
	return c.w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
