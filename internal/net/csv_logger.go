package net

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// CSVLogger logs training progress to a CSV file.
type CSVLogger struct {
	BaseCallback
	Filename string
	Append   bool

	file   *os.File
	writer *csv.Writer
	start  time.Time
}

// NewCSVLogger creates a new CSVLogger.
func NewCSVLogger(filename string, append bool) *CSVLogger {
	return &CSVLogger{
		Filename: filename,
		Append:   append,
	}
}

func (c *CSVLogger) OnTrainBegin(t *Trainer) error {
	mode := os.O_CREATE | os.O_WRONLY
	if c.Append {
		mode |= os.O_APPEND
	} else {
		mode |= os.O_TRUNC
	}

	file, err := os.OpenFile(c.Filename, mode, 0644)
	if err != nil {
		return errors.Wrapf(err, "csv logger: open %s", c.Filename)
	}
	c.file = file
	c.writer = csv.NewWriter(file)
	c.start = time.Now()

	// Write header if not appending or if file is empty
	info, err := file.Stat()
	if err == nil && (info.Size() == 0 || !c.Append) {
		if err := c.writer.Write([]string{"step", "mse", "max_error", "time_seconds"}); err != nil {
			c.OnTrainEnd(t)
			return errors.Wrap(err, "csv logger: header")
		}
		c.writer.Flush()
	}
	if err := c.writer.Error(); err != nil {
		c.OnTrainEnd(t)
		return errors.Wrap(err, "csv logger: header")
	}
	return nil
}

func (c *CSVLogger) OnReport(r Report) error {
	if c.writer == nil {
		return nil
	}

	elapsed := time.Since(c.start).Seconds()
	record := []string{
		strconv.FormatInt(r.Step, 10),
		fmt.Sprintf("%.6f", r.MSE()),
		fmt.Sprintf("%.6f", r.MaxError()),
		fmt.Sprintf("%.2f", elapsed),
	}

	if err := c.writer.Write(record); err != nil {
		return errors.Wrap(err, "csv logger: write record")
	}
	c.writer.Flush()
	return errors.Wrap(c.writer.Error(), "csv logger: flush")
}

func (c *CSVLogger) OnTrainEnd(t *Trainer) error {
	if c.file == nil {
		return nil
	}
	c.writer.Flush()
	err := c.file.Close()
	c.file = nil
	c.writer = nil
	return errors.Wrap(err, "csv logger: close")
}
