// Package importer loads vocabulary from spreadsheets. Each row holds one form:
// column A the English meaning, B the form type, C the Arabic form. Rows sharing
// a meaning are merged into one word, keeping their order.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"vocabquiz/internal/models"
	"vocabquiz/internal/validation"
)

// Column positions within a row
const (
	colMeaning = iota
	colFormType
	colFormValue
)

// Config defines the import configuration
type Config struct {
	FilePath  string // .xlsx or .csv
	SheetName string // defaults to the first sheet
	StartRow  int    // 1-based; rows before it are skipped
}

// DefaultConfig skips a single header row
func DefaultConfig(path string) Config {
	return Config{FilePath: path, StartRow: 2}
}

// Result holds the result of an import operation
type Result struct {
	TotalRows int
	Words     int
	Created   int
	Updated   int
	Skipped   int
	Errors    []string
}

// WordSaver stores a word, replacing its forms when the meaning already exists
type WordSaver interface {
	SaveWord(ctx context.Context, meaning string, forms []models.Form) (int64, bool, error)
}

// Importer writes parsed rows through a WordSaver
type Importer struct {
	saver  WordSaver
	logger *logrus.Entry
}

// New creates an importer
func New(saver WordSaver, logger *logrus.Logger) *Importer {
	return &Importer{saver: saver, logger: logger.WithField("component", "importer")}
}

// ImportFile imports words from an Excel or CSV file
func (im *Importer) ImportFile(ctx context.Context, cfg Config) (*Result, error) {
	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(cfg.FilePath)); ext {
	case ".csv":
		rows, err = readCSVFile(cfg.FilePath)
	case ".xlsx", ".xlsm":
		rows, err = readExcel(cfg.FilePath, cfg.SheetName)
	default:
		return nil, fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	im.logger.WithFields(logrus.Fields{"file": cfg.FilePath, "rows": len(rows)}).Info("Importing vocabulary")
	return im.ImportRows(ctx, rows, cfg.StartRow)
}

// ImportCSV imports words from CSV read from r
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, startRow int) (*Result, error) {
	rows, err := readCSV(r)
	if err != nil {
		return nil, err
	}
	return im.ImportRows(ctx, rows, startRow)
}

type pendingWord struct {
	meaning string
	forms   []models.Form
}

// ImportRows groups rows by meaning and saves each word. Row problems are
// collected in Result.Errors; only storage failures abort the import.
func (im *Importer) ImportRows(ctx context.Context, rows [][]string, startRow int) (*Result, error) {
	result := &Result{Errors: make([]string, 0)}
	startRow = max(startRow, 1)

	var order []string
	words := make(map[string]*pendingWord)

	for i, row := range rows {
		rowNum := i + 1
		if rowNum < startRow {
			continue
		}
		if isBlank(row) {
			continue
		}
		result.TotalRows++

		meaning := cell(row, colMeaning)
		formType := cell(row, colFormType)
		formValue := cell(row, colFormValue)

		if err := validation.ValidateMeaning(meaning); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		if err := validation.ValidateForm(formType, formValue); err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}

		w, ok := words[meaning]
		if !ok {
			w = &pendingWord{meaning: meaning}
			words[meaning] = w
			order = append(order, meaning)
		}
		w.forms = append(w.forms, models.Form{Type: formType, Value: formValue})
	}

	for _, meaning := range order {
		w := words[meaning]
		_, created, err := im.saver.SaveWord(ctx, w.meaning, w.forms)
		if err != nil {
			return result, fmt.Errorf("failed to save %q: %w", w.meaning, err)
		}
		result.Words++
		if created {
			result.Created++
		} else {
			result.Updated++
		}
	}

	im.logger.WithFields(logrus.Fields{
		"words":   result.Words,
		"created": result.Created,
		"updated": result.Updated,
		"skipped": result.Skipped,
	}).Info("Vocabulary import finished")
	return result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, errors.New("workbook has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSVFile(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()
	return readCSV(file)
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(row[idx], "\ufeff"))
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
