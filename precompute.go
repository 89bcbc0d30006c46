package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/community-scripts/dataset-dashboard/internal/dashboard"
)

// Report describes documents to compute from SQL queries.
//
//	driver: sqlite
//	dsn: db/analysis.db
//	output_dir: static
//	documents:
//	  - name: catering_results
//	    categories:
//	      - name: Finance
//	        datasets:
//	          - key: monthly_revenue_bar
//	            query: SELECT month, SUM(amount) AS revenue FROM orders GROUP BY month
type Report struct {
	Driver    string           `yaml:"driver"`
	DSN       string           `yaml:"dsn"`
	OutputDir string           `yaml:"output_dir"`
	Documents []ReportDocument `yaml:"documents"`
}

type ReportDocument struct {
	Name       string           `yaml:"name"`
	Categories []ReportCategory `yaml:"categories"`
}

type ReportCategory struct {
	Name     string          `yaml:"name"`
	Datasets []ReportDataset `yaml:"datasets"`
}

type ReportDataset struct {
	Key   string `yaml:"key"`
	Query string `yaml:"query"`
}

var errNoDocuments = errors.New("report defines no documents")

func loadReport(path string) (Report, error) {
	var r Report
	data, err := os.ReadFile(path)
	if err != nil {
		return r, err
	}
	if err := yaml.Unmarshal(data, &r); err != nil {
		return r, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(r.Documents) == 0 {
		return r, errNoDocuments
	}
	for _, d := range r.Documents {
		if !documentName.MatchString(d.Name) {
			return r, fmt.Errorf("%w: %q", ErrInvalidName, d.Name)
		}
	}
	if r.OutputDir == "" {
		r.OutputDir = "."
	}
	return r, nil
}

func openReportDB(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "", "sqlite", "sqlite3":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

// Precomputer runs report queries and writes the resulting documents.
type Precomputer struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewPrecomputer(db *gorm.DB, logger *zap.Logger) *Precomputer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Precomputer{db: db, logger: logger}
}

// Run computes every document of r. A document whose queries fail is not
// written; the others still are. It returns the paths written.
func (p *Precomputer) Run(ctx context.Context, r Report) ([]string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return nil, err
	}
	var (
		written []string
		errs    []error
	)
	for _, def := range r.Documents {
		doc, err := p.Compute(ctx, def)
		if err != nil {
			p.logger.Warn("document skipped", zap.String("document", def.Name), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", def.Name, err))
			continue
		}
		path := filepath.Join(r.OutputDir, def.Name+documentExt)
		if err := writeDocument(path, doc); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", def.Name, err))
			continue
		}
		p.logger.Info("document written",
			zap.String("document", def.Name),
			zap.String("path", path),
			zap.Int("categories", len(doc.Categories)),
		)
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

// Compute runs the queries of one document in declaration order.
func (p *Precomputer) Compute(ctx context.Context, def ReportDocument) (*dashboard.Document, error) {
	doc := &dashboard.Document{}
	for _, c := range def.Categories {
		cat := dashboard.Category{Name: c.Name}
		for _, d := range c.Datasets {
			rows, err := p.query(ctx, d.Query)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", c.Name, d.Key, err)
			}
			if len(rows) == 0 {
				p.logger.Debug("dataset empty", zap.String("category", c.Name), zap.String("dataset", d.Key))
				continue
			}
			cat.Datasets = append(cat.Datasets, dashboard.NewDataset(d.Key, rows))
		}
		doc.Categories = append(doc.Categories, cat)
	}
	return doc, nil
}

func (p *Precomputer) query(ctx context.Context, q string) ([]dashboard.Row, error) {
	rows, err := p.db.WithContext(ctx).Raw(q).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []dashboard.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(dashboard.Row, len(cols))
		for i, col := range cols {
			row[i] = dashboard.Cell{Column: col, Value: sqlValue(values[i])}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// sqlValue maps a scanned column value onto the document value types.
func sqlValue(v any) any {
	switch t := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(t)
	case string:
		return t
	case int64:
		return json.Number(strconv.FormatInt(t, 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(t), 10))
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil
		}
		return json.Number(strconv.FormatFloat(t, 'f', -1, 64))
	case float32:
		return sqlValue(float64(t))
	case bool:
		return t
	case time.Time:
		return t.Format(time.DateTime)
	default:
		return fmt.Sprint(t)
	}
}

func writeDocument(path string, doc *dashboard.Document) error {
	raw, err := doc.MarshalJSON()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "    "); err != nil {
		return err
	}
	buf.WriteByte('\n')
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
