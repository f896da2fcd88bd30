package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/anukritich/AyushSetu/internal/catalog"
	"github.com/anukritich/AyushSetu/internal/detector"
	"github.com/anukritich/AyushSetu/internal/domain"
	"github.com/anukritich/AyushSetu/internal/logger"
	"github.com/anukritich/AyushSetu/internal/repository"
	"github.com/anukritich/AyushSetu/internal/schema"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Pipeline 把目录下的术语源文件导入各体系规范表
// - 识别体系 -> 解析 -> 白名单投影 -> 按主键 upsert
// - 解析阶段按文件并行，写入阶段在一个事务内按文件名顺序串行
// - 每个 Pipeline 持有自己的 Registry 副本，Register 只影响本实例
type Pipeline struct {
	registry *schema.Registry

	mu       sync.Mutex // guards detector
	detector *detector.Detector
	repo     repository.TermTablesRepository
	logger   *zap.Logger
	workers  int
	tabular  bool
}

type Option func(*Pipeline)

// WithRegistry uses a private copy of reg instead of the WHO defaults.
func WithRegistry(reg *schema.Registry) Option {
	return func(p *Pipeline) { p.registry = reg.Clone() }
}

// WithDetector uses a private copy of det instead of the default detector.
func WithDetector(det *detector.Detector) Option {
	return func(p *Pipeline) { p.detector = det.Clone() }
}

func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithTabular also ingests .xlsx/.xlsm/.csv files.
func WithTabular(enabled bool) Option {
	return func(p *Pipeline) { p.tabular = enabled }
}

func New(repo repository.TermTablesRepository, log *zap.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		repo:    repo,
		logger:  logger.OrNop(log),
		workers: 4,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = schema.DefaultWHO()
	}
	if p.detector == nil {
		p.detector = detector.Default()
	}
	return p
}

// Register 运行时注册新体系，下一次 Build 即生效
// 体系名本身作为文件名关键字追加到识别规则末尾
func (p *Pipeline) Register(systemKey, tableName string, columns []string, createStatement string) error {
	if err := p.registry.Register(systemKey, tableName, columns, createStatement); err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(systemKey))
	p.mu.Lock()
	defer p.mu.Unlock()
	if detected, ok := p.detector.Detect(key); !ok || detected != key {
		p.detector.Append(key, key)
	}
	p.logger.Info("Registered new system", zap.String("system", key), zap.String("table", tableName))
	return nil
}

// Definitions returns the schemas this pipeline will ensure and write to.
func (p *Pipeline) Definitions() []domain.SchemaDefinition {
	return p.registry.Definitions()
}

type parsedFile struct {
	report  domain.FileReport
	def     domain.SchemaDefinition
	records []map[string]any
}

// Build 导入 folder 下的全部源文件
// folder 不存在或不是目录时返回 ErrNotFound；单个文件的问题只记录在报告里，不中断整个运行
// 存储错误或 ctx 取消会中止运行，本次事务回滚，已提交的历史数据不受影响
func (p *Pipeline) Build(ctx context.Context, folder string) (*domain.RunReport, error) {
	src, err := filepath.Abs(folder)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", folder, err)
	}
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source folder %s: %w", src, domain.ErrNotFound)
	}

	report := &domain.RunReport{
		RunID:     uuid.NewString(),
		Folder:    src,
		Target:    p.repo.Target(),
		StartedAt: time.Now(),
	}
	log := p.logger.With(zap.String("run_id", report.RunID), zap.String("folder", src))

	defs := p.registry.Definitions()
	byKey := make(map[string]domain.SchemaDefinition, len(defs))
	for _, def := range defs {
		log.Debug("Ensuring table", zap.String("system", def.SystemKey), zap.String("table", def.TableName))
		if err := p.repo.EnsureTable(ctx, def); err != nil {
			return nil, err
		}
		byKey[def.SystemKey] = def
	}
	p.mu.Lock()
	det := p.detector.Clone()
	p.mu.Unlock()

	files, err := p.listFiles(src)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		log.Warn("No source files found")
	}

	parsed := make([]parsedFile, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parsed[i] = p.parseFile(log, det, byKey, path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	err = p.repo.WithinTx(ctx, func(w repository.TableWriter) error {
		for i := range parsed {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.writeFile(ctx, log, w, &parsed[i]); err != nil {
				return err
			}
		}
		return nil
	})

	for _, pf := range parsed {
		report.Files = append(report.Files, pf.report)
	}
	report.FinishedAt = time.Now()
	if err != nil {
		log.Error("Ingestion run aborted", zap.Error(err))
		return report, err
	}

	log.Info("Master database updated",
		zap.String("target", report.Target),
		zap.Int("files", len(report.Files)),
		zap.Int("imported", report.Count(domain.OutcomeImported)),
		zap.Int("rows", report.RowsWritten()),
	)
	return report, nil
}

func (p *Pipeline) listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if strings.EqualFold(filepath.Ext(name), ".json") || (p.tabular && catalog.IsTabular(name)) {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

func (p *Pipeline) parseFile(log *zap.Logger, det *detector.Detector, defs map[string]domain.SchemaDefinition, path string) parsedFile {
	name := filepath.Base(path)
	pf := parsedFile{report: domain.FileReport{File: name}}

	system, ok := det.Detect(name)
	def, registered := defs[system]
	if !ok || !registered {
		pf.report.Outcome = domain.OutcomeSkippedUnrecognized
		pf.report.Error = domain.ErrUnrecognizedSystem.Error()
		log.Warn("Skipping file: system not recognized", zap.String("file", name))
		return pf
	}
	pf.def = def
	pf.report.System = system
	pf.report.Table = def.TableName

	var err error
	if catalog.IsTabular(name) {
		pf.records, err = p.tableRecords(log, def, path)
	} else {
		var nonObject int
		pf.records, nonObject, err = catalog.ReadJSONRecords(path)
		if nonObject > 0 {
			log.Debug("Ignored non-object elements", zap.String("file", name), zap.Int("count", nonObject))
		}
	}
	if err != nil {
		pf.records = nil
		pf.report.Outcome = domain.OutcomeSkippedMalformed
		pf.report.Error = err.Error()
		if !errors.Is(err, domain.ErrMalformedSource) {
			err = fmt.Errorf("%v: %w", err, domain.ErrMalformedSource)
		}
		log.Error("Skipping file: malformed source", zap.String("file", name), zap.Error(err))
		return pf
	}

	pf.report.Outcome = domain.OutcomeImported
	pf.report.Records = len(pf.records)
	return pf
}

// tableRecords 表格行转记录：规范化表头作为键，推断出的标识/术语/描述列再写到主键、english_term、description
func (p *Pipeline) tableRecords(log *zap.Logger, def domain.SchemaDefinition, path string) ([]map[string]any, error) {
	headers, rows, err := catalog.ReadTable(path, "")
	if err != nil {
		return nil, err
	}
	inf := catalog.InferColumns(headers)
	if !inf.Confident {
		log.Warn("Column roles inferred by position",
			zap.String("file", filepath.Base(path)),
			zap.String("id_column", inf.IDColumn),
			zap.String("text_column", inf.TextColumn),
		)
	}
	index := func(name string) int {
		for i, h := range headers {
			if name != "" && h == name {
				return i
			}
		}
		return -1
	}
	idIdx, textIdx, descIdx := index(inf.IDColumn), index(inf.TextColumn), index(inf.DescriptionColumn)

	records := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		rec := map[string]any{}
		for i, h := range headers {
			if key := catalog.NormalizeHeader(h); key != "" {
				if v := catalog.Cell(row, i); v != "" {
					rec[key] = v
				}
			}
		}
		if v := catalog.Cell(row, idIdx); v != "" {
			rec[def.PrimaryKey] = v
		}
		if v := catalog.Cell(row, textIdx); v != "" && textIdx != idIdx {
			rec["english_term"] = v
		}
		if v := catalog.Cell(row, descIdx); v != "" {
			rec["description"] = v
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p *Pipeline) writeFile(ctx context.Context, log *zap.Logger, w repository.TableWriter, pf *parsedFile) error {
	if pf.report.Outcome != domain.OutcomeImported {
		return nil
	}
	for _, rec := range pf.records {
		row, err := project(pf.def, rec)
		if err != nil {
			pf.report.Empty++
			log.Debug("Skipping record", zap.String("file", pf.report.File), zap.Error(err))
			continue
		}
		if pk, _ := row[pf.def.PrimaryKey].(string); pk == "" {
			pf.report.MissingPK++
			log.Debug("Skipping record without primary key",
				zap.String("file", pf.report.File), zap.String("primary_key", pf.def.PrimaryKey))
			continue
		}
		if err := w.Upsert(ctx, pf.def, row); err != nil {
			return fmt.Errorf("%s: %w", pf.report.File, err)
		}
		pf.report.Written++
	}
	pf.records = nil
	log.Info("Imported file",
		zap.String("file", pf.report.File),
		zap.String("table", pf.report.Table),
		zap.Int("rows", pf.report.Written),
	)
	return nil
}

// project keeps only whitelisted keys, with values converted to text.
// A record sharing no key with the whitelist yields ErrEmptyProjection.
func project(def domain.SchemaDefinition, rec map[string]any) (domain.Row, error) {
	row := def.Project(rec)
	if len(row) == 0 {
		return nil, fmt.Errorf("no %s column in record: %w", def.TableName, domain.ErrEmptyProjection)
	}
	for k, v := range row {
		row[k] = catalog.StringValue(v)
	}
	return row, nil
}
