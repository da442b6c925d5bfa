package schema

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edu-platform/pkg/metrics"
)

// ErrRowCountMismatch 整表重建时影子表行数与原表不一致
var ErrRowCountMismatch = errors.New("schema: row count mismatch after copy")

// StepStatus 校正步骤结果
type StepStatus string

const (
	StepApplied StepStatus = "applied"
	StepNoop    StepStatus = "noop"
	StepFailed  StepStatus = "failed"
)

// StepResult 单个校正步骤的结果
type StepResult struct {
	Step   string
	Status StepStatus
	Detail string
}

// Report 一次 Run 的全部步骤结果
type Report struct {
	Results []StepResult
}

// Count 指定状态的步骤数
func (r *Report) Count(status StepStatus) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Failures 失败的步骤
func (r *Report) Failures() []StepResult {
	var out []StepResult
	for _, res := range r.Results {
		if res.Status == StepFailed {
			out = append(out, res)
		}
	}
	return out
}

// VersionRecord schema_version 表中的一行
type VersionRecord struct {
	Step      string     `gorm:"column:step"`
	Status    string     `gorm:"column:status"`
	Detail    string     `gorm:"column:detail"`
	AppliedAt *time.Time `gorm:"column:applied_at"`
	CheckedAt time.Time  `gorm:"column:checked_at"`
}

const versionTable = "schema_version"

// Reconciler 启动时把实际表结构校正到规范结构
type Reconciler struct {
	db        *gorm.DB
	inspector *Inspector
	dialect   Dialect
	shapes    []TableShape
	logger    *zap.Logger
	now       func() time.Time
}

// NewReconciler 创建 Reconciler；未指定表结构时使用 DefaultShapes
func NewReconciler(db *gorm.DB, logger *zap.Logger, shapes ...TableShape) *Reconciler {
	if len(shapes) == 0 {
		shapes = DefaultShapes()
	}
	return &Reconciler{
		db:        db,
		inspector: NewInspector(db),
		dialect:   DialectOf(db),
		shapes:    shapes,
		logger:    logger,
		now:       time.Now,
	}
}

// Run 按顺序执行全部校正步骤；单步失败只记录日志，继续后续步骤
func (r *Reconciler) Run(ctx context.Context) *Report {
	report := &Report{}
	start := r.now()

	if err := r.ensureVersionTable(ctx); err != nil {
		r.logger.Warn("创建 schema_version 表失败，本次校正不落库记录", zap.Error(err))
	}

	for _, shape := range r.shapes {
		r.reconcileTable(ctx, shape, report)
	}

	fields := []zap.Field{
		zap.Int("applied", report.Count(StepApplied)),
		zap.Int("noop", report.Count(StepNoop)),
		zap.Int("failed", report.Count(StepFailed)),
		zap.Duration("elapsed", r.now().Sub(start)),
	}
	if report.Count(StepFailed) > 0 {
		r.logger.Warn("表结构校正完成（部分步骤失败）", fields...)
	} else {
		r.logger.Info("表结构校正完成", fields...)
	}
	return report
}

func (r *Reconciler) reconcileTable(ctx context.Context, shape TableShape, report *Report) {
	for _, legacy := range shape.LegacyNames {
		legacy := legacy
		r.step(ctx, report, shape.Name+":adopt:"+legacy, func() (bool, error) {
			return r.AdoptLegacyTable(ctx, shape.Name, legacy)
		})
	}

	r.step(ctx, report, shape.Name+":create", func() (bool, error) {
		return r.EnsureTable(ctx, shape)
	})

	if shape.Rebuild != nil {
		r.step(ctx, report, shape.Name+":rebuild", func() (bool, error) {
			return r.EnsureTableShape(ctx, shape)
		})
	}

	for _, col := range shape.Columns {
		if col.PrimaryKey {
			continue
		}
		col := col
		r.step(ctx, report, shape.Name+":column:"+col.Name, func() (bool, error) {
			return r.EnsureColumn(ctx, shape.Name, col)
		})
	}

	for _, idx := range shape.Indexes {
		idx := idx
		r.step(ctx, report, shape.Name+":index:"+idx.Name, func() (bool, error) {
			return r.EnsureUniqueIndex(ctx, shape.Name, idx)
		})
	}
}

func (r *Reconciler) step(ctx context.Context, report *Report, name string, fn func() (bool, error)) {
	applied, err := fn()

	res := StepResult{Step: name, Status: StepNoop}
	switch {
	case err != nil:
		res.Status = StepFailed
		res.Detail = err.Error()
		r.logger.Error("表结构校正步骤失败", zap.String("step", name), zap.Error(err))
	case applied:
		res.Status = StepApplied
		r.logger.Info("表结构校正步骤已应用", zap.String("step", name))
	}

	metrics.SchemaSteps.WithLabelValues(string(res.Status)).Inc()
	if err := r.record(ctx, res); err != nil {
		r.logger.Warn("写入 schema_version 失败", zap.String("step", name), zap.Error(err))
	}
	report.Results = append(report.Results, res)
}

func (r *Reconciler) ensureVersionTable(ctx context.Context) error {
	ts := r.dialect.SQLType(TypeTime)
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (step TEXT PRIMARY KEY, status TEXT NOT NULL, detail TEXT, applied_at %s, checked_at %s NOT NULL)",
		versionTable, ts, ts,
	)
	return r.db.WithContext(ctx).Exec(ddl).Error
}

const upsertVersionSQL = `INSERT INTO schema_version (step, status, detail, applied_at, checked_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (step) DO UPDATE SET
    status = excluded.status,
    detail = excluded.detail,
    applied_at = COALESCE(excluded.applied_at, schema_version.applied_at),
    checked_at = excluded.checked_at`

func (r *Reconciler) record(ctx context.Context, res StepResult) error {
	now := r.now().UTC()
	var appliedAt *time.Time
	if res.Status == StepApplied {
		appliedAt = &now
	}
	return r.db.WithContext(ctx).Exec(upsertVersionSQL, res.Step, string(res.Status), res.Detail, appliedAt, now).Error
}

// History 读取 schema_version 中的全部记录
func (r *Reconciler) History(ctx context.Context) ([]VersionRecord, error) {
	var rows []VersionRecord
	err := r.db.WithContext(ctx).Table(versionTable).Order("step").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("schema: read history: %w", err)
	}
	return rows, nil
}

// EnsureColumn 列（或其任一同义列）不存在时追加
// 并发启动导致的“列已存在”错误视为成功，其余错误原样返回
func (r *Reconciler) EnsureColumn(ctx context.Context, table string, col ColumnSpec) (bool, error) {
	if err := checkIdent(table, col.Name); err != nil {
		return false, err
	}
	cols, err := r.inspector.Columns(ctx, table)
	if err != nil {
		return false, err
	}
	if cols.Has(col.Name) {
		return false, nil
	}
	for _, alias := range col.Aliases {
		if cols.Has(alias) {
			return false, nil
		}
	}

	ddl, backfill := r.addColumnDDL(table, col)
	if err := r.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		if r.dialect.IsDuplicateColumn(err) {
			r.logger.Debug("列已由其他进程添加", zap.String("table", table), zap.String("column", col.Name))
			return false, nil
		}
		return false, fmt.Errorf("schema: add column %s.%s: %w", table, col.Name, err)
	}
	if backfill != "" {
		if err := r.db.WithContext(ctx).Exec(backfill).Error; err != nil {
			return true, fmt.Errorf("schema: backfill %s.%s: %w", table, col.Name, err)
		}
	}
	return true, nil
}

// addColumnDDL 生成 ADD COLUMN 语句
// 已有数据行无法满足无默认值的 NOT NULL；SQLite 不接受非常量默认值，改为追加后回填
func (r *Reconciler) addColumnDDL(table string, col ColumnSpec) (string, string) {
	def := col.Default
	notNull := col.NotNull && def != ""
	var backfill string

	if r.dialect == DialectSQLite && def == "CURRENT_TIMESTAMP" {
		backfill = fmt.Sprintf("UPDATE %s SET %s = CURRENT_TIMESTAMP WHERE %s IS NULL",
			quote(table), quote(col.Name), quote(col.Name))
		def = ""
		notNull = false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ALTER TABLE %s ADD COLUMN %s %s", quote(table), quote(col.Name), r.dialect.SQLType(col.Type))
	if notNull {
		b.WriteString(" NOT NULL")
	}
	if def != "" {
		b.WriteString(" DEFAULT " + r.dialect.DefaultLiteral(col.Type, def))
	}
	return b.String(), backfill
}

// createTableDDL 按目标结构生成建表语句
func (r *Reconciler) createTableDDL(name string, shape TableShape) string {
	defs := make([]string, 0, len(shape.Columns))
	for _, col := range shape.Columns {
		if col.PrimaryKey {
			defs = append(defs, quote(col.Name)+" "+r.dialect.PrimaryKeyDDL())
			continue
		}
		def := quote(col.Name) + " " + r.dialect.SQLType(col.Type)
		if col.NotNull {
			def += " NOT NULL"
		}
		if col.Unique {
			def += " UNIQUE"
		}
		if col.Default != "" {
			def += " DEFAULT " + r.dialect.DefaultLiteral(col.Type, col.Default)
		}
		defs = append(defs, def)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(name), strings.Join(defs, ", "))
}

// EnsureTable 表不存在时按目标结构创建
func (r *Reconciler) EnsureTable(ctx context.Context, shape TableShape) (bool, error) {
	if err := checkIdent(shape.Name); err != nil {
		return false, err
	}
	exists, err := r.inspector.HasTable(ctx, shape.Name)
	if err != nil || exists {
		return false, err
	}
	if err := r.db.WithContext(ctx).Exec(r.createTableDDL(shape.Name, shape)).Error; err != nil {
		return false, fmt.Errorf("schema: create %s: %w", shape.Name, err)
	}
	return true, nil
}

// EnsureTableShape 历史表无法通过加列兼容时整表重建
// 建影子表、复制、核对行数、删旧表、改名，全部在同一事务内完成
func (r *Reconciler) EnsureTableShape(ctx context.Context, shape TableShape) (bool, error) {
	if shape.Rebuild == nil {
		return false, nil
	}
	shadow := shape.Name + "__shadow"
	if err := checkIdent(shape.Name, shadow); err != nil {
		return false, err
	}

	rebuilt := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insp := r.inspector.WithDB(tx)
		cols, err := insp.Columns(ctx, shape.Name)
		if errors.Is(err, ErrTableNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !shape.Rebuild.Triggered(cols) {
			return nil
		}

		if err := tx.Exec("DROP TABLE IF EXISTS " + quote(shadow)).Error; err != nil {
			return fmt.Errorf("drop stale shadow: %w", err)
		}
		if err := tx.Exec(r.createTableDDL(shadow, shape)).Error; err != nil {
			return fmt.Errorf("create shadow: %w", err)
		}

		targets, exprs := copyPlan(shape, cols)
		copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			quote(shadow), strings.Join(targets, ", "), strings.Join(exprs, ", "), quote(shape.Name))
		if err := tx.Exec(copySQL).Error; err != nil {
			return fmt.Errorf("copy rows: %w", err)
		}

		before, err := insp.RowCount(ctx, shape.Name)
		if err != nil {
			return err
		}
		after, err := insp.RowCount(ctx, shadow)
		if err != nil {
			return err
		}
		if before != after {
			return fmt.Errorf("%w: %s copied %d of %d rows", ErrRowCountMismatch, shape.Name, after, before)
		}

		if err := tx.Exec("DROP TABLE " + quote(shape.Name)).Error; err != nil {
			return fmt.Errorf("drop old table: %w", err)
		}
		if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(shadow), quote(shape.Name))).Error; err != nil {
			return fmt.Errorf("rename shadow: %w", err)
		}
		if r.dialect == DialectPostgres {
			// 保留原 id 后需推进序列
			reset := fmt.Sprintf(
				"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
				shape.Name, quote(shape.Name))
			if err := tx.Exec(reset).Error; err != nil {
				return fmt.Errorf("reset sequence: %w", err)
			}
		}

		r.logger.Info("历史表已重建",
			zap.String("table", shape.Name),
			zap.Int64("rows", after),
			zap.Strings("legacy_columns", cols.Names()),
		)
		rebuilt = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("schema: rebuild %s: %w", shape.Name, err)
	}
	return rebuilt, nil
}

// copyPlan 计算影子表的目标列及对应取值表达式
// 有默认值且无法映射的列交给默认值，其余无法映射的列写 NULL
func copyPlan(shape TableShape, cols ColumnSet) ([]string, []string) {
	var targets, exprs []string
	for _, col := range shape.Columns {
		expr := ""
		if candidates, ok := shape.Rebuild.Mapping[col.Name]; ok {
			for _, c := range candidates {
				if cols.HasAll(c.Requires...) {
					expr = c.Expr
					break
				}
			}
		}
		if expr == "" && cols.Has(col.Name) {
			expr = quote(col.Name)
		}
		if expr == "" {
			for _, alias := range col.Aliases {
				if cols.Has(alias) {
					expr = quote(alias)
					break
				}
			}
		}
		if expr == "" {
			if col.Default != "" {
				continue
			}
			expr = "NULL"
		}
		targets = append(targets, quote(col.Name))
		exprs = append(exprs, expr)
	}
	return targets, exprs
}

// EnsureUniqueIndex 按实际存在的列创建唯一索引
func (r *Reconciler) EnsureUniqueIndex(ctx context.Context, table string, idx IndexSpec) (bool, error) {
	if err := checkIdent(table, idx.Name); err != nil {
		return false, err
	}
	exists, err := r.inspector.HasIndex(ctx, idx.Name)
	if err != nil || exists {
		return false, err
	}
	cols, err := r.inspector.Columns(ctx, table)
	if err != nil {
		return false, err
	}

	resolved := make([]string, 0, len(idx.Columns))
	for _, candidates := range idx.Columns {
		found := ""
		for _, c := range candidates {
			if cols.Has(c) {
				found = c
				break
			}
		}
		if found == "" {
			return false, &MissingColumnError{Table: table, Columns: candidates}
		}
		resolved = append(resolved, quote(found))
	}

	ddl := fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s)",
		quote(idx.Name), quote(table), strings.Join(resolved, ", "))
	if err := r.db.WithContext(ctx).Exec(ddl).Error; err != nil {
		return false, fmt.Errorf("schema: create index %s: %w", idx.Name, err)
	}
	return true, nil
}

// AdoptLegacyTable 以历史表名存在的数据表改名为规范表名
// 规范表已有数据时不合并，返回错误由调用方记录
func (r *Reconciler) AdoptLegacyTable(ctx context.Context, table, legacy string) (bool, error) {
	if err := checkIdent(table, legacy); err != nil {
		return false, err
	}
	adopted := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		insp := r.inspector.WithDB(tx)
		hasLegacy, err := insp.HasTable(ctx, legacy)
		if err != nil || !hasLegacy {
			return err
		}
		hasTarget, err := insp.HasTable(ctx, table)
		if err != nil {
			return err
		}
		if hasTarget {
			n, err := insp.RowCount(ctx, table)
			if err != nil {
				return err
			}
			if n > 0 {
				return fmt.Errorf("both %s (%d rows) and legacy %s exist, leaving legacy table in place", table, n, legacy)
			}
			if err := tx.Exec("DROP TABLE " + quote(table)).Error; err != nil {
				return err
			}
		}
		if err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(legacy), quote(table))).Error; err != nil {
			return err
		}
		adopted = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("schema: adopt %s as %s: %w", legacy, table, err)
	}
	return adopted, nil
}
