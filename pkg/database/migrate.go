package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrationsFS embed.FS

// RunMigrations 执行基线迁移
// 基线只负责"表不存在时建表"（CREATE TABLE IF NOT EXISTS），
// 历史库的列差异由 internal/schema 的启动校正处理
func RunMigrations(db *sql.DB, driverName string, logger *zap.Logger) error {
	dir := "migrations/sqlite"
	var (
		driver database.Driver
		err    error
	)
	switch driverName {
	case "postgres":
		dir = "migrations/postgres"
		driver, err = postgres.WithInstance(db, &postgres.Config{})
	default:
		driver, err = sqlite3.WithInstance(db, &sqlite3.Config{})
	}
	if err != nil {
		return fmt.Errorf("创建迁移驱动失败: %w", err)
	}

	source, err := iofs.New(migrationsFS, dir)
	if err != nil {
		return fmt.Errorf("加载迁移文件失败: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, driverName, driver)
	if err != nil {
		return fmt.Errorf("初始化迁移实例失败: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("执行迁移失败: %w", err)
	}

	version, dirty, _ := m.Version()
	if dirty {
		logger.Warn("数据库迁移处于 dirty 状态", zap.Uint("version", version))
	} else {
		logger.Info("基线迁移完成", zap.Uint("version", version))
	}

	return nil
}
