package migrate

import (
	"database/sql"
	"fmt"

	"redistrict/internal/logger"
)

// 背景：首次运行自动创建快照目录表，PostgreSQL 与 SQLite 共用
// 约束：使用 IF NOT EXISTS，重复执行无副作用；时间列按方言选择类型
func EnsureSchema(db *sql.DB, dialect string) error {
	ts := "TIMESTAMPTZ"
	if dialect == "sqlite" {
		ts = "DATETIME"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS snapshots (
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            saved_at %s NOT NULL,
            boundaries INT NOT NULL,
            proposed INT NOT NULL
        )`, ts),
		`CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at)`,
		`CREATE TABLE IF NOT EXISTS snapshot_boundaries (
            snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
            seq INT NOT NULL,
            region TEXT,
            name TEXT NOT NULL,
            color TEXT NOT NULL,
            sales_rep TEXT,
            product TEXT,
            geometry_wkt TEXT NOT NULL,
            PRIMARY KEY (snapshot_id, seq)
        )`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_boundaries_region ON snapshot_boundaries(region)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i, "dialect", dialect)
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("schema stmt %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}
