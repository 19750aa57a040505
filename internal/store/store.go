// 包 store：快照目录（catalog）的 SQL 读写，PostgreSQL 与 SQLite 共用同一套语句
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/paulmach/orb/encoding/wkt"

	"redistrict/internal/boundary"
	"redistrict/internal/logger"
	"redistrict/internal/metrics"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// Store：目录访问入口，持有连接池与方言
type Store struct {
	db      *sql.DB
	dialect string
}

func AttachDB(db *sql.DB, dialect string) *Store { return &Store{db: db, dialect: dialect} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Dialect() string { return s.dialect }

// Entry：一条快照目录记录
type Entry struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SavedAt    time.Time `json:"saved_at"`
	Boundaries int       `json:"boundaries"`
	Proposed   int       `json:"proposed"`
}

// Row：快照中的一条边界，几何以 WKT 保存
type Row struct {
	Seq      int     `json:"seq"`
	Region   *string `json:"region"`
	Name     string  `json:"name"`
	Color    string  `json:"color"`
	SalesRep *string `json:"sales_rep"`
	Product  *string `json:"product"`
	WKT      string  `json:"wkt"`
}

// 文档注释：记录一次保存
// 背景：快照文件是唯一事实来源，目录只是查询索引；同名文件被覆盖时目录随之替换。
// 约束：单事务内先删后插；任一步失败回滚并返回错误，由调用方决定只记日志。
func (s *Store) Record(ctx context.Context, id, name string, savedAt time.Time, c boundary.Collection) (err error) {
	defer func() {
		if err != nil {
			metrics.CatalogWritesTotal.WithLabelValues("fail").Inc()
			return
		}
		metrics.CatalogWritesTotal.WithLabelValues("ok").Inc()
	}()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if _, err = tx.ExecContext(ctx, s.rebind("DELETE FROM snapshot_boundaries WHERE snapshot_id=?"), id); err != nil {
		return fmt.Errorf("catalog clear boundaries: %w", err)
	}
	if _, err = tx.ExecContext(ctx, s.rebind("DELETE FROM snapshots WHERE id=?"), id); err != nil {
		return fmt.Errorf("catalog clear snapshot: %w", err)
	}
	proposed := 0
	for _, b := range c {
		if b.Proposed() {
			proposed++
		}
	}
	if _, err = tx.ExecContext(ctx,
		s.rebind("INSERT INTO snapshots(id, name, saved_at, boundaries, proposed) VALUES(?,?,?,?,?)"),
		id, name, savedAt.UTC(), len(c), proposed); err != nil {
		return fmt.Errorf("catalog insert snapshot: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, s.rebind("INSERT INTO snapshot_boundaries(snapshot_id, seq, region, name, color, sales_rep, product, geometry_wkt) VALUES(?,?,?,?,?,?,?,?)"))
	if err != nil {
		return fmt.Errorf("catalog prepare: %w", err)
	}
	defer ins.Close()
	for i, b := range c {
		g := ""
		if b.Geometry != nil {
			g = wkt.MarshalString(b.Geometry)
		}
		if _, err = ins.ExecContext(ctx, id, i, nullable(b.Region), b.Name, b.Color, nullable(b.SalesRep), nullable(b.Product), g); err != nil {
			return fmt.Errorf("catalog insert boundary %d: %w", i, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("catalog commit: %w", err)
	}
	logger.L().Debug("catalog_record_ok", "id", id, "rows", len(c))
	return nil
}

// History：按保存时间倒序列出目录；limit<=0 表示不限
func (s *Store) History(ctx context.Context, limit int) ([]Entry, error) {
	q := "SELECT id, name, saved_at, boundaries, proposed FROM snapshots ORDER BY saved_at DESC, id ASC"
	var args []any
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("catalog history: %w", err)
	}
	defer rows.Close()
	out := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.SavedAt, &e.Boundaries, &e.Proposed); err != nil {
			return nil, fmt.Errorf("catalog history scan: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Boundaries：某个快照的边界行，按保存顺序
func (s *Store) Boundaries(ctx context.Context, id string) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT seq, region, name, color, sales_rep, product, geometry_wkt FROM snapshot_boundaries WHERE snapshot_id=? ORDER BY seq ASC"), id)
	if err != nil {
		return nil, fmt.Errorf("catalog boundaries: %w", err)
	}
	defer rows.Close()
	out := []Row{}
	for rows.Next() {
		var (
			r                    Row
			region, rep, product sql.NullString
		)
		if err := rows.Scan(&r.Seq, &region, &r.Name, &r.Color, &rep, &product, &r.WKT); err != nil {
			return nil, fmt.Errorf("catalog boundaries scan: %w", err)
		}
		r.Region, r.SalesRep, r.Product = ptr(region), ptr(rep), ptr(product)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Has：目录中是否已有该快照（回填工具用于跳过已记录项）
func (s *Store) Has(ctx context.Context, id string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(1) FROM snapshots WHERE id=?"), id).Scan(&n); err != nil {
		return false, fmt.Errorf("catalog has: %w", err)
	}
	return n > 0, nil
}

// rebind：把 ? 占位符改写为 PostgreSQL 的 $n
func (s *Store) rebind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func ptr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
