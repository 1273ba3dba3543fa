package history

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/megamanics/interactive/internal/bridge"
	"github.com/sirupsen/logrus"
)

// Entry 一条交换记录：某个命令产生的一个事件
type Entry struct {
	ID          int64     `json:"id"`
	CommandKind string    `json:"command_kind"`
	EventKind   string    `json:"event_kind"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store 交换历史持久化存储接口
type Store interface {
	// Append 追加一条记录
	Append(entry *Entry) error

	// Recent 返回最近的至多 limit 条记录，新的在前
	Recent(limit int) ([]*Entry, error)

	// Close 关闭数据库连接
	Close() error
}

// store SQLite 持久化存储实现
type store struct {
	db *sql.DB
	mu sync.Mutex
}

// Config 存储连接池配置
type Config struct {
	MaxOpenConns           int
	MaxIdleConns           int
	ConnMaxLifetimeSeconds int
}

// NewStore 创建新的存储实例
func NewStore(dbPath string) (Store, error) {
	return NewStoreWithConfig(dbPath, nil)
}

// NewStoreWithConfig 使用配置创建存储实例
func NewStoreWithConfig(dbPath string, config *Config) (Store, error) {
	if dbPath == "" {
		dbPath = "./data/exchanges.db"
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config != nil {
		db.SetMaxOpenConns(config.MaxOpenConns)
		db.SetMaxIdleConns(config.MaxIdleConns)
		if config.ConnMaxLifetimeSeconds > 0 {
			db.SetConnMaxLifetime(time.Duration(config.ConnMaxLifetimeSeconds) * time.Second)
		}
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	s := &store{db: db}
	if err := s.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %w", err)
	}
	return s, nil
}

func (s *store) initTables() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS exchanges (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		command_kind TEXT NOT NULL,
		event_kind TEXT NOT NULL,
		detail TEXT,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_exchanges_created_at ON exchanges(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *store) Append(entry *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.Exec(
		`INSERT INTO exchanges (command_kind, event_kind, detail, created_at) VALUES (?, ?, ?, ?)`,
		entry.CommandKind, entry.EventKind, entry.Detail, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append exchange entry: %w", err)
	}
	if id, err := result.LastInsertId(); err == nil {
		entry.ID = id
	}
	return nil
}

func (s *store) Recent(limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, command_kind, event_kind, detail, created_at
		 FROM exchanges ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query exchanges: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry := &Entry{}
		var detail sql.NullString
		if err := rows.Scan(&entry.ID, &entry.CommandKind, &entry.EventKind, &detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exchange entry: %w", err)
		}
		entry.Detail = detail.String
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *store) Close() error {
	return s.db.Close()
}

// Record 订阅总线并把每个事件写入存储，直到总线关闭。
// 持久化失败只记日志，不影响总线上的其他订阅者。
func Record(store Store, bus <-chan bridge.CommandOrEvent) {
	for item := range bus {
		if item.Event == nil {
			continue
		}
		detail, err := json.Marshal(item.Event)
		if err != nil {
			logrus.Warnf("Failed to encode event %s for history: %v", item.Event.EventKind(), err)
			detail = nil
		}
		entry := &Entry{
			EventKind: string(item.Event.EventKind()),
			Detail:    string(detail),
		}
		if cmd := item.Event.Command(); cmd != nil {
			entry.CommandKind = string(cmd.CommandKind())
		}
		if err := store.Append(entry); err != nil {
			logrus.Errorf("Failed to record exchange history: %v", err)
		}
	}
}
