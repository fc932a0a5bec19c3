package indexdb

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// WorldLimits supplies the configured block caps of a world (defaults merged
// with per-world values).
type WorldLimits interface {
	WorldBlockLimits(world string) map[string]int
}

// BlockStore tracks placed block counts and per-island limit overrides.
// Reads are served from memory; every change is queued to a single writer
// goroutine that persists it to sqlite in batched transactions.
type BlockStore struct {
	db     *sqlx.DB
	limits WorldLimits

	mu        sync.RWMutex
	counts    map[string]map[string]int
	overrides map[string]map[string]int

	// sendMu orders sends on ch against Close; writers hold it shared.
	sendMu sync.RWMutex
	ch     chan req
	wg     sync.WaitGroup
	once   sync.Once
	closed bool

	errMu sync.Mutex
	werr  error
}

type reqKind int

const (
	reqCount reqKind = iota + 1
	reqLimit
	reqDropIsland
	reqFlush
)

type req struct {
	kind   reqKind
	island string
	block  string
	value  int
	clear  bool
	done   chan struct{}
}

type countRow struct {
	IslandID string `db:"island_id"`
	Block    string `db:"block"`
	Value    int    `db:"value"`
}

func OpenBlockStore(path string, limits WorldLimits) (*BlockStore, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &BlockStore{
		db:        db,
		limits:    limits,
		counts:    map[string]map[string]int{},
		overrides: map[string]map[string]int{},
		ch:        make(chan req, 65536),
	}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sqlx.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS island_block_counts (
			island_id TEXT NOT NULL,
			block TEXT NOT NULL,
			count INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (island_id, block)
		);`,
		`CREATE TABLE IF NOT EXISTS island_block_limits (
			island_id TEXT NOT NULL,
			block TEXT NOT NULL,
			limit_value INTEGER NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (island_id, block)
		);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *BlockStore) load() error {
	var counts []countRow
	if err := s.db.Select(&counts, `SELECT island_id, block, count AS value FROM island_block_counts`); err != nil {
		return fmt.Errorf("load counts: %w", err)
	}
	for _, r := range counts {
		putCount(s.counts, r.IslandID, r.Block, r.Value)
	}
	var lims []countRow
	if err := s.db.Select(&lims, `SELECT island_id, block, limit_value AS value FROM island_block_limits`); err != nil {
		return fmt.Errorf("load limits: %w", err)
	}
	for _, r := range lims {
		putCount(s.overrides, r.IslandID, r.Block, r.Value)
	}
	return nil
}

func putCount(m map[string]map[string]int, island, block string, v int) {
	inner := m[island]
	if inner == nil {
		inner = map[string]int{}
		m[island] = inner
	}
	inner[block] = v
}

func normBlock(block string) string { return strings.ToUpper(strings.TrimSpace(block)) }

// RecordPlace counts one placed block on the island and returns the new count.
func (s *BlockStore) RecordPlace(islandID, block string) int {
	return s.adjust(islandID, block, 1)
}

// RecordBreak removes one block from the island's count. Counts never go below zero.
func (s *BlockStore) RecordBreak(islandID, block string) int {
	return s.adjust(islandID, block, -1)
}

// SetCount overwrites a count, e.g. after an island rescan.
func (s *BlockStore) SetCount(islandID, block string, n int) {
	block = normBlock(block)
	if islandID == "" || block == "" {
		return
	}
	if n < 0 {
		n = 0
	}
	s.mu.Lock()
	s.setCountLocked(islandID, block, n)
	s.enqueue(req{kind: reqCount, island: islandID, block: block, value: n, clear: n == 0})
	s.mu.Unlock()
}

func (s *BlockStore) adjust(islandID, block string, delta int) int {
	block = normBlock(block)
	if islandID == "" || block == "" {
		return 0
	}
	s.mu.Lock()
	n := s.counts[islandID][block] + delta
	if n < 0 {
		n = 0
	}
	s.setCountLocked(islandID, block, n)
	s.enqueue(req{kind: reqCount, island: islandID, block: block, value: n, clear: n == 0})
	s.mu.Unlock()
	return n
}

func (s *BlockStore) setCountLocked(islandID, block string, n int) {
	if n == 0 {
		if inner := s.counts[islandID]; inner != nil {
			delete(inner, block)
			if len(inner) == 0 {
				delete(s.counts, islandID)
			}
		}
		return
	}
	putCount(s.counts, islandID, block, n)
}

// SetIslandLimit overrides a block cap for one island.
func (s *BlockStore) SetIslandLimit(islandID, block string, limit int) error {
	block = normBlock(block)
	if islandID == "" || block == "" {
		return fmt.Errorf("missing island/block")
	}
	if limit < 0 {
		return fmt.Errorf("%s: negative limit %d", block, limit)
	}
	s.mu.Lock()
	putCount(s.overrides, islandID, block, limit)
	s.enqueue(req{kind: reqLimit, island: islandID, block: block, value: limit})
	s.mu.Unlock()
	return nil
}

func (s *BlockStore) ClearIslandLimit(islandID, block string) {
	block = normBlock(block)
	s.mu.Lock()
	if inner := s.overrides[islandID]; inner != nil {
		delete(inner, block)
		if len(inner) == 0 {
			delete(s.overrides, islandID)
		}
	}
	s.enqueue(req{kind: reqLimit, island: islandID, block: block, clear: true})
	s.mu.Unlock()
}

// DropIsland forgets all counts and overrides of a deleted island.
func (s *BlockStore) DropIsland(islandID string) {
	s.mu.Lock()
	delete(s.counts, islandID)
	delete(s.overrides, islandID)
	s.enqueue(req{kind: reqDropIsland, island: islandID})
	s.mu.Unlock()
}

// TerritoryLimits implements limits.BlockCounter: configured world limits
// with the island's own overrides on top.
func (s *BlockStore) TerritoryLimits(world, islandID string) map[string]int {
	out := map[string]int{}
	if s.limits != nil {
		for id, n := range s.limits.WorldBlockLimits(world) {
			out[id] = n
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, n := range s.overrides[islandID] {
		out[id] = n
	}
	return out
}

// ObservedCounts implements limits.BlockCounter.
func (s *BlockStore) ObservedCounts(islandID string) (map[string]int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inner, ok := s.counts[islandID]
	if !ok {
		return nil, false
	}
	out := make(map[string]int, len(inner))
	for id, n := range inner {
		out[id] = n
	}
	return out, true
}

// AtLimit reports whether placing one more block would exceed the island's cap.
func (s *BlockStore) AtLimit(world, islandID, block string) bool {
	block = normBlock(block)
	limit, ok := s.TerritoryLimits(world, islandID)[block]
	if !ok {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[islandID][block] >= limit
}

func (s *BlockStore) enqueue(r req) {
	if s == nil {
		return
	}
	s.sendMu.RLock()
	defer s.sendMu.RUnlock()
	if s.closed {
		return
	}
	s.ch <- r
}

// Flush waits until every queued change is committed and returns the first
// write error seen since the previous Flush.
func (s *BlockStore) Flush(ctx context.Context) error {
	if s == nil {
		return nil
	}
	done := make(chan struct{})
	s.sendMu.RLock()
	if s.closed {
		s.sendMu.RUnlock()
		return nil
	}
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
		s.sendMu.RUnlock()
	case <-ctx.Done():
		s.sendMu.RUnlock()
		return ctx.Err()
	}
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	s.errMu.Lock()
	defer s.errMu.Unlock()
	err := s.werr
	s.werr = nil
	return err
}

func (s *BlockStore) Close() error {
	var err error
	s.once.Do(func() {
		s.sendMu.Lock()
		s.closed = true
		close(s.ch)
		s.sendMu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *BlockStore) setErr(err error) {
	s.errMu.Lock()
	if s.werr == nil {
		s.werr = err
	}
	s.errMu.Unlock()
}

func (s *BlockStore) loop() {
	ctx := context.Background()

	var (
		tx            *sqlx.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 1000
		commitMaxWait = time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			s.setErr(err)
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.setErr(err)
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		select {
		case r, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			if r.kind == reqFlush {
				commit()
				close(r.done)
				continue
			}
			begin()
			if tx == nil {
				continue
			}
			if err := apply(tx, r); err != nil {
				s.setErr(fmt.Errorf("%s/%s: %w", r.island, r.block, err))
				_ = tx.Rollback()
				tx = nil
				continue
			}
			opCount++
			if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		case <-ticker.C:
			if tx != nil && time.Since(lastCommit) >= commitMaxWait {
				commit()
			}
		}
	}
}

func apply(tx *sqlx.Tx, r req) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	var err error
	switch r.kind {
	case reqCount:
		if r.clear {
			_, err = tx.Exec(`DELETE FROM island_block_counts WHERE island_id=? AND block=?`, r.island, r.block)
		} else {
			_, err = tx.Exec(`INSERT INTO island_block_counts(island_id,block,count,updated_at) VALUES(?,?,?,?)
				ON CONFLICT(island_id,block) DO UPDATE SET count=excluded.count, updated_at=excluded.updated_at`,
				r.island, r.block, r.value, now)
		}
	case reqLimit:
		if r.clear {
			_, err = tx.Exec(`DELETE FROM island_block_limits WHERE island_id=? AND block=?`, r.island, r.block)
		} else {
			_, err = tx.Exec(`INSERT INTO island_block_limits(island_id,block,limit_value,updated_at) VALUES(?,?,?,?)
				ON CONFLICT(island_id,block) DO UPDATE SET limit_value=excluded.limit_value, updated_at=excluded.updated_at`,
				r.island, r.block, r.value, now)
		}
	case reqDropIsland:
		if _, err = tx.Exec(`DELETE FROM island_block_counts WHERE island_id=?`, r.island); err == nil {
			_, err = tx.Exec(`DELETE FROM island_block_limits WHERE island_id=?`, r.island)
		}
	}
	return err
}

// ReadIslandCounts reads the persisted counts of one island straight from a
// database file, without starting a writer.
func ReadIslandCounts(path, islandID string) (map[string]int, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	var rows []countRow
	if err := db.Select(&rows, `SELECT island_id, block, count AS value FROM island_block_counts WHERE island_id=? ORDER BY block`, islandID); err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Block] = r.Value
	}
	return out, nil
}
