package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"edge-tuner/internal/logger"
	"edge-tuner/internal/opencv/safe"

	"gocv.io/x/gocv"
)

var ErrLimitExceeded = errors.New("memory limit exceeded")

const defaultMaxMemory = 2 * 1024 * 1024 * 1024

// Manager accounts for every Mat the pipeline holds so leaks in a render
// path show up in the logs instead of in the process size.
type Manager struct {
	mu           sync.RWMutex
	logger       logger.Logger
	maxMemory    int64
	usedMemory   int64
	allocCount   int64
	deallocCount int64
	activeMats   map[uint64]*MatInfo
	ctx          context.Context
	cancel       context.CancelFunc
	interval     time.Duration
}

type MatInfo struct {
	ID        uint64
	Tag       string
	Size      int64
	Timestamp time.Time
}

type Stats struct {
	Allocations   int64
	Deallocations int64
	UsedBytes     int64
	ActiveMats    int
}

type Option func(*Manager)

func WithLimit(bytes int64) Option {
	return func(m *Manager) { m.maxMemory = bytes }
}

func WithMonitorInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

func NewManager(log logger.Logger, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	manager := &Manager{
		logger:     log,
		maxMemory:  defaultMaxMemory,
		activeMats: make(map[uint64]*MatInfo),
		ctx:        ctx,
		cancel:     cancel,
		interval:   30 * time.Second,
	}
	for _, opt := range opts {
		opt(manager)
	}

	if manager.interval > 0 {
		go manager.monitorMemory()
	}
	return manager
}

// NewMat allocates a tracked Mat of the given size.
func (m *Manager) NewMat(rows, cols int, matType gocv.MatType, tag string) (*safe.Mat, error) {
	size := int64(rows) * int64(cols) * int64(elemSize(matType))
	if err := m.reserve(size); err != nil {
		return nil, err
	}
	return safe.NewMatWithTracker(rows, cols, matType, m, tag)
}

// Track takes ownership of mat. On error mat has already been closed.
func (m *Manager) Track(mat gocv.Mat, tag string) (*safe.Mat, error) {
	if err := m.reserve(safe.SizeOf(mat)); err != nil {
		mat.Close()
		return nil, err
	}
	return safe.Adopt(mat, m, tag)
}

func (m *Manager) reserve(size int64) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.usedMemory+size > m.maxMemory {
		return fmt.Errorf("%w: would use %d bytes, limit is %d",
			ErrLimitExceeded, m.usedMemory+size, m.maxMemory)
	}
	return nil
}

func (m *Manager) TrackAllocation(id uint64, size int64, tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.usedMemory += size
	m.allocCount++
	m.activeMats[id] = &MatInfo{
		ID:        id,
		Tag:       tag,
		Size:      size,
		Timestamp: time.Now(),
	}
}

func (m *Manager) TrackDeallocation(id uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.activeMats[id]
	if !exists {
		return
	}
	delete(m.activeMats, id)
	m.usedMemory -= info.Size
	m.deallocCount++
}

// Release closes mat; nil is ignored.
func (m *Manager) Release(mat *safe.Mat) {
	if mat == nil {
		return
	}
	mat.Close()
}

func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Allocations:   m.allocCount,
		Deallocations: m.deallocCount,
		UsedBytes:     m.usedMemory,
		ActiveMats:    len(m.activeMats),
	}
}

func (m *Manager) monitorMemory() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performMonitoringCheck()
		case <-m.ctx.Done():
			return
		}
	}
}

func (m *Manager) performMonitoringCheck() {
	stats := m.Stats()

	m.logger.Debug("MemoryManager", "memory statistics", map[string]interface{}{
		"allocations":   stats.Allocations,
		"deallocations": stats.Deallocations,
		"used_bytes":    stats.UsedBytes,
		"active_mats":   stats.ActiveMats,
	})

	// a render holds a handful of Mats; more points at a leak
	if stats.ActiveMats > 50 {
		m.logOldestMats(5)
	}
}

func (m *Manager) oldest(count int) []MatInfo {
	m.mu.RLock()
	infos := make([]MatInfo, 0, len(m.activeMats))
	for _, info := range m.activeMats {
		infos = append(infos, *info)
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Timestamp.Equal(infos[j].Timestamp) {
			return infos[i].ID < infos[j].ID
		}
		return infos[i].Timestamp.Before(infos[j].Timestamp)
	})
	if len(infos) > count {
		infos = infos[:count]
	}
	return infos
}

func (m *Manager) logOldestMats(count int) {
	now := time.Now()
	for _, info := range m.oldest(count) {
		m.logger.Warning("MemoryManager", "long-lived Mat detected", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
			"age":  now.Sub(info.Timestamp).String(),
		})
	}
}

// Shutdown stops the monitor and reports Mats that were never released.
func (m *Manager) Shutdown() {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()

	matCount := len(m.activeMats)
	for id, info := range m.activeMats {
		m.logger.Warning("MemoryManager", "unreleased Mat at shutdown", map[string]interface{}{
			"tag":  info.Tag,
			"size": info.Size,
		})
		delete(m.activeMats, id)
	}

	m.logger.Info("MemoryManager", "shutdown completed", map[string]interface{}{
		"leaked_mats":   matCount,
		"allocations":   m.allocCount,
		"deallocations": m.deallocCount,
	})
	m.usedMemory = 0
}

func elemSize(matType gocv.MatType) int {
	switch matType {
	case gocv.MatTypeCV8UC1:
		return 1
	case gocv.MatTypeCV8UC3:
		return 3
	case gocv.MatTypeCV8UC4:
		return 4
	case gocv.MatTypeCV32SC1, gocv.MatTypeCV32FC1:
		return 4
	default:
		return 1
	}
}
