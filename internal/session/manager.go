// Package session keeps the hub's record of registered windows and the tree
// they form.
package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/shehryarbajwa/framebridge/internal/metrics"
	"github.com/shehryarbajwa/framebridge/pkg/models"
)

var (
	ErrWindowNotFound = errors.New("window not found")
	ErrWindowClosed   = errors.New("window is closed")
	ErrLimitReached   = errors.New("window limit reached")
	ErrInvalidRequest = errors.New("invalid window request")
)

// Close causes, used as metric labels
const (
	CauseRequested    = "requested"
	CauseDisconnected = "disconnected"
	CauseCascade      = "cascade"
)

// Config tunes a Manager
type Config struct {
	// MaxWindowsPerTop bounds the number of open windows in one top-level tree
	MaxWindowsPerTop int64

	// Retention is how long closed windows stay queryable
	Retention time.Duration
}

// Manager handles all window operations
type Manager struct {
	windows     sync.Map // id -> *entry
	seq         atomic.Uint64
	concurrency map[string]*semaphore.Weighted
	mu          sync.RWMutex
	cfg         Config
	metrics     *metrics.Metrics
	logger      *zap.Logger

	listenerMu sync.RWMutex
	onClose    []func(models.WindowInfo)
}

// entry is an immutable snapshot; updates store a new one
type entry struct {
	seq  uint64
	info models.WindowInfo
}

// NewManager creates a new window manager. metrics and logger may be nil.
func NewManager(cfg Config, m *metrics.Metrics, logger *zap.Logger) *Manager {
	if cfg.MaxWindowsPerTop <= 0 {
		cfg.MaxWindowsPerTop = 10
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 5 * time.Minute
	}
	if m == nil {
		m = metrics.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Manager{
		concurrency: make(map[string]*semaphore.Weighted),
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
	}
}

// OnClose registers fn to run, outside any lock, after a window closes
func (m *Manager) OnClose(fn func(models.WindowInfo)) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	m.onClose = append(m.onClose, fn)
}

// Register records a new window. A frame joins the tree of its parent; any
// other window starts a tree of its own.
func (m *Manager) Register(req models.RegisterWindowRequest) (models.WindowInfo, error) {
	if req.ParentID != "" && req.OpenerID != "" {
		return models.WindowInfo{}, fmt.Errorf("%w: a window has either a parent or an opener", ErrInvalidRequest)
	}

	id := uuid.New().String()
	topID := id

	if req.ParentID != "" {
		parent, err := m.openWindow(req.ParentID)
		if err != nil {
			return models.WindowInfo{}, fmt.Errorf("parent: %w", err)
		}
		topID = parent.TopID
	}
	if req.OpenerID != "" {
		if _, err := m.openWindow(req.OpenerID); err != nil {
			return models.WindowInfo{}, fmt.Errorf("opener: %w", err)
		}
	}

	if err := m.acquireSlot(topID); err != nil {
		return models.WindowInfo{}, err
	}

	info := models.WindowInfo{
		ID:        id,
		Name:      req.Name,
		ParentID:  req.ParentID,
		OpenerID:  req.OpenerID,
		TopID:     topID,
		Status:    models.StatusOpen,
		CreatedAt: time.Now(),
	}
	m.windows.Store(id, &entry{seq: m.seq.Add(1), info: info})

	m.metrics.WindowsRegistered.Inc()
	m.metrics.WindowsOpen.Inc()
	m.logger.Info("Window registered",
		zap.String("window", id),
		zap.String("parent", req.ParentID),
		zap.String("opener", req.OpenerID))

	return info, nil
}

func (m *Manager) load(id string) (*entry, bool) {
	value, ok := m.windows.Load(id)
	if !ok {
		return nil, false
	}
	return value.(*entry), true
}

func (m *Manager) openWindow(id string) (models.WindowInfo, error) {
	info, err := m.Get(id)
	if err != nil {
		return info, err
	}
	if info.Status != models.StatusOpen {
		return info, fmt.Errorf("%w: %s", ErrWindowClosed, id)
	}
	return info, nil
}

// Get retrieves a window by ID
func (m *Manager) Get(id string) (models.WindowInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.load(id)
	if !ok {
		return models.WindowInfo{}, fmt.Errorf("%w: %s", ErrWindowNotFound, id)
	}
	return e.info, nil
}

// List returns all windows in registration order, optionally filtered by status
func (m *Manager) List(status models.WindowStatus) []models.WindowInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*entry
	m.windows.Range(func(key, value any) bool {
		e := value.(*entry)
		if status == "" || e.info.Status == status {
			entries = append(entries, e)
		}
		return true
	})

	return sorted(entries)
}

// Frame returns the first open frame named name directly inside parentID
func (m *Manager) Frame(parentID, name string) (models.WindowInfo, error) {
	if _, err := m.Get(parentID); err != nil {
		return models.WindowInfo{}, err
	}

	for _, info := range m.children(parentID) {
		if info.Name == name && info.Status == models.StatusOpen {
			return info, nil
		}
	}
	return models.WindowInfo{}, fmt.Errorf("%w: no frame %q in %s", ErrWindowNotFound, name, parentID)
}

func (m *Manager) children(parentID string) []models.WindowInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var entries []*entry
	m.windows.Range(func(key, value any) bool {
		e := value.(*entry)
		if e.info.ParentID == parentID {
			entries = append(entries, e)
		}
		return true
	})

	return sorted(entries)
}

// Close marks a window and every frame inside it closed. Popups it opened stay
// open; they notice through their own probes. Closing a closed window is a no-op.
func (m *Manager) Close(id, cause string) error {
	closed, err := m.markClosed(id)
	if err != nil {
		return err
	}
	if closed == nil {
		return nil
	}

	m.metrics.WindowsClosed.WithLabelValues(cause).Inc()
	m.logger.Info("Window closed", zap.String("window", id), zap.String("cause", cause))
	m.notifyClosed(*closed)

	for _, frame := range m.children(id) {
		if frame.Status != models.StatusOpen {
			continue
		}
		if err := m.Close(frame.ID, CauseCascade); err != nil {
			m.logger.Warn("Failed to close frame", zap.String("window", frame.ID), zap.Error(err))
		}
	}

	return nil
}

// markClosed returns the closed record, or nil if it already was closed
func (m *Manager) markClosed(id string) (*models.WindowInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.load(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWindowNotFound, id)
	}
	if e.info.Status == models.StatusClosed {
		return nil, nil
	}

	now := time.Now()
	updated := e.info
	updated.Status = models.StatusClosed
	updated.ClosedAt = &now
	updated.Connected = false
	updated.Focused = false
	m.windows.Store(id, &entry{seq: e.seq, info: updated})

	m.releaseSlot(updated.TopID)
	m.metrics.WindowsOpen.Dec()

	return &updated, nil
}

func (m *Manager) notifyClosed(info models.WindowInfo) {
	m.listenerMu.RLock()
	listeners := append([]func(models.WindowInfo){}, m.onClose...)
	m.listenerMu.RUnlock()

	for _, fn := range listeners {
		fn(info)
	}
}

// update applies fn to an open window
func (m *Manager) update(id string, fn func(info *models.WindowInfo)) (models.WindowInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.load(id)
	if !ok {
		return models.WindowInfo{}, fmt.Errorf("%w: %s", ErrWindowNotFound, id)
	}
	if e.info.Status != models.StatusOpen {
		return models.WindowInfo{}, fmt.Errorf("%w: %s", ErrWindowClosed, id)
	}

	updated := e.info
	fn(&updated)
	m.windows.Store(id, &entry{seq: e.seq, info: updated})

	return updated, nil
}

// Resize records the size of a window
func (m *Manager) Resize(id string, width, height int) (models.WindowInfo, error) {
	if width <= 0 || height <= 0 {
		return models.WindowInfo{}, fmt.Errorf("%w: size must be positive, got %dx%d", ErrInvalidRequest, width, height)
	}
	return m.update(id, func(info *models.WindowInfo) {
		info.Width = width
		info.Height = height
	})
}

// Focus marks a window focused and every other window of its tree unfocused
func (m *Manager) Focus(id string) (models.WindowInfo, error) {
	focused, err := m.update(id, func(info *models.WindowInfo) {
		info.Focused = true
	})
	if err != nil {
		return focused, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.windows.Range(func(key, value any) bool {
		e := value.(*entry)
		if e.info.ID != id && e.info.TopID == focused.TopID && e.info.Focused {
			updated := e.info
			updated.Focused = false
			m.windows.Store(key, &entry{seq: e.seq, info: updated})
		}
		return true
	})

	return focused, nil
}

// SetConnected records whether the window holds a relay connection
func (m *Manager) SetConnected(id string, connected bool) error {
	_, err := m.update(id, func(info *models.WindowInfo) {
		info.Connected = connected
	})
	return err
}

// Reap forgets windows closed for longer than the retention period
func (m *Manager) Reap(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	reaped := 0
	m.windows.Range(func(key, value any) bool {
		info := value.(*entry).info
		if info.ClosedAt == nil || now.Sub(*info.ClosedAt) < m.cfg.Retention {
			return true
		}

		m.windows.Delete(key)
		if info.ID == info.TopID {
			// its frames were closed along with it
			delete(m.concurrency, info.ID)
		}
		reaped++
		return true
	})

	if reaped > 0 {
		m.metrics.WindowsReaped.Add(float64(reaped))
		m.logger.Debug("Reaped closed windows", zap.Int("count", reaped))
	}
	return reaped
}

// RunReaper reaps every interval until ctx is done
func (m *Manager) RunReaper(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			m.Reap(now)
		}
	}
}

// acquireSlot tries to acquire a slot in the tree of topID
func (m *Manager) acquireSlot(topID string) error {
	m.mu.Lock()
	sem, exists := m.concurrency[topID]
	if !exists {
		sem = semaphore.NewWeighted(m.cfg.MaxWindowsPerTop)
		m.concurrency[topID] = sem
	}
	m.mu.Unlock()

	if !sem.TryAcquire(1) {
		return fmt.Errorf("%w: %d open windows in %s", ErrLimitReached, m.cfg.MaxWindowsPerTop, topID)
	}

	return nil
}

// releaseSlot releases a slot in the tree of topID. Callers hold m.mu.
func (m *Manager) releaseSlot(topID string) {
	if sem := m.concurrency[topID]; sem != nil {
		sem.Release(1)
	}
}

// sorted returns the records in registration order
func sorted(entries []*entry) []models.WindowInfo {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].seq < entries[j].seq
	})

	windows := make([]models.WindowInfo, 0, len(entries))
	for _, e := range entries {
		windows = append(windows, e.info)
	}
	return windows
}
