package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/blob"
	"github.com/atelierhq/atelier/backend/internal/kv"
	"github.com/atelierhq/atelier/backend/internal/model/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrProjectNotFound = errors.New("project not found")
)

// Controller owns all session and project state for one tenant partition.
// Operations are sequentially consistent: the mutex guarantees no two
// mutations on the same partition ever interleave. The in-memory maps are
// hydrated at most once per instance lifetime and are the single source of
// truth afterwards; every mutation persists the full mapping back to the
// durable store before returning, and rolls the cache back if persistence
// fails so a completed call never observes cache/store divergence.
type Controller struct {
	mu        sync.Mutex
	partition string
	store     kv.Store
	assets    blob.Store
	assetBase string
	loaded    bool
	sessions  map[string]session.Record
	projects  map[string]session.Project
	now       func() time.Time
	logger    *zap.Logger
}

// New builds a controller for one partition. assets may be nil; asset
// operations then fail with blob.ErrNotConfigured.
func New(partition string, store kv.Store, assets blob.Store, assetBase string, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		partition: partition,
		store:     store,
		assets:    assets,
		assetBase: strings.TrimSuffix(assetBase, "/"),
		sessions:  make(map[string]session.Record),
		projects:  make(map[string]session.Project),
		now:       time.Now,
		logger:    logger,
	}
}

func (c *Controller) sessionsKey() string { return c.partition + "/sessions" }
func (c *Controller) projectsKey() string { return c.partition + "/projects" }

// ensureLoaded hydrates the caches from the durable store on first use.
// Callers must hold the mutex. Store read failures propagate unmodified.
func (c *Controller) ensureLoaded(ctx context.Context) error {
	if c.loaded {
		return nil
	}

	if err := c.readInto(ctx, c.sessionsKey(), &c.sessions); err != nil {
		return err
	}
	if err := c.readInto(ctx, c.projectsKey(), &c.projects); err != nil {
		return err
	}

	c.loaded = true
	return nil
}

func (c *Controller) readInto(ctx context.Context, key string, target any) error {
	raw, err := c.store.Get(ctx, key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

func (c *Controller) persistSessions(ctx context.Context) error {
	raw, err := json.Marshal(c.sessions)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.sessionsKey(), raw)
}

func (c *Controller) persistProjects(ctx context.Context) error {
	raw, err := json.Marshal(c.projects)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, c.projectsKey(), raw)
}

// AddSession upserts a session record with fresh timestamps.
func (c *Controller) AddSession(ctx context.Context, id, title string) (session.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return session.Record{}, err
	}

	now := c.now()
	if title == "" {
		title = "Chat " + now.Format("01/02/2006")
	}
	record := session.Record{ID: id, Title: title, CreatedAt: now, LastActive: now}

	prev, existed := c.sessions[id]
	c.sessions[id] = record
	if err := c.persistSessions(ctx); err != nil {
		c.restoreSession(id, prev, existed)
		return session.Record{}, err
	}
	return record, nil
}

// RemoveSession deletes a session, reporting whether it existed. The store
// is only written when a deletion actually occurred.
func (c *Controller) RemoveSession(ctx context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return false, err
	}

	prev, existed := c.sessions[id]
	if !existed {
		return false, nil
	}
	delete(c.sessions, id)
	if err := c.persistSessions(ctx); err != nil {
		c.restoreSession(id, prev, true)
		return false, err
	}
	return true, nil
}

// TouchSession bumps lastActive if the session exists; absent sessions are
// a silent no-op with no persistence.
func (c *Controller) TouchSession(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return err
	}

	record, ok := c.sessions[id]
	if !ok {
		return nil
	}
	prev := record
	record.LastActive = c.now()
	c.sessions[id] = record
	if err := c.persistSessions(ctx); err != nil {
		c.restoreSession(id, prev, true)
		return err
	}
	return nil
}

// RenameSession updates a session title, reporting whether it existed.
func (c *Controller) RenameSession(ctx context.Context, id, title string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return false, err
	}

	record, ok := c.sessions[id]
	if !ok {
		return false, nil
	}
	prev := record
	record.Title = title
	c.sessions[id] = record
	if err := c.persistSessions(ctx); err != nil {
		c.restoreSession(id, prev, true)
		return false, err
	}
	return true, nil
}

// ListSessions returns all sessions ordered by lastActive descending. The
// ordering is a user-facing contract.
func (c *Controller) ListSessions(ctx context.Context) ([]session.Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	records := make([]session.Record, 0, len(c.sessions))
	for _, record := range c.sessions {
		records = append(records, record)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastActive.After(records[j].LastActive)
	})
	return records, nil
}

// ClearSessions empties the mapping unconditionally and reports how many
// records were removed.
func (c *Controller) ClearSessions(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return 0, err
	}

	prev := c.sessions
	count := len(prev)
	c.sessions = make(map[string]session.Record)
	if err := c.persistSessions(ctx); err != nil {
		c.sessions = prev
		return 0, err
	}
	return count, nil
}

func (c *Controller) restoreSession(id string, prev session.Record, existed bool) {
	if existed {
		c.sessions[id] = prev
	} else {
		delete(c.sessions, id)
	}
}

// SaveProject creates or fully replaces the project record for
// (sessionID, projectID). Title falls back to the existing record's title,
// then to a placeholder derived from the id.
func (c *Controller) SaveProject(ctx context.Context, sessionID, projectID, documentState, title string) (session.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return session.Project{}, err
	}

	key := session.CompositeKey(sessionID, projectID)
	prev, existed := c.projects[key]

	if title == "" {
		if existed {
			title = prev.Title
		} else {
			short := projectID
			if len(short) > 8 {
				short = short[:8]
			}
			title = "Project " + short
		}
	}

	record := session.Project{
		ID:            projectID,
		Title:         title,
		DocumentState: documentState,
		LastModified:  c.now(),
	}
	c.projects[key] = record
	if err := c.persistProjects(ctx); err != nil {
		c.restoreProject(key, prev, existed)
		return session.Project{}, err
	}
	return record, nil
}

// LoadProject fetches one project record.
func (c *Controller) LoadProject(ctx context.Context, sessionID, projectID string) (session.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return session.Project{}, err
	}

	record, ok := c.projects[session.CompositeKey(sessionID, projectID)]
	if !ok {
		return session.Project{}, ErrProjectNotFound
	}
	return record, nil
}

// ListProjects returns the session's projects ordered by lastModified
// descending.
func (c *Controller) ListProjects(ctx context.Context, sessionID string) ([]session.Project, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	prefix := session.CompositeKey(sessionID, "")
	records := make([]session.Project, 0)
	for key, record := range c.projects {
		if strings.HasPrefix(key, prefix) {
			records = append(records, record)
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].LastModified.After(records[j].LastModified)
	})
	return records, nil
}

// DeleteProject removes one project record, reporting whether it existed.
func (c *Controller) DeleteProject(ctx context.Context, sessionID, projectID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ensureLoaded(ctx); err != nil {
		return false, err
	}

	key := session.CompositeKey(sessionID, projectID)
	prev, existed := c.projects[key]
	if !existed {
		return false, nil
	}
	delete(c.projects, key)
	if err := c.persistProjects(ctx); err != nil {
		c.restoreProject(key, prev, true)
		return false, err
	}
	return true, nil
}

func (c *Controller) restoreProject(key string, prev session.Project, existed bool) {
	if existed {
		c.projects[key] = prev
	} else {
		delete(c.projects, key)
	}
}

// UploadAsset stores a binary asset under the session's namespace and
// returns its public URL.
func (c *Controller) UploadAsset(ctx context.Context, sessionID, filename string, data []byte, contentType string) (string, error) {
	if c.assets == nil {
		return "", blob.ErrNotConfigured
	}
	key := assetKey(sessionID, filename)
	if err := c.assets.Put(ctx, key, data, contentType); err != nil {
		return "", err
	}
	return c.assetURL(key), nil
}

// ListAssets returns public URLs for every asset the session uploaded.
func (c *Controller) ListAssets(ctx context.Context, sessionID string) ([]string, error) {
	if c.assets == nil {
		return nil, blob.ErrNotConfigured
	}
	keys, err := c.assets.List(ctx, assetKey(sessionID, ""))
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(keys))
	for _, key := range keys {
		urls = append(urls, c.assetURL(key))
	}
	return urls, nil
}

// DeleteAsset removes one stored asset.
func (c *Controller) DeleteAsset(ctx context.Context, sessionID, filename string) error {
	if c.assets == nil {
		return blob.ErrNotConfigured
	}
	return c.assets.Delete(ctx, assetKey(sessionID, filename))
}

func assetKey(sessionID, filename string) string {
	return fmt.Sprintf("assets/%s/%s", sessionID, filename)
}

func (c *Controller) assetURL(key string) string {
	if c.assetBase == "" {
		return "/" + key
	}
	return c.assetBase + "/" + key
}
