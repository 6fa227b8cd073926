package report

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"sync"
	"time"

	blobcore "surveycore/internal/blob/core"
	"surveycore/pkg/domain"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// Artifact captures one stored export artifact.
type Artifact struct {
	Key         string       `json:"key"`
	Query       domain.Query `json:"query"`
	Format      Format       `json:"format"`
	ContentType string       `json:"content_type"`
	SizeBytes   int64        `json:"size_bytes"`
	ETag        string       `json:"etag,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string         `json:"id"`
	Engine      string         `json:"engine"`
	Queries     []domain.Query `json:"queries"`
	Formats     []Format       `json:"formats"`
	Status      ExportStatus   `json:"status"`
	Error       string         `json:"error,omitempty"`
	Artifacts   []Artifact     `json:"artifacts,omitempty"`
	RequestedBy string         `json:"requested_by,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Engine      string
	Queries     []domain.Query // default: all three canonical queries
	Formats     []Format       // default: csv and json
	RequestedBy string
}

// Catalog resolves query engines by name.
type Catalog interface {
	ResolveEngine(name string) (domain.Engine, bool)
}

// EngineSet is a Catalog over a fixed name-to-engine map.
type EngineSet map[string]domain.Engine

// ResolveEngine implements Catalog.
func (s EngineSet) ResolveEngine(name string) (domain.Engine, bool) {
	engine, ok := s[name]
	return engine, ok
}

// AuditLogger records export lifecycle entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for exports.
type AuditEntry struct {
	ID         string       `json:"id"`
	ExportID   string       `json:"export_id"`
	Actor      string       `json:"actor,omitempty"`
	Engine     string       `json:"engine"`
	Status     ExportStatus `json:"status"`
	Note       string       `json:"note,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Worker executes report exports asynchronously.
type Worker struct {
	catalog Catalog
	store   blobcore.Store
	audit   AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs an export worker.
func NewWorker(catalog Catalog, store blobcore.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		catalog: catalog,
		store:   store,
		audit:   audit,
		queue:   make(chan exportTask, 32),
		jobs:    make(map[string]*ExportRecord),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

// Enqueue schedules an export job and returns the queued record.
func (w *Worker) Enqueue(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.catalog == nil {
		return ExportRecord{}, fmt.Errorf("export catalog not configured")
	}
	name := strings.TrimSpace(input.Engine)
	if name == "" {
		return ExportRecord{}, fmt.Errorf("engine name required")
	}
	if _, ok := w.catalog.ResolveEngine(name); !ok {
		return ExportRecord{}, fmt.Errorf("engine %s not found", name)
	}

	queries := input.Queries
	if len(queries) == 0 {
		queries = domain.AllQueries()
	}
	uniqQueries := make([]domain.Query, 0, len(queries))
	seenQ := make(map[domain.Query]struct{})
	for _, q := range queries {
		if _, dup := seenQ[q]; dup {
			continue
		}
		if !q.Valid() {
			return ExportRecord{}, fmt.Errorf("unknown query %s", q)
		}
		uniqQueries = append(uniqQueries, q)
		seenQ[q] = struct{}{}
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatCSV, FormatJSON}
	}
	uniqFormats := make([]Format, 0, len(formats))
	seenF := make(map[Format]struct{})
	for _, f := range formats {
		if _, dup := seenF[f]; dup {
			continue
		}
		if !f.Valid() {
			return ExportRecord{}, fmt.Errorf("unsupported export format %s", f)
		}
		uniqFormats = append(uniqFormats, f)
		seenF[f] = struct{}{}
	}

	id := newID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Engine:      name,
		Queries:     uniqQueries,
		Formats:     uniqFormats,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queuedSnapshot := record.copy()
	w.mu.Unlock()

	if w.audit != nil {
		w.audit.Record(ctx, AuditEntry{
			ID:         newID(),
			ExportID:   id,
			Actor:      input.RequestedBy,
			Engine:     name,
			Status:     ExportStatusQueued,
			OccurredAt: now,
		})
	}

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queuedSnapshot, nil
}

// Get returns a snapshot of the export record.
func (w *Worker) Get(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	record, ok := w.Get(task.id)
	if !ok {
		return
	}

	engine, ok := w.catalog.ResolveEngine(record.Engine)
	if !ok {
		w.fail(task.id, fmt.Sprintf("engine %s missing", record.Engine))
		return
	}

	w.updateStatus(task.id, ExportStatusRunning, "")

	results, err := w.collect(engine, record.Queries)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("query run failed: %v", err))
		return
	}

	artifacts := make([]Artifact, 0, len(record.Queries)*len(record.Formats))
	for _, query := range record.Queries {
		for _, format := range record.Formats {
			payload, err := RenderQuery(query, results, format)
			if err != nil {
				w.fail(task.id, err.Error())
				return
			}
			key := fmt.Sprintf("exports/%s/%s.%s", task.id, query, format.Extension())
			info, err := w.store.Put(w.ctx, key, bytes.NewReader(payload), blobcore.PutOptions{
				ContentType: format.ContentType(),
				Metadata: map[string]string{
					"engine": record.Engine,
					"query":  string(query),
					"format": string(format),
				},
			})
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			artifacts = append(artifacts, Artifact{
				Key:         info.Key,
				Query:       query,
				Format:      format,
				ContentType: info.ContentType,
				SizeBytes:   info.Size,
				ETag:        info.ETag,
				CreatedAt:   info.LastModified,
			})
		}
	}

	w.complete(task.id, artifacts)
}

// collect runs only the requested queries, leaving the other tables empty.
func (w *Worker) collect(engine domain.Engine, queries []domain.Query) (domain.Results, error) {
	var results domain.Results
	for _, query := range queries {
		var err error
		switch query {
		case domain.QueryVisits:
			results.VisitCounts, err = engine.VisitCounts(w.ctx)
		case domain.QueryReadings:
			results.ReadingCounts, err = engine.ReadingCounts(w.ctx)
		case domain.QueryMaxima:
			results.MaxReadings, err = engine.MaxReadings(w.ctx)
		default:
			err = fmt.Errorf("unknown query %s", query)
		}
		if err != nil {
			return domain.Results{}, fmt.Errorf("%s: %w", query, err)
		}
	}
	return results, nil
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	engine, actor := "", ""
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
		engine, actor = record.Engine, record.RequestedBy
	}
	w.mu.Unlock()
	if w.audit != nil {
		w.audit.Record(w.ctx, AuditEntry{
			ID:         newID(),
			ExportID:   id,
			Actor:      actor,
			Engine:     engine,
			Status:     status,
			Note:       message,
			OccurredAt: now,
		})
	}
}

func (w *Worker) complete(id string, artifacts []Artifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	engine, actor := "", ""
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
		engine, actor = record.Engine, record.RequestedBy
	}
	w.mu.Unlock()
	if w.audit != nil {
		w.audit.Record(w.ctx, AuditEntry{
			ID:         newID(),
			ExportID:   id,
			Actor:      actor,
			Engine:     engine,
			Status:     ExportStatusSucceeded,
			OccurredAt: now,
		})
	}
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	engine, actor := "", ""
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
		engine, actor = record.Engine, record.RequestedBy
	}
	w.mu.Unlock()
	if w.audit != nil {
		w.audit.Record(w.ctx, AuditEntry{
			ID:         newID(),
			ExportID:   id,
			Actor:      actor,
			Engine:     engine,
			Status:     ExportStatusFailed,
			Note:       reason,
			OccurredAt: now,
		})
	}
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Queries = append([]domain.Query(nil), r.Queries...)
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]Artifact(nil), r.Artifacts...)
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}
