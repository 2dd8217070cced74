package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/casetrack-api/internal/models"
	"github.com/noah-isme/casetrack-api/internal/repository"
	appErrors "github.com/noah-isme/casetrack-api/pkg/errors"
)

// memDB is an in-memory stand-in for the lifecycle tables. Notifications live
// outside transactional state, like the real repository that never joins a tx.
type memDB struct {
	mu            sync.Mutex
	seq           int
	processes     map[string]models.Process
	clients       map[string]models.Client
	companies     map[string]models.Company
	documents     map[string]models.Document
	events        []models.TimelineEvent
	operators     map[string]models.Operator
	notifications map[string]models.Notification

	failTimeline    error
	failBulk        error
	failNotifyWrite error
}

type memSnapshot struct {
	seq       int
	processes map[string]models.Process
	clients   map[string]models.Client
	companies map[string]models.Company
	documents map[string]models.Document
	events    []models.TimelineEvent
}

func newMemDB() *memDB {
	return &memDB{
		processes:     map[string]models.Process{},
		clients:       map[string]models.Client{},
		companies:     map[string]models.Company{},
		documents:     map[string]models.Document{},
		operators:     map[string]models.Operator{},
		notifications: map[string]models.Notification{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	snap := memSnapshot{
		seq:       db.seq,
		processes: make(map[string]models.Process, len(db.processes)),
		clients:   make(map[string]models.Client, len(db.clients)),
		companies: make(map[string]models.Company, len(db.companies)),
		documents: make(map[string]models.Document, len(db.documents)),
		events:    append([]models.TimelineEvent(nil), db.events...),
	}
	for k, v := range db.processes {
		snap.processes[k] = v
	}
	for k, v := range db.clients {
		snap.clients[k] = v
	}
	for k, v := range db.companies {
		snap.companies[k] = v
	}
	for k, v := range db.documents {
		snap.documents[k] = v
	}
	return snap
}

func (db *memDB) restore(snap memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.processes = snap.processes
	db.clients = snap.clients
	db.companies = snap.companies
	db.documents = snap.documents
	db.events = snap.events
}

func (db *memDB) seedProcess(p models.Process) models.Process {
	db.mu.Lock()
	defer db.mu.Unlock()
	if p.ID == "" {
		p.ID = db.nextID("proc")
	}
	if p.Priority == "" {
		p.Priority = models.PriorityMedium
	}
	if p.Type == "" {
		p.Type = models.ProcessTypeOpening
	}
	db.processes[p.ID] = p
	return p
}

func (db *memDB) seedOperator(op models.Operator) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if op.Status == "" {
		op.Status = models.OperatorStatusActive
	}
	if op.Role == "" {
		op.Role = models.RoleOperator
	}
	db.operators[op.ID] = op
}

func (db *memDB) process(id string) models.Process {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.processes[id]
}

func (db *memDB) eventsFor(processID string) []models.TimelineEvent {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.TimelineEvent
	for _, e := range db.events {
		if e.ProcessID == processID {
			out = append(out, e)
		}
	}
	return out
}

func (db *memDB) notificationsFor(recipientID string) []models.Notification {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []models.Notification
	for _, n := range db.notifications {
		if n.RecipientID == recipientID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (db *memDB) notificationCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.notifications)
}

func (db *memDB) countDocuments() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.documents)
}

func (db *memDB) load(operatorID string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.loadLocked(operatorID)
}

func (db *memDB) loadLocked(operatorID string) int {
	n := 0
	for _, p := range db.processes {
		if p.OwnerID() == operatorID && !p.Status.Terminal() {
			n++
		}
	}
	return n
}

type memTxKey struct{}

// memTx serialises transactions and rolls state back when fn fails.
type memTx struct {
	db        *memDB
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (t *memTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := t.db.snapshot()
	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		t.db.restore(snap)
		t.rollbacks++
		return err
	}
	t.commits++
	return nil
}

type memProcesses struct{ db *memDB }

func (r memProcesses) Create(ctx context.Context, p *models.Process) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p.ID = r.db.nextID("proc")
	p.UpdatedAt = p.CreatedAt
	r.db.processes[p.ID] = *p
	return nil
}

func (r memProcesses) GetByID(ctx context.Context, id string) (*models.Process, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.processes[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r memProcesses) List(ctx context.Context, filter models.ProcessFilter) ([]models.Process, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		ids[id] = struct{}{}
	}
	var out []models.Process
	for _, p := range r.db.processes {
		if len(ids) > 0 {
			if _, ok := ids[p.ID]; !ok {
				continue
			}
		}
		if filter.ClientID != "" && (p.ClientID == nil || *p.ClientID != filter.ClientID) {
			continue
		}
		if filter.OperatorID != "" && p.OwnerID() != filter.OperatorID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r memProcesses) UpdateState(ctx context.Context, p *models.Process) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.processes[p.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.processes[p.ID] = *p
	return nil
}

func (r memProcesses) SetClient(ctx context.Context, id, clientID string) error {
	return r.update(id, func(p *models.Process) { p.ClientID = strPtr(clientID) })
}

func (r memProcesses) TouchInteraction(ctx context.Context, id string, at time.Time) error {
	return r.update(id, func(p *models.Process) {
		p.LastInteractionAt = &at
		p.UpdatedAt = at
	})
}

func (r memProcesses) AssignIfUnowned(ctx context.Context, id, operatorID string, at time.Time) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.processes[id]
	if !ok || p.HasOwner() {
		return false, nil
	}
	p.AssignedOperatorID = strPtr(operatorID)
	p.UpdatedAt = at
	r.db.processes[id] = p
	return true, nil
}

func (r memProcesses) SetOwner(ctx context.Context, id string, operatorID *string, at time.Time) error {
	return r.update(id, func(p *models.Process) {
		p.AssignedOperatorID = operatorID
		p.UpdatedAt = at
	})
}

func (r memProcesses) BulkAssign(ctx context.Context, ids []string, operatorID string, at time.Time) ([]string, error) {
	r.db.mu.Lock()
	var pending []string
	for _, id := range ids {
		if p, ok := r.db.processes[id]; ok && p.OwnerID() != operatorID {
			pending = append(pending, id)
		}
	}
	r.db.mu.Unlock()
	return r.bulk(pending, func(p *models.Process) { p.AssignedOperatorID = strPtr(operatorID) })
}

func (r memProcesses) BulkUpdatePriority(ctx context.Context, ids []string, priority models.ProcessPriority, at time.Time) ([]string, error) {
	return r.bulk(ids, func(p *models.Process) { p.Priority = priority })
}

func (r memProcesses) BulkUpdateStatus(ctx context.Context, ids []string, status models.ProcessStatus, at time.Time) ([]string, error) {
	return r.bulk(ids, func(p *models.Process) { p.Status = status })
}

func (r memProcesses) bulk(ids []string, fn func(p *models.Process)) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failBulk != nil {
		return nil, r.db.failBulk
	}
	var changed []string
	for _, id := range ids {
		p, ok := r.db.processes[id]
		if !ok || p.Status.Terminal() {
			continue
		}
		fn(&p)
		r.db.processes[id] = p
		changed = append(changed, id)
	}
	return changed, nil
}

func (r memProcesses) update(id string, fn func(p *models.Process)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.processes[id]
	if !ok {
		return sql.ErrNoRows
	}
	fn(&p)
	r.db.processes[id] = p
	return nil
}

type memClients struct{ db *memDB }

func (r memClients) Create(ctx context.Context, c *models.Client) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.nextID("client")
	r.db.clients[c.ID] = *c
	return nil
}

func (r memClients) GetByID(ctx context.Context, id string) (*models.Client, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.clients[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r memClients) GetByPhone(ctx context.Context, phone string) (*models.Client, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.clients {
		if c.Phone == phone {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memClients) UpdateColumn(ctx context.Context, id, column string, value interface{}) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.clients[id]
	if !ok {
		return sql.ErrNoRows
	}
	switch column {
	case "name":
		c.Name = value.(string)
	case "phone":
		c.Phone = value.(string)
	case "email":
		c.Email = optionalString(value)
	case "tax_id":
		c.TaxID = optionalString(value)
	default:
		return fmt.Errorf("column %s not updatable", column)
	}
	r.db.clients[id] = c
	return nil
}

type memCompanies struct{ db *memDB }

func (r memCompanies) Create(ctx context.Context, c *models.Company) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.nextID("company")
	r.db.companies[c.ID] = *c
	return nil
}

func (r memCompanies) GetByProcessID(ctx context.Context, processID string) (*models.Company, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, c := range r.db.companies {
		if c.ProcessID == processID {
			return &c, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r memCompanies) UpdateColumn(ctx context.Context, id, column string, value interface{}) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c, ok := r.db.companies[id]
	if !ok {
		return sql.ErrNoRows
	}
	switch column {
	case "legal_name":
		c.LegalName = value.(string)
	case "trade_name":
		c.TradeName = value.(string)
	case "main_activity":
		c.MainActivity = value.(string)
	case "registry_id":
		c.RegistryID = optionalString(value)
	case "address_street":
		c.AddressStreet = optionalString(value)
	case "address_city":
		c.AddressCity = optionalString(value)
	case "share_capital":
		if f, ok := value.(float64); ok {
			c.ShareCapital = &f
		} else {
			c.ShareCapital = nil
		}
	default:
		return fmt.Errorf("column %s not updatable", column)
	}
	r.db.companies[id] = c
	return nil
}

func optionalString(value interface{}) *string {
	switch v := value.(type) {
	case string:
		return &v
	case *string:
		return v
	}
	return nil
}

type memDocuments struct{ db *memDB }

func (r memDocuments) Create(ctx context.Context, d *models.Document) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d.ID = r.db.nextID("doc")
	r.db.documents[d.ID] = *d
	return nil
}

func (r memDocuments) GetByID(ctx context.Context, processID, id string) (*models.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	d, ok := r.db.documents[id]
	if !ok || d.ProcessID != processID {
		return nil, sql.ErrNoRows
	}
	return &d, nil
}

func (r memDocuments) ListByProcess(ctx context.Context, processID string) ([]models.Document, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Document
	for _, d := range r.db.documents {
		if d.ProcessID == processID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memDocuments) UpdateReview(ctx context.Context, d *models.Document) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.documents[d.ID]; !ok {
		return sql.ErrNoRows
	}
	r.db.documents[d.ID] = *d
	return nil
}

type memTimeline struct{ db *memDB }

func (r memTimeline) Create(ctx context.Context, e *models.TimelineEvent) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failTimeline != nil {
		return r.db.failTimeline
	}
	e.ID = r.db.nextID("evt")
	e.CreatedAt = time.Now().UTC()
	r.db.events = append(r.db.events, *e)
	return nil
}

func (r memTimeline) List(ctx context.Context, filter models.TimelineFilter) ([]models.TimelineEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.TimelineEvent
	for _, e := range r.db.events {
		if filter.ProcessID != "" && e.ProcessID != filter.ProcessID {
			continue
		}
		if filter.Category != "" && e.Category != filter.Category {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type memOperators struct{ db *memDB }

func (r memOperators) GetByID(ctx context.Context, id string) (*models.Operator, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	op, ok := r.db.operators[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	op.ProcessesCount = r.db.loadLocked(id)
	return &op, nil
}

func (r memOperators) List(ctx context.Context, filter repository.OperatorFilter) ([]models.Operator, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Operator
	for _, op := range r.db.operators {
		if filter.Role != "" && op.Role != filter.Role {
			continue
		}
		if filter.Status != "" && op.Status != filter.Status {
			continue
		}
		op.ProcessesCount = r.db.loadLocked(op.ID)
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProcessesCount != out[j].ProcessesCount {
			return out[i].ProcessesCount < out[j].ProcessesCount
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type memNotifications struct{ db *memDB }

func (r memNotifications) Create(ctx context.Context, n *models.Notification) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if r.db.failNotifyWrite != nil {
		return r.db.failNotifyWrite
	}
	n.ID = r.db.nextID("notif")
	r.db.notifications[n.ID] = *n
	return nil
}

func (r memNotifications) ListByRecipient(ctx context.Context, filter models.NotificationFilter, now time.Time) ([]models.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []models.Notification
	for _, n := range r.db.notifications {
		if n.RecipientID != filter.RecipientID || (n.ExpiresAt != nil && !n.ExpiresAt.After(now)) {
			continue
		}
		if filter.OnlyUnread && n.Viewed {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memNotifications) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &n, nil
}

func (r memNotifications) CountUnread(ctx context.Context, recipientID string, now time.Time) (int, error) {
	items, _ := r.ListByRecipient(ctx, models.NotificationFilter{RecipientID: recipientID, OnlyUnread: true}, now)
	return len(items), nil
}

func (r memNotifications) MarkViewed(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n, ok := r.db.notifications[id]
	if !ok {
		return sql.ErrNoRows
	}
	n.Viewed = true
	r.db.notifications[id] = n
	return nil
}

func (r memNotifications) MarkAllViewed(ctx context.Context, recipientID string) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var changed int64
	for id, n := range r.db.notifications {
		if n.RecipientID == recipientID && !n.Viewed {
			n.Viewed = true
			r.db.notifications[id] = n
			changed++
		}
	}
	if changed == 0 {
		return 0, sql.ErrNoRows
	}
	return changed, nil
}

func (r memNotifications) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.notifications[id]; !ok {
		return sql.ErrNoRows
	}
	delete(r.db.notifications, id)
	return nil
}

func (r memNotifications) PurgeExpired(ctx context.Context, now time.Time) ([]string, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var recipients []string
	for id, n := range r.db.notifications {
		if n.ExpiresAt != nil && !n.ExpiresAt.After(now) {
			recipients = append(recipients, n.RecipientID)
			delete(r.db.notifications, id)
		}
	}
	return recipients, nil
}

type memFiles struct {
	mu      sync.Mutex
	stored  map[string][]byte
	removed []string
	err     error
}

func (f *memFiles) Store(ctx context.Context, processID, filename string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	if f.stored == nil {
		f.stored = map[string][]byte{}
	}
	ref := processID + "/" + filename
	f.stored[ref] = data
	return ref, nil
}

func (f *memFiles) Remove(ctx context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.stored, ref)
	f.removed = append(f.removed, ref)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if c.entries == nil {
		c.entries = map[string][]byte{}
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deletes++
	return nil
}

// lifecycle wires every service over one memDB.
type lifecycle struct {
	db            *memDB
	tx            *memTx
	files         *memFiles
	cache         *memCache
	timeline      *TimelineService
	notifications *NotificationService
	processes     *ProcessService
	documents     *DocumentService
	assignments   *AssignmentService
	bulk          *BulkService
	bot           *BotService
}

func newLifecycle() *lifecycle {
	db := newMemDB()
	tx := &memTx{db: db}
	files := &memFiles{}
	cache := &memCache{}
	metrics := NewMetricsService()
	timeline := NewTimelineService(memTimeline{db}, memProcesses{db}, metrics, nil, true)
	notifications := NewNotificationService(memNotifications{db}, memOperators{db}, cache, metrics, nil, NotificationServiceConfig{TTL: time.Hour})
	processes := NewProcessService(tx, memProcesses{db}, memClients{db}, memCompanies{db}, timeline, notifications, metrics, nil)
	return &lifecycle{
		db:            db,
		tx:            tx,
		files:         files,
		cache:         cache,
		timeline:      timeline,
		notifications: notifications,
		processes:     processes,
		documents:     NewDocumentService(tx, memDocuments{db}, memProcesses{db}, files, timeline, notifications, nil, DocumentServiceConfig{}),
		assignments:   NewAssignmentService(tx, memProcesses{db}, memOperators{db}, timeline, notifications, nil),
		bulk:          NewBulkService(tx, memProcesses{db}, memOperators{db}, timeline, notifications, metrics, nil),
		bot:           NewBotService(tx, memClients{db}, processes, nil),
	}
}

var (
	adminActor    = Actor{OperatorID: "admin-1", Role: models.RoleAdmin, Source: models.SourceManual}
	operatorActor = Actor{OperatorID: "op-a", Role: models.RoleOperator, Source: models.SourceManual}
)
