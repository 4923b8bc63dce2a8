package lead

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/leadyard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStoreOpts holds parameters for creating a GormStore.
type GormStoreOpts struct {
	DB       *gorm.DB
	Location *time.Location   // day boundaries for Stats; defaults to UTC
	Now      func() time.Time // defaults to time.Now
}

// GormStore implements Store on top of GORM. Timestamps are written in
// UTC and truncated to milliseconds so sqlite and MySQL DATETIME(3)
// compare the same way.
type GormStore struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
}

var _ Store = (*GormStore)(nil)

// NewGormStore creates a GormStore.
func NewGormStore(opts GormStoreOpts) (*GormStore, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("lead: db is required")
	}
	s := &GormStore{db: opts.DB, loc: opts.Location, now: opts.Now}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s, nil
}

func (s *GormStore) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// Create persists l and returns its id.
func (s *GormStore) Create(ctx context.Context, l *models.Lead) (uint, error) {
	l.ID = 0
	l.CreatedAt = s.timestamp()
	l.Contacted = false
	l.ContactedAt = nil
	l.Archived = false
	l.FirstReminderSent = false
	l.SecondReminderSent = false

	if err := s.db.WithContext(ctx).Create(l).Error; err != nil {
		return 0, &StoreError{Op: "create", Err: err}
	}
	return l.ID, nil
}

// Get retrieves a lead by id.
func (s *GormStore) Get(ctx context.Context, id uint) (*models.Lead, error) {
	var l models.Lead
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, &StoreError{Op: fmt.Sprintf("get %d", id), Err: err}
	}
	return &l, nil
}

// ListActive returns non-archived leads.
func (s *GormStore) ListActive(ctx context.Context, limit int, newestFirst bool) ([]models.Lead, error) {
	q := s.db.WithContext(ctx).Where("archived = ?", false)
	if newestFirst {
		q = q.Order("created_at DESC").Order("id DESC")
	} else {
		q = q.Order("created_at ASC").Order("id ASC")
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var leads []models.Lead
	if err := q.Find(&leads).Error; err != nil {
		return nil, &StoreError{Op: "list active", Err: err}
	}
	return leads, nil
}

// ListAll returns every lead, newest first.
func (s *GormStore) ListAll(ctx context.Context) ([]models.Lead, error) {
	var leads []models.Lead
	if err := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&leads).Error; err != nil {
		return nil, &StoreError{Op: "list all", Err: err}
	}
	return leads, nil
}

// MarkContacted sets contacted and contacted_at. Only the first call
// changes the row.
func (s *GormStore) MarkContacted(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND contacted = ?", id, false).
		Updates(map[string]interface{}{
			"contacted":    true,
			"contacted_at": s.timestamp(),
		})
	return s.checkUpdate(ctx, "mark contacted", id, result)
}

// Archive sets archived. Repeated calls are no-ops.
func (s *GormStore) Archive(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND archived = ?", id, false).
		Update("archived", true)
	return s.checkUpdate(ctx, "archive", id, result)
}

// QueryUncontacted returns leads due for escalation at olderThan.
func (s *GormStore) QueryUncontacted(ctx context.Context, olderThan time.Duration) ([]models.Lead, error) {
	cutoff := s.timestamp().Add(-olderThan)
	var leads []models.Lead
	err := s.db.WithContext(ctx).
		Where("contacted = ? AND archived = ? AND created_at <= ?", false, false, cutoff).
		Order("created_at ASC").Order("id ASC").
		Find(&leads).Error
	if err != nil {
		return nil, &StoreError{Op: "query uncontacted", Err: err}
	}
	return leads, nil
}

// MarkReminderSent sets the flag for t. The flag is never cleared.
func (s *GormStore) MarkReminderSent(ctx context.Context, id uint, t Threshold) error {
	column, err := t.Column()
	if err != nil {
		return err
	}
	result := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ? AND "+column+" = ?", id, false).
		Update(column, true)
	return s.checkUpdate(ctx, "mark "+t.String()+" reminder", id, result)
}

// checkUpdate turns a conditional update into the idempotent contract:
// zero affected rows is fine as long as the lead exists.
func (s *GormStore) checkUpdate(ctx context.Context, op string, id uint, result *gorm.DB) error {
	if result.Error != nil {
		return &StoreError{Op: fmt.Sprintf("%s %d", op, id), Err: result.Error}
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Lead{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return &StoreError{Op: fmt.Sprintf("%s %d", op, id), Err: err}
	}
	if count == 0 {
		return notFound(id)
	}
	return nil
}

// GetLanguage returns the stored language for identity, or "".
func (s *GormStore) GetLanguage(ctx context.Context, identity string) (string, error) {
	var p models.Preference
	err := s.db.WithContext(ctx).Where("identity = ?", identity).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", &StoreError{Op: "get language", Err: err}
	}
	return p.Language, nil
}

// SetLanguage upserts the language preference for identity.
func (s *GormStore) SetLanguage(ctx context.Context, identity, lang string) error {
	if identity == "" {
		return fmt.Errorf("lead: identity is required")
	}
	p := models.Preference{Identity: identity, Language: lang, UpdatedAt: s.timestamp()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"language", "updated_at"}),
	}).Create(&p).Error
	if err != nil {
		return &StoreError{Op: "set language", Err: err}
	}
	return nil
}

// Stats counts active leads. Today and ThisWeek use calendar days in the
// store's location; the week is the current day plus the previous seven.
func (s *GormStore) Stats(ctx context.Context) (Stats, error) {
	now := s.now().In(s.loc)
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc).UTC()
	weekStart := dayStart.AddDate(0, 0, -7)

	st := Stats{ByTier: make(map[models.Tier]int64, len(models.Tiers))}
	active := func() *gorm.DB {
		return s.db.WithContext(ctx).Model(&models.Lead{}).Where("archived = ?", false)
	}

	if err := active().Count(&st.Total).Error; err != nil {
		return Stats{}, &StoreError{Op: "stats total", Err: err}
	}
	if err := active().Where("created_at >= ?", dayStart).Count(&st.Today).Error; err != nil {
		return Stats{}, &StoreError{Op: "stats today", Err: err}
	}
	if err := active().Where("created_at >= ?", weekStart).Count(&st.ThisWeek).Error; err != nil {
		return Stats{}, &StoreError{Op: "stats week", Err: err}
	}

	var rows []struct {
		Status models.Tier
		Count  int64
	}
	if err := active().Select("status, COUNT(*) AS count").Group("status").Scan(&rows).Error; err != nil {
		return Stats{}, &StoreError{Op: "stats by tier", Err: err}
	}
	for _, r := range rows {
		st.ByTier[r.Status] = r.Count
	}
	return st, nil
}
