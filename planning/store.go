package planning

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/drewmudry/shootplan-api/complexity"
	"github.com/drewmudry/shootplan-api/models"
)

var (
	ErrInvalidTarget   = errors.New("drop target is not a day of this project")
	ErrInvalidLocation = errors.New("location is not part of this project")
)

// Store reads and writes the shooting plan of a project.
type Store struct {
	DB *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{DB: db}
}

// Plan is a project's days and sequences as stored.
type Plan struct {
	Days      []models.ShootingDay
	Sequences []models.Sequence
}

// Load returns the days ordered by day number and the sequences ordered by
// number, characters preloaded.
func (s *Store) Load(ctx context.Context, projectID uint) (*Plan, error) {
	var plan Plan
	db := s.DB.WithContext(ctx)
	if err := db.Where("project_id = ?", projectID).Order("day_number, id").Find(&plan.Days).Error; err != nil {
		return nil, errors.Wrap(err, "load shooting days")
	}
	if err := db.Preload("Characters").Where("project_id = ?", projectID).Order("number, id").Find(&plan.Sequences).Error; err != nil {
		return nil, errors.Wrap(err, "load sequences")
	}
	return &plan, nil
}

// Snapshot converts the stored plan to the aggregator's view.
func (p *Plan) Snapshot() ([]Scene, []Day) {
	scenes := make([]Scene, 0, len(p.Sequences))
	for _, seq := range p.Sequences {
		scenes = append(scenes, SceneFromSequence(seq))
	}

	assigned := make(map[uint][]models.Sequence)
	for _, seq := range p.Sequences {
		if seq.ShootingDayID != nil {
			assigned[*seq.ShootingDayID] = append(assigned[*seq.ShootingDayID], seq)
		}
	}

	days := make([]Day, 0, len(p.Days))
	for _, d := range p.Days {
		seqs := assigned[d.ID]
		sort.SliceStable(seqs, func(i, j int) bool { return seqs[i].ShootingOrder < seqs[j].ShootingOrder })
		ids := make([]uint, 0, len(seqs))
		for _, seq := range seqs {
			ids = append(ids, seq.ID)
		}
		days = append(days, Day{ID: d.ID, DayNumber: d.DayNumber, TimeOfDay: d.TimeOfDay, SceneIDs: ids})
	}
	return scenes, days
}

func SceneFromSequence(seq models.Sequence) Scene {
	ids := make([]uint, 0, len(seq.Characters))
	for _, c := range seq.Characters {
		ids = append(ids, c.ID)
	}
	return Scene{
		ID:               seq.ID,
		Number:           seq.Number,
		Title:            seq.Title,
		Description:      seq.Description,
		TimeOfDay:        seq.TimeOfDay,
		Eighths:          seq.Eighths,
		EffectiveEighths: seq.EffectiveEighths,
		LocationID:       seq.LocationID,
		CharacterIDs:     ids,
		CharacterNames:   seq.CharacterNames(),
		Category:         complexity.Category(seq.ComplexityCategory),
		ExtraMinutes:     complexity.ExtraMinutes(seq.Factors()),
	}
}

// DayInput holds the editable fields of a shooting day.
type DayInput struct {
	DayNumber  int        `json:"day_number"`
	LocationID *uint      `json:"location_id"`
	TimeOfDay  string     `json:"time_of_day"`
	Notes      string     `json:"notes"`
	Date       *time.Time `json:"date"`
}

// CreateDay adds a day. A zero DayNumber takes the next free number.
func (s *Store) CreateDay(ctx context.Context, projectID uint, in DayInput) (*models.ShootingDay, error) {
	var day *models.ShootingDay
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		day, err = createDay(tx, projectID, in)
		return err
	})
	return day, err
}

func createDay(tx *gorm.DB, projectID uint, in DayInput) (*models.ShootingDay, error) {
	if err := checkLocation(tx, projectID, in.LocationID); err != nil {
		return nil, err
	}
	if in.DayNumber <= 0 {
		var max int
		if err := tx.Model(&models.ShootingDay{}).
			Where("project_id = ?", projectID).
			Select("COALESCE(MAX(day_number), 0)").
			Scan(&max).Error; err != nil {
			return nil, errors.Wrap(err, "next day number")
		}
		in.DayNumber = max + 1
	}
	day := models.ShootingDay{
		ProjectID:  projectID,
		DayNumber:  in.DayNumber,
		LocationID: in.LocationID,
		TimeOfDay:  in.TimeOfDay,
		Notes:      in.Notes,
		Date:       in.Date,
	}
	if err := tx.Create(&day).Error; err != nil {
		return nil, errors.Wrap(err, "create shooting day")
	}
	return &day, nil
}

func checkLocation(tx *gorm.DB, projectID uint, locationID *uint) error {
	if locationID == nil {
		return nil
	}
	var count int64
	if err := tx.Model(&models.Location{}).
		Where("id = ? AND project_id = ?", *locationID, projectID).
		Count(&count).Error; err != nil {
		return errors.Wrap(err, "check day location")
	}
	if count == 0 {
		return ErrInvalidLocation
	}
	return nil
}

func (s *Store) GetDay(ctx context.Context, projectID, dayID uint) (*models.ShootingDay, error) {
	var day models.ShootingDay
	if err := s.DB.WithContext(ctx).First(&day, "id = ? AND project_id = ?", dayID, projectID).Error; err != nil {
		return nil, errors.Wrapf(err, "get shooting day %d", dayID)
	}
	return &day, nil
}

func (s *Store) UpdateDay(ctx context.Context, projectID, dayID uint, in DayInput) (*models.ShootingDay, error) {
	day, err := s.GetDay(ctx, projectID, dayID)
	if err != nil {
		return nil, err
	}
	if err := checkLocation(s.DB.WithContext(ctx), projectID, in.LocationID); err != nil {
		return nil, err
	}
	updates := map[string]interface{}{
		"location_id": in.LocationID,
		"time_of_day": in.TimeOfDay,
		"notes":       in.Notes,
		"date":        in.Date,
	}
	if in.DayNumber > 0 {
		updates["day_number"] = in.DayNumber
	}
	if err := s.DB.WithContext(ctx).Model(day).Updates(updates).Error; err != nil {
		return nil, errors.Wrapf(err, "update shooting day %d", dayID)
	}
	return s.GetDay(ctx, projectID, dayID)
}

// DeleteDay removes a day and returns its sequences to the unassigned pool.
func (s *Store) DeleteDay(ctx context.Context, projectID, dayID uint) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var day models.ShootingDay
		if err := tx.First(&day, "id = ? AND project_id = ?", dayID, projectID).Error; err != nil {
			return errors.Wrapf(err, "get shooting day %d", dayID)
		}
		if err := tx.Model(&models.Sequence{}).
			Where("shooting_day_id = ?", day.ID).
			Updates(map[string]interface{}{"shooting_day_id": nil, "shooting_order": 0}).Error; err != nil {
			return errors.Wrap(err, "unassign sequences")
		}
		if err := tx.Delete(&day).Error; err != nil {
			return errors.Wrap(err, "delete shooting day")
		}
		return nil
	})
}

// Target says where a dropped scene goes. With neither DayID nor NewDay set
// the scene returns to the unassigned pool.
type Target struct {
	DayID  *uint     `json:"day_id"`
	NewDay *DayInput `json:"new_day"`
	// Position is the zero-based slot in the target day; nil appends.
	Position *int `json:"position"`
}

type ReassignResult struct {
	Sequence   models.Sequence     `json:"sequence"`
	FromDayID  *uint               `json:"from_day_id"`
	Day        *models.ShootingDay `json:"day,omitempty"`
	CreatedDay bool                `json:"created_day"`
}

// Reassign moves a sequence to a day, a new day or the unassigned pool in a
// single transaction, so the sequence is never in two days or lost.
func (s *Store) Reassign(ctx context.Context, projectID, sequenceID uint, target Target) (*ReassignResult, error) {
	var result ReassignResult
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq models.Sequence
		if err := tx.First(&seq, "id = ? AND project_id = ?", sequenceID, projectID).Error; err != nil {
			return errors.Wrapf(err, "get sequence %d", sequenceID)
		}
		result.FromDayID = seq.ShootingDayID

		var day *models.ShootingDay
		switch {
		case target.NewDay != nil:
			created, err := createDay(tx, projectID, *target.NewDay)
			if err != nil {
				return err
			}
			day = created
			result.CreatedDay = true
		case target.DayID != nil:
			var existing models.ShootingDay
			if err := tx.First(&existing, "id = ? AND project_id = ?", *target.DayID, projectID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrInvalidTarget
				}
				return errors.Wrap(err, "get target day")
			}
			day = &existing
		}

		if day == nil {
			if err := tx.Model(&seq).Updates(map[string]interface{}{"shooting_day_id": nil, "shooting_order": 0}).Error; err != nil {
				return errors.Wrap(err, "unassign sequence")
			}
		} else if err := placeInDay(tx, &seq, day.ID, target.Position); err != nil {
			return err
		}

		if result.FromDayID != nil && (day == nil || *result.FromDayID != day.ID) {
			if err := renumber(tx, *result.FromDayID, 0, nil); err != nil {
				return err
			}
		}

		if err := tx.Preload("Characters").First(&result.Sequence, seq.ID).Error; err != nil {
			return errors.Wrap(err, "reload sequence")
		}
		result.Day = day
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// placeInDay assigns seq to dayID at position and rewrites the order of the
// day's other sequences.
func placeInDay(tx *gorm.DB, seq *models.Sequence, dayID uint, position *int) error {
	if err := tx.Model(seq).Update("shooting_day_id", dayID).Error; err != nil {
		return errors.Wrap(err, "assign sequence")
	}
	return renumber(tx, dayID, seq.ID, position)
}

// renumber rewrites shooting_order of a day's sequences to 0..n-1. When
// moved is non-zero that sequence is put at position (appended when nil or
// out of range).
func renumber(tx *gorm.DB, dayID, moved uint, position *int) error {
	var ids []uint
	q := tx.Model(&models.Sequence{}).Where("shooting_day_id = ?", dayID)
	if moved != 0 {
		q = q.Where("id <> ?", moved)
	}
	if err := q.Order("shooting_order, id").Pluck("id", &ids).Error; err != nil {
		return errors.Wrap(err, "list day sequences")
	}

	if moved != 0 {
		pos := len(ids)
		if position != nil && *position >= 0 && *position < len(ids) {
			pos = *position
		}
		ids = append(ids, 0)
		copy(ids[pos+1:], ids[pos:])
		ids[pos] = moved
	}

	for i, id := range ids {
		if err := tx.Model(&models.Sequence{}).Where("id = ?", id).Update("shooting_order", i).Error; err != nil {
			return errors.Wrap(err, "update shooting order")
		}
	}
	return nil
}
