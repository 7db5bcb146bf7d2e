package dragdrop

import "sync"

// DraggedScene is the scene held by an in-flight drag.
type DraggedScene struct {
	SceneID          uint     `json:"scene_id" binding:"required"`
	Number           int      `json:"number"`
	Title            string   `json:"title"`
	Eighths          int      `json:"eighths"`
	EffectiveEighths *int     `json:"effective_eighths,omitempty"`
	CharacterNames   []string `json:"character_names"`
	// OriginDayID is nil when the scene was picked from the unassigned pool.
	OriginDayID *uint `json:"origin_day_id,omitempty"`
}

// Session holds at most one dragged scene. Starting a drag overwrites the
// previous one; callers are expected to end a drag before starting another.
type Session struct {
	mu      sync.Mutex
	current *DraggedScene
}

func NewSession() *Session {
	return &Session{}
}

// StartDrag records scene as the current drag and reports whether a live drag
// was overwritten.
func (s *Session) StartDrag(scene DraggedScene) (replaced bool) {
	scene.CharacterNames = append([]string(nil), scene.CharacterNames...)

	s.mu.Lock()
	defer s.mu.Unlock()
	replaced = s.current != nil
	s.current = &scene
	return replaced
}

// EndDrag clears the slot. Safe to call when nothing is being dragged.
func (s *Session) EndDrag() {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
}

// Current returns a copy of the dragged scene.
func (s *Session) Current() (DraggedScene, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return DraggedScene{}, false
	}
	scene := *s.current
	scene.CharacterNames = append([]string(nil), s.current.CharacterNames...)
	return scene, true
}

func (s *Session) IsDragging() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Drop hands the dragged scene to fn and ends the drag whatever fn does,
// including when it panics. ErrNotDragging is returned when the slot is empty.
func (s *Session) Drop(fn func(DraggedScene) error) error {
	scene, ok := s.Current()
	if !ok {
		return ErrNotDragging
	}
	defer s.EndDrag()
	return fn(scene)
}
