package domain

import "strings"

// Section - секция парковки с ограниченной вместимостью
type Section struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Validate проверяет корректность данных секции
func (s *Section) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return ErrInvalidSectionData
	}
	if s.Capacity <= 0 {
		return ErrInvalidSectionData
	}
	return nil
}

// Availability - снимок свободных мест в секции
type Availability struct {
	SectionID      int64 `json:"section_id"`
	Capacity       int   `json:"capacity"`
	Occupied       int   `json:"occupied"`
	ActiveReserved int   `json:"active_reserved"`
	Available      int   `json:"available"`
}

// NewAvailability считает свободные места: capacity - activeReserved - occupied
func NewAvailability(sectionID int64, capacity, occupied, activeReserved int) Availability {
	return Availability{
		SectionID:      sectionID,
		Capacity:       capacity,
		Occupied:       occupied,
		ActiveReserved: activeReserved,
		Available:      capacity - activeReserved - occupied,
	}
}

// IsFull - в секции нет свободных мест
func (a Availability) IsFull() bool {
	return a.Available <= 0
}
