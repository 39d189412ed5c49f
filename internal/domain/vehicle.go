package domain

import (
	"strings"
	"time"
)

// VehicleType представляет класс транспортного средства
type VehicleType string

const (
	VehicleTypeCar       VehicleType = "CAR"
	VehicleTypeMotorbike VehicleType = "MOTORBIKE"
)

// IsValid проверяет, что класс транспортного средства известен
func (t VehicleType) IsValid() bool {
	return t == VehicleTypeCar || t == VehicleTypeMotorbike
}

// Vehicle - транспортное средство, создается при первом въезде
type Vehicle struct {
	ID           int64       `json:"id"`
	LicensePlate string      `json:"plate"` // нормализованный номер (уникальный)
	VehicleType  VehicleType `json:"type"`
	CreatedAt    time.Time   `json:"created_at"`
}

// NormalizeLicensePlate нормализует номер автомобиля (убирает пробелы, приводит к верхнему регистру)
func NormalizeLicensePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}

// Validate проверяет корректность данных автомобиля
func (v *Vehicle) Validate() error {
	v.LicensePlate = NormalizeLicensePlate(v.LicensePlate)

	if len(v.LicensePlate) < 3 || len(v.LicensePlate) > 20 {
		return ErrInvalidLicensePlate
	}
	if !v.VehicleType.IsValid() {
		return ErrInvalidVehicleType
	}
	return nil
}
