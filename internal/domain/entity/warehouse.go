package entity

import "time"

// Warehouse registro maestro de una ubicación física (todas salvo el sumidero de consumo).
// HospitalID es vacío para el almacén central. Un almacén provisional solo se desactiva
// por medio del conciliador de baja.
type Warehouse struct {
	Location      Location
	HospitalID    string
	Name          string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeactivatedAt *time.Time
}

// Key ubicación canónica del almacén.
func (w *Warehouse) Key() string { return w.Location.Key() }
