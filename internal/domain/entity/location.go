package entity

import (
	"fmt"
	"strings"
)

// Tipos de ubicación del libro de insumos.
const (
	LocationKindGeneral     = "general"     // almacén general de un hospital
	LocationKindProvisional = "provisional" // almacén provisional (por procedimiento) de un hospital
	LocationKindCentral     = "central"     // almacén central nacional
	LocationKindConsumed    = "consumed"    // sumidero virtual de consumo por procedimiento
)

// Location identifica una ubicación de stock. Su forma canónica es Key():
//
//	general:<hospitalID>, provisional:<id>, central, consumed:<procedureID>
type Location struct {
	Kind string
	ID   string
}

// GeneralWarehouse almacén general de un hospital.
func GeneralWarehouse(hospitalID string) Location {
	return Location{Kind: LocationKindGeneral, ID: hospitalID}
}

// ProvisionalWarehouse almacén provisional.
func ProvisionalWarehouse(id string) Location {
	return Location{Kind: LocationKindProvisional, ID: id}
}

// CentralWarehouse almacén central (único).
func CentralWarehouse() Location {
	return Location{Kind: LocationKindCentral}
}

// Consumed sumidero virtual de un procedimiento.
func Consumed(procedureID string) Location {
	return Location{Kind: LocationKindConsumed, ID: procedureID}
}

// Key forma canónica persistida.
func (l Location) Key() string {
	if l.Kind == LocationKindCentral {
		return LocationKindCentral
	}
	return l.Kind + ":" + l.ID
}

func (l Location) String() string { return l.Key() }

// IsSink indica si es el sumidero virtual de consumo.
func (l Location) IsSink() bool { return l.Kind == LocationKindConsumed }

// ParseLocation interpreta la forma canónica.
func ParseLocation(key string) (Location, error) {
	if key == LocationKindCentral {
		return CentralWarehouse(), nil
	}
	kind, id, ok := strings.Cut(key, ":")
	if !ok || id == "" {
		return Location{}, fmt.Errorf("ubicación mal formada: %q", key)
	}
	switch kind {
	case LocationKindGeneral, LocationKindProvisional, LocationKindConsumed:
		return Location{Kind: kind, ID: id}, nil
	}
	return Location{}, fmt.Errorf("tipo de ubicación desconocido: %q", kind)
}
