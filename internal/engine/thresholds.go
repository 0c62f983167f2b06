package engine

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Thresholds holds the numeric limits of the jurisdiction's rule table.
// The defaults follow the Dongjak-gu registration notice; other districts
// publish slightly different numbers, so the table is loadable from YAML.
type Thresholds struct {
	// RegistrationAreaM2 is the homestay registration ceiling: total floor
	// area must be strictly below it.
	RegistrationAreaM2 float64 `yaml:"registration_area_m2"`

	MultiHousehold struct {
		MaxGroundFloors int     `yaml:"max_ground_floors"`
		MaxAreaM2       float64 `yaml:"max_area_m2"`
		MaxTotalUnits   int     `yaml:"max_total_units"`
	} `yaml:"multi_household"`

	MultiUnit struct {
		MaxGroundFloors int     `yaml:"max_ground_floors"`
		MaxAreaM2       float64 `yaml:"max_area_m2"`
	} `yaml:"multi_unit"`

	RowHouse struct {
		MaxGroundFloors int     `yaml:"max_ground_floors"`
		MinAreaM2       float64 `yaml:"min_area_m2"` // exclusive: area must exceed it
	} `yaml:"row_house"`

	Apartment struct {
		MinGroundFloors int `yaml:"min_ground_floors"`
	} `yaml:"apartment"`
}

// DefaultThresholds returns the Dongjak-gu notice values.
func DefaultThresholds() Thresholds {
	var t Thresholds
	t.RegistrationAreaM2 = 230
	t.MultiHousehold.MaxGroundFloors = 3
	t.MultiHousehold.MaxAreaM2 = 660
	t.MultiHousehold.MaxTotalUnits = 19
	t.MultiUnit.MaxGroundFloors = 4
	t.MultiUnit.MaxAreaM2 = 660
	t.RowHouse.MaxGroundFloors = 4
	t.RowHouse.MinAreaM2 = 660
	t.Apartment.MinGroundFloors = 5
	return t
}

// LoadThresholds reads a YAML rule file, starting from the defaults so a
// partial file only overrides what it names.
func LoadThresholds(path string) (Thresholds, error) {
	t := DefaultThresholds()

	data, err := os.ReadFile(path)
	if err != nil {
		return t, eris.Wrapf(err, "engine: read rules %s", path)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, eris.Wrapf(err, "engine: parse rules %s", path)
	}
	return t, nil
}
