package snapshot

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Listing одна удаленная выборка семейства
type Listing struct {
	Name string `yaml:"name" json:"name"`
	Path string `yaml:"path" json:"path"`
}

// Family семейство сущностей и выборки, из которых собирается его снимок.
// Удаленный API не отдает единого списка, поэтому выборок несколько.
type Family struct {
	Key      string    `yaml:"key" json:"key"`
	Listings []Listing `yaml:"listings" json:"listings"`
}

const DefaultUpcomingDays = 7

// DefaultFamilies семейства полевого приложения: потенциальные клиенты, встречи, визиты.
func DefaultFamilies(upcomingDays int) []Family {
	if upcomingDays <= 0 {
		upcomingDays = DefaultUpcomingDays
	}
	return []Family{
		{
			Key: "prospects",
			Listings: []Listing{
				{Name: "all", Path: "/fieldflow/prospects"},
				{Name: "follow-ups", Path: "/fieldflow/prospects/follow-ups"},
			},
		},
		{
			Key: "meetings",
			Listings: []Listing{
				{Name: "all", Path: "/fieldflow/meetings"},
				{Name: "today", Path: "/fieldflow/meetings/today"},
				{Name: "upcoming", Path: "/fieldflow/meetings/upcoming?days=" + strconv.Itoa(upcomingDays)},
			},
		},
		{
			Key: "visits",
			Listings: []Listing{
				{Name: "all", Path: "/fieldflow/visits"},
				{Name: "today", Path: "/fieldflow/visits/today"},
			},
		},
	}
}

type familiesFile struct {
	Families []Family `yaml:"families"`
}

// LoadFamilies читает описание семейств из YAML файла.
func LoadFamilies(path string) ([]Family, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read families file: %w", err)
	}

	var f familiesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse families file %s: %w", path, err)
	}
	if err := ValidateFamilies(f.Families); err != nil {
		return nil, err
	}
	return f.Families, nil
}

// ValidateFamilies проверяет уникальность ключей и наличие выборок.
func ValidateFamilies(families []Family) error {
	if len(families) == 0 {
		return fmt.Errorf("%w: no families", ErrInvalidFamily)
	}
	seen := make(map[string]bool, len(families))
	for _, f := range families {
		if f.Key == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidFamily)
		}
		if seen[f.Key] {
			return fmt.Errorf("%w: duplicate key %q", ErrInvalidFamily, f.Key)
		}
		seen[f.Key] = true
		if len(f.Listings) == 0 {
			return fmt.Errorf("%w: %s has no listings", ErrInvalidFamily, f.Key)
		}
		for _, l := range f.Listings {
			if l.Path == "" {
				return fmt.Errorf("%w: %s has a listing without path", ErrInvalidFamily, f.Key)
			}
		}
	}
	return nil
}
